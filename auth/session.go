// Package auth holds the OAuth2 provider configurations and the explicit token
// session used by the storage and doorbell clients.
package auth

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	errs "github.com/leo-automation/leo-ring/errors"
	"github.com/leo-automation/leo-ring/log"
)

// Session is a bearer token plus the means to refresh it. Tokens are never refreshed
// implicitly: clients built from a Session use the token as it was at the last
// Refresh.
type Session struct {
	name   string
	config *oauth2.Config
	client *http.Client

	sync.RWMutex
	token *oauth2.Token
}

// NewSession creates a session for the provider. client is the transport used for
// token requests (nil for http.DefaultClient).
func NewSession(name string, config *oauth2.Config, token *oauth2.Token, client *http.Client) *Session {
	if client == nil {
		client = http.DefaultClient
	}

	return &Session{
		name:   name,
		config: config,
		client: client,
		token:  token,
	}
}

func (s *Session) Name() string {
	return s.name
}

// Refresh exchanges the refresh token for a new access token.
func (s *Session) Refresh(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if s.token == nil || s.token.RefreshToken == "" {
		return errs.New(errs.KindAuthentication, "%v: no refresh token", s.name)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	expired := &oauth2.Token{RefreshToken: s.token.RefreshToken}

	token, err := s.config.TokenSource(ctx, expired).Token()
	if err != nil {
		if errs.IsTimeout(err) {
			return errs.Wrap(errs.KindTransientTimeout, err, "%v: token refresh timed out", s.name)
		}

		return errs.Wrap(errs.KindAuthentication, err, "%v: token refresh failed", s.name)
	}

	// some providers only issue a refresh token on the initial exchange
	if token.RefreshToken == "" {
		token.RefreshToken = s.token.RefreshToken
	}

	s.token = token

	log.Named("auth").Debug().Str("provider", s.name).Time("expiry", token.Expiry).Msg("token refreshed")

	return nil
}

// Token returns the current token.
func (s *Session) Token() *oauth2.Token {
	s.RLock()
	defer s.RUnlock()

	return s.token
}

// Client returns an HTTP client that authorises requests with the current access token.
func (s *Session) Client(ctx context.Context) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(s.Token()))
	client.Timeout = s.client.Timeout

	return client
}

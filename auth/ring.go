package auth

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	errs "github.com/leo-automation/leo-ring/errors"
)

// ErrVerificationRequired is returned (wrapped in an authentication error) when the
// account has two factor authentication enabled and no verification code was given.
var ErrVerificationRequired = stderrs.New("verification code required")

// RingHeaders are the headers the vendor token endpoint expects on every request.
func RingHeaders(agent, hardwareID string) map[string]string {
	return map[string]string{
		"User-Agent":  agent,
		"hardware_id": hardwareID,
	}
}

// RingLogin exchanges an account username/password and verification code for a token.
// The vendor answers 412 when a verification code is required but missing.
func RingLogin(ctx context.Context, client *http.Client, config *oauth2.Config, agent, username, password, code string) (*oauth2.Token, error) {
	headers := RingHeaders(agent, uuid.NewString())
	headers["2fa-support"] = "true"
	if code != "" {
		headers["2fa-code"] = code
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, WithHeaders(client, headers))

	token, err := config.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if stderrs.As(err, &rerr) && rerr.Response != nil && rerr.Response.StatusCode == http.StatusPreconditionFailed {
			return nil, errs.Wrap(errs.KindAuthentication, fmt.Errorf("%w: %v", ErrVerificationRequired, err), "login failed")
		}

		return nil, errs.Wrap(errs.KindAuthentication, err, "login failed")
	}

	return token, nil
}

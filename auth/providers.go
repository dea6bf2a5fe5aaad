package auth

import (
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

const (
	MicrosoftGraph = "microsoft"
	Google         = "google"
	Ring           = "ring"
)

const (
	GraphFilesScope = "Files.ReadWrite.All"
	DriveScope      = "https://www.googleapis.com/auth/drive"
	SheetsScope     = "https://www.googleapis.com/auth/spreadsheets"
)

const (
	ringTokenURL = "https://oauth.ring.com/oauth/token"
	ringClientID = "ring_official_android"
)

// MicrosoftConfig is the Microsoft identity platform configuration for the 'common' tenant.
func MicrosoftConfig(clientID, secret, scope, redirect string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: secret,
		Endpoint:     microsoft.AzureADEndpoint("common"),
		RedirectURL:  redirect,
		Scopes:       strings.Fields(scope),
	}
}

func GoogleConfig(clientID, secret, redirect string, scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: secret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirect,
		Scopes:       scopes,
	}
}

// RingConfig is the doorbell vendor's token endpoint. tokenURL overrides the
// production endpoint if not empty.
func RingConfig(tokenURL string) *oauth2.Config {
	if tokenURL == "" {
		tokenURL = ringTokenURL
	}

	return &oauth2.Config{
		ClientID: ringClientID,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{"client"},
	}
}

// WithHeaders returns a copy of client whose requests carry the additional headers.
func WithHeaders(client *http.Client, headers map[string]string) *http.Client {
	if client == nil {
		client = http.DefaultClient
	}

	transport := client.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	c := *client
	c.Transport = &headerTransport{
		headers: headers,
		next:    transport,
	}

	return &c
}

type headerTransport struct {
	headers map[string]string
	next    http.RoundTripper
}

func (t *headerTransport) RoundTrip(rq *http.Request) (*http.Response, error) {
	r := rq.Clone(rq.Context())
	for k, v := range t.headers {
		r.Header.Set(k, v)
	}

	return t.next.RoundTrip(r)
}

// Package credential converts the doorbell vendor session token to and from the
// single base64 string stored in the RING_TOKEN setting.
package credential

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"strings"
	"time"

	"golang.org/x/oauth2"

	errs "github.com/leo-automation/leo-ring/errors"
)

// Credential is the token bundle issued by the vendor's OAuth endpoint. ExpiresAt is
// seconds since the epoch, fractional, as written by the vendor login flow.
type Credential struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	TokenType    string  `json:"token_type,omitempty"`
	Scope        Scopes  `json:"scope"`
	ExpiresIn    int64   `json:"expires_in,omitempty"`
	ExpiresAt    float64 `json:"expires_at,omitempty"`
}

// Scopes accepts either a single scope string or a list of scopes. A single scope is
// written as a string only if it would be read back unchanged.
type Scopes []string

func (s Scopes) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}

	if len(s) == 1 {
		if fields := strings.Fields(s[0]); len(fields) == 1 && fields[0] == s[0] {
			return json.Marshal(s[0])
		}
	}

	return json.Marshal([]string(s))
}

func (s *Scopes) UnmarshalJSON(b []byte) error {
	var scope string
	if err := json.Unmarshal(b, &scope); err == nil {
		if scope == "" {
			*s = nil
		} else {
			*s = strings.Fields(scope)
		}
		return nil
	}

	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}

	*s = list

	return nil
}

// Decode base64-decodes and then parses a stored credential.
func Decode(b64 string) (Credential, error) {
	var c Credential

	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return c, errs.Wrap(errs.KindMalformedCredential, err, "invalid base64 credential")
	}

	if err := json.Unmarshal(b, &c); err != nil {
		return c, errs.Wrap(errs.KindMalformedCredential, err, "invalid credential JSON")
	}

	if c.AccessToken == "" && c.RefreshToken == "" {
		return c, errs.New(errs.KindMalformedCredential, "credential has neither an access token nor a refresh token")
	}

	return c, nil
}

// Encode is the inverse of Decode.
func Encode(c Credential) (string, error) {
	b, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(b), nil
}

// Token converts the credential to an oauth2 token.
func (c Credential) Token() *oauth2.Token {
	token := oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
	}

	if c.ExpiresAt > 0 {
		sec, frac := math.Modf(c.ExpiresAt)
		token.Expiry = time.Unix(int64(sec), int64(frac*1e9))
	}

	return &token
}

// FromToken builds a credential from an oauth2 token as returned by the vendor token endpoint.
func FromToken(token *oauth2.Token) Credential {
	c := Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
	}

	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		c.Scope = strings.Fields(scope)
	}

	if v, ok := token.Extra("expires_in").(float64); ok {
		c.ExpiresIn = int64(v)
	}

	if !token.Expiry.IsZero() {
		c.ExpiresAt = float64(token.Expiry.UnixNano()) / 1e9
	}

	return c
}

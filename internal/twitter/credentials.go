// Package twitter publishes posts and reply threads to X.
package twitter

import (
	"errors"
	"strings"
)

// ErrInvalidCredentials is returned for a malformed or incomplete
// credentials string.
var ErrInvalidCredentials = errors.New(`invalid X credentials, expected "appKey;appSecret;accessToken;accessSecret"`)

// Credentials are the OAuth 1.0a consumer and access token pairs of one
// account.
type Credentials struct {
	AppKey       string
	AppSecret    string
	AccessToken  string
	AccessSecret string
}

// ParseCredentials reads the "appKey;appSecret;accessToken;accessSecret"
// form. Every part must be non-empty.
func ParseCredentials(s string) (Credentials, error) {
	parts := strings.Split(strings.TrimSpace(s), ";")
	if len(parts) != 4 {
		return Credentials{}, ErrInvalidCredentials
	}
	c := Credentials{
		AppKey:       strings.TrimSpace(parts[0]),
		AppSecret:    strings.TrimSpace(parts[1]),
		AccessToken:  strings.TrimSpace(parts[2]),
		AccessSecret: strings.TrimSpace(parts[3]),
	}
	if !c.Complete() {
		return Credentials{}, ErrInvalidCredentials
	}
	return c, nil
}

// Complete reports whether all four parts are set.
func (c Credentials) Complete() bool {
	return c.AppKey != "" && c.AppSecret != "" && c.AccessToken != "" && c.AccessSecret != ""
}

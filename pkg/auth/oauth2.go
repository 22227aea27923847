package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Credentials are the client secrets needed to run an OAuth2 grant.
// They are never stored on the descriptor.
type Credentials struct {
	ClientID     string
	ClientSecret string
	// Username and Password are used by the password flow only.
	Username string
	Password string
}

// Flow names as written in OpenAPI `flows`.
const (
	FlowClientCredentials = "clientCredentials"
	FlowPassword          = "password"
	FlowAuthorizationCode = "authorizationCode"
	FlowImplicit          = "implicit"
)

// FetchToken runs the descriptor's grant against its token URL and returns a
// copy of d carrying the new access token.
// Supported flows:
//   - clientCredentials: server-to-server, client ID and secret only
//   - password: resource owner password credentials
//
// authorizationCode and implicit need a browser and are rejected.
func FetchToken(ctx context.Context, d OAuth2, creds Credentials) (OAuth2, error) {
	if strings.TrimSpace(d.TokenURL) == "" {
		return d, fmt.Errorf("oauth2: token URL is required")
	}
	if creds.ClientID == "" {
		return d, fmt.Errorf("oauth2: client ID is required")
	}

	var (
		token *oauth2.Token
		err   error
	)
	switch d.Flow {
	case FlowClientCredentials:
		cfg := clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     d.TokenURL,
			Scopes:       d.ScopeNames(),
		}
		token, err = cfg.Token(ctx)
	case FlowPassword:
		if creds.Username == "" {
			return d, fmt.Errorf("oauth2: username is required for the password flow")
		}
		cfg := oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  d.AuthURL,
				TokenURL: d.TokenURL,
			},
			Scopes: d.ScopeNames(),
		}
		token, err = cfg.PasswordCredentialsToken(ctx, creds.Username, creds.Password)
	case FlowAuthorizationCode, FlowImplicit:
		return d, fmt.Errorf("oauth2: the %s flow requires browser interaction and is not supported", d.Flow)
	default:
		return d, fmt.Errorf("oauth2: unknown flow %q (supported: %s, %s)", d.Flow, FlowClientCredentials, FlowPassword)
	}
	if err != nil {
		return d, fmt.Errorf("oauth2 %s flow failed: %w", d.Flow, err)
	}

	d.AccessToken = token.AccessToken
	return d, nil
}

package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TokenInfo is the decoded, unverified content of a JWT.
type TokenInfo struct {
	Header    map[string]any
	Claims    map[string]any
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token carries an exp claim that lies before now.
func (t *TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && t.ExpiresAt.Before(now)
}

// InspectToken decodes a JWT's header and claims. The signature is not verified.
// A leading "Bearer " is ignored.
func InspectToken(token string) (*TokenInfo, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid JWT format (expected 3 parts, got %d)", len(parts))
	}

	info := &TokenInfo{}
	if err := decodeJWTPart(parts[0], &info.Header); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if err := decodeJWTPart(parts[1], &info.Claims); err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}

	if sub, ok := info.Claims["sub"].(string); ok {
		info.Subject = sub
	}
	if exp, ok := info.Claims["exp"].(float64); ok {
		info.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}
	if iat, ok := info.Claims["iat"].(float64); ok {
		info.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}
	return info, nil
}

// DescriptorToken returns the token a descriptor would send, if any.
func DescriptorToken(d Descriptor) string {
	t := &tokenVisitor{}
	OrNone(d).Accept(t)
	return t.token
}

type tokenVisitor struct{ token string }

func (t *tokenVisitor) VisitNone(None)                     {}
func (t *tokenVisitor) VisitAPIKey(d APIKey)               { t.token = d.Value }
func (t *tokenVisitor) VisitHTTPBasic(HTTPBasic)           {}
func (t *tokenVisitor) VisitHTTPBearer(d HTTPBearer)       { t.token = d.Token }
func (t *tokenVisitor) VisitOAuth2(d OAuth2)               { t.token = d.AccessToken }
func (t *tokenVisitor) VisitOpenIDConnect(d OpenIDConnect) { t.token = d.AccessToken }

// decodeJWTPart decodes URL-safe base64, with or without padding, into v.
func decodeJWTPart(part string, v any) error {
	decoded, err := base64.RawURLEncoding.DecodeString(part)
	if err != nil {
		switch len(part) % 4 {
		case 2:
			part += "=="
		case 3:
			part += "="
		}
		decoded, err = base64.URLEncoding.DecodeString(part)
		if err != nil {
			return fmt.Errorf("failed to decode JWT part: %w", err)
		}
	}
	return json.Unmarshal(decoded, v)
}

// AutoRefreshing returns d as an HTTPBearer when d replaces its token from
// response bodies.
func AutoRefreshing(d Descriptor) (HTTPBearer, bool) {
	r := &refreshVisitor{}
	OrNone(d).Accept(r)
	return r.bearer, r.ok
}

type refreshVisitor struct {
	bearer HTTPBearer
	ok     bool
}

func (r *refreshVisitor) VisitNone(None)                   {}
func (r *refreshVisitor) VisitAPIKey(APIKey)               {}
func (r *refreshVisitor) VisitHTTPBasic(HTTPBasic)         {}
func (r *refreshVisitor) VisitOAuth2(OAuth2)               {}
func (r *refreshVisitor) VisitOpenIDConnect(OpenIDConnect) {}
func (r *refreshVisitor) VisitHTTPBearer(d HTTPBearer) {
	r.bearer = d
	r.ok = d.AutoUpdate && strings.TrimSpace(d.TokenPath) != ""
}

// AsOAuth2 returns d when it is an OAuth2 descriptor.
func AsOAuth2(d Descriptor) (OAuth2, bool) {
	o := &oauth2Visitor{}
	OrNone(d).Accept(o)
	return o.d, o.ok
}

type oauth2Visitor struct {
	d  OAuth2
	ok bool
}

func (o *oauth2Visitor) VisitNone(None)                   {}
func (o *oauth2Visitor) VisitAPIKey(APIKey)               {}
func (o *oauth2Visitor) VisitHTTPBasic(HTTPBasic)         {}
func (o *oauth2Visitor) VisitHTTPBearer(HTTPBearer)       {}
func (o *oauth2Visitor) VisitOpenIDConnect(OpenIDConnect) {}
func (o *oauth2Visitor) VisitOAuth2(d OAuth2)             { o.d, o.ok = d, true }

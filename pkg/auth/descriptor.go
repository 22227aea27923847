// Package auth models the authentication attached to a server entry.
//
// Descriptor is a closed sum type: the only implementations are the six
// variants declared here. Consumers do not type-switch on it; they implement
// Visitor, so a new variant is a compile error at every consumption site.
package auth

import "strings"

// Location is where an API key travels.
type Location string

const (
	InHeader Location = "header"
	InQuery  Location = "query"
	InCookie Location = "cookie"
)

// ParseLocation maps an OpenAPI `in` value to a Location, defaulting to header.
func ParseLocation(s string) Location {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "query":
		return InQuery
	case "cookie":
		return InCookie
	default:
		return InHeader
	}
}

// Scope is an OAuth2 scope and its description.
type Scope struct {
	Name        string
	Description string
}

// Descriptor is one of None, APIKey, HTTPBasic, HTTPBearer, OAuth2, OpenIDConnect.
type Descriptor interface {
	// Accept dispatches to the Visitor method for the concrete variant.
	Accept(v Visitor)
	sealed()
}

// Visitor has one method per Descriptor variant.
type Visitor interface {
	VisitNone(None)
	VisitAPIKey(APIKey)
	VisitHTTPBasic(HTTPBasic)
	VisitHTTPBearer(HTTPBearer)
	VisitOAuth2(OAuth2)
	VisitOpenIDConnect(OpenIDConnect)
}

// None sends no credentials.
type None struct{}

// APIKey sends a named key in a header, the query string or a cookie.
type APIKey struct {
	Name     string
	Location Location
	Value    string
}

// HTTPBasic sends `Authorization: Basic base64(user:pass)`.
type HTTPBasic struct {
	Username string
	Password string
}

// HTTPBearer sends `Authorization: <format> <token>`.
// With AutoUpdate set, the token is replaced from TokenPath in each response body.
type HTTPBearer struct {
	Token        string
	BearerFormat string
	AutoUpdate   bool
	TokenPath    string
}

// OAuth2 sends its access token as a bearer token.
type OAuth2 struct {
	Flow        string
	AuthURL     string
	TokenURL    string
	RefreshURL  string
	Scopes      []Scope
	AccessToken string
}

// OpenIDConnect sends its access token as a bearer token.
type OpenIDConnect struct {
	URL         string
	AccessToken string
}

func (d None) Accept(v Visitor)          { v.VisitNone(d) }
func (d APIKey) Accept(v Visitor)        { v.VisitAPIKey(d) }
func (d HTTPBasic) Accept(v Visitor)     { v.VisitHTTPBasic(d) }
func (d HTTPBearer) Accept(v Visitor)    { v.VisitHTTPBearer(d) }
func (d OAuth2) Accept(v Visitor)        { v.VisitOAuth2(d) }
func (d OpenIDConnect) Accept(v Visitor) { v.VisitOpenIDConnect(d) }

func (None) sealed()          {}
func (APIKey) sealed()        {}
func (HTTPBasic) sealed()     {}
func (HTTPBearer) sealed()    {}
func (OAuth2) sealed()        {}
func (OpenIDConnect) sealed() {}

// OrNone returns d, or None when d is nil.
func OrNone(d Descriptor) Descriptor {
	if d == nil {
		return None{}
	}
	return d
}

// IsNone reports whether d carries no credentials.
func IsNone(d Descriptor) bool {
	_, ok := OrNone(d).(None)
	return ok
}

// kindVisitor names the variant of a descriptor.
type kindVisitor struct{ kind string }

func (k *kindVisitor) VisitNone(None)                   { k.kind = KindNone }
func (k *kindVisitor) VisitAPIKey(APIKey)               { k.kind = KindAPIKey }
func (k *kindVisitor) VisitHTTPBasic(HTTPBasic)         { k.kind = KindHTTPBasic }
func (k *kindVisitor) VisitHTTPBearer(HTTPBearer)       { k.kind = KindHTTPBearer }
func (k *kindVisitor) VisitOAuth2(OAuth2)               { k.kind = KindOAuth2 }
func (k *kindVisitor) VisitOpenIDConnect(OpenIDConnect) { k.kind = KindOpenIDConnect }

// Kind names of each variant, as written in the `type` field of the map codec.
const (
	KindNone          = "none"
	KindAPIKey        = "api_key"
	KindHTTPBasic     = "http_basic"
	KindHTTPBearer    = "http_bearer"
	KindOAuth2        = "oauth2"
	KindOpenIDConnect = "openid_connect"
)

// KindOf returns the variant name of d.
func KindOf(d Descriptor) string {
	k := &kindVisitor{}
	OrNone(d).Accept(k)
	return k.kind
}

// ScopeNames returns the names of scopes, in order.
func (o OAuth2) ScopeNames() []string {
	names := make([]string, 0, len(o.Scopes))
	for _, s := range o.Scopes {
		names = append(names, s.Name)
	}
	return names
}

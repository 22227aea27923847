package auth

import (
	"encoding/base64"
	"strings"
)

// Target is the part of an outgoing request that credentials are written to.
type Target interface {
	// Header returns the value of a header, matched case-insensitively.
	Header(key string) (string, bool)
	// SetHeader replaces a header, matched case-insensitively, or appends it.
	SetHeader(key, value string)
	// AppendQuery appends an encoded key=value pair to the URL's query string.
	AppendQuery(key, value string)
}

// Apply injects the credentials described by d into t.
func Apply(d Descriptor, t Target) {
	OrNone(d).Accept(&injector{target: t})
}

type injector struct {
	target Target
}

func (i *injector) VisitNone(None) {}

func (i *injector) VisitAPIKey(d APIKey) {
	name := strings.TrimSpace(d.Name)
	if name == "" || strings.TrimSpace(d.Value) == "" {
		return
	}
	switch d.Location {
	case InQuery:
		i.target.AppendQuery(name, d.Value)
	case InCookie:
		pair := name + "=" + d.Value
		if existing, ok := i.target.Header("Cookie"); ok && strings.TrimSpace(existing) != "" {
			i.target.SetHeader("Cookie", strings.TrimRight(strings.TrimSpace(existing), ";")+"; "+pair)
			return
		}
		i.target.SetHeader("Cookie", pair)
	default:
		i.target.SetHeader(name, d.Value)
	}
}

func (i *injector) VisitHTTPBasic(d HTTPBasic) {
	i.target.SetHeader("Authorization", BasicHeader(d.Username, d.Password))
}

func (i *injector) VisitHTTPBearer(d HTTPBearer) {
	token := strings.TrimSpace(d.Token)
	if token == "" {
		return
	}
	format := strings.TrimSpace(d.BearerFormat)
	if format == "" {
		format = "Bearer"
	}
	i.target.SetHeader("Authorization", format+" "+token)
}

func (i *injector) VisitOAuth2(d OAuth2) {
	i.bearer(d.AccessToken)
}

func (i *injector) VisitOpenIDConnect(d OpenIDConnect) {
	i.bearer(d.AccessToken)
}

func (i *injector) bearer(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	i.target.SetHeader("Authorization", "Bearer "+token)
}

// BasicHeader returns the Authorization value for HTTP Basic credentials.
func BasicHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

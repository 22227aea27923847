package auth

import (
	"fmt"
	"sort"
	"strings"
)

// ToMap encodes d as a plain map keyed in camelCase with a `type`
// discriminator. Secret fields are written only when includeSecrets is set.
func ToMap(d Descriptor, includeSecrets bool) map[string]any {
	e := &encoder{secrets: includeSecrets, out: map[string]any{}}
	OrNone(d).Accept(e)
	return e.out
}

type encoder struct {
	secrets bool
	out     map[string]any
}

func (e *encoder) secret(key, value string) {
	if e.secrets && value != "" {
		e.out[key] = value
	}
}

func (e *encoder) VisitNone(None) {
	e.out["type"] = KindNone
}

func (e *encoder) VisitAPIKey(d APIKey) {
	e.out["type"] = KindAPIKey
	e.out["name"] = d.Name
	e.out["in"] = string(d.Location)
	e.secret("value", d.Value)
}

func (e *encoder) VisitHTTPBasic(d HTTPBasic) {
	e.out["type"] = KindHTTPBasic
	if d.Username != "" {
		e.out["username"] = d.Username
	}
	e.secret("password", d.Password)
}

func (e *encoder) VisitHTTPBearer(d HTTPBearer) {
	e.out["type"] = KindHTTPBearer
	e.secret("token", d.Token)
	if d.BearerFormat != "" {
		e.out["bearerFormat"] = d.BearerFormat
	}
	if d.AutoUpdate {
		e.out["autoUpdate"] = true
	}
	if d.TokenPath != "" {
		e.out["tokenPath"] = d.TokenPath
	}
}

func (e *encoder) VisitOAuth2(d OAuth2) {
	e.out["type"] = KindOAuth2
	e.out["flow"] = d.Flow
	for key, value := range map[string]string{
		"authUrl":    d.AuthURL,
		"tokenUrl":   d.TokenURL,
		"refreshUrl": d.RefreshURL,
	} {
		if value != "" {
			e.out[key] = value
		}
	}
	if len(d.Scopes) > 0 {
		scopes := make([]any, 0, len(d.Scopes))
		for _, s := range d.Scopes {
			scopes = append(scopes, map[string]any{"name": s.Name, "description": s.Description})
		}
		e.out["scopes"] = scopes
	}
	e.secret("accessToken", d.AccessToken)
}

func (e *encoder) VisitOpenIDConnect(d OpenIDConnect) {
	e.out["type"] = KindOpenIDConnect
	e.out["url"] = d.URL
	e.secret("accessToken", d.AccessToken)
}

// FromMap decodes a map produced by ToMap. Missing fields take their zero
// value; an unknown or missing type is an error.
func FromMap(m map[string]any) (Descriptor, error) {
	kind := str(m, "type")
	switch kind {
	case KindNone, "":
		if kind == "" && len(m) > 0 {
			return None{}, fmt.Errorf("auth: missing type")
		}
		return None{}, nil
	case KindAPIKey:
		return APIKey{
			Name:     str(m, "name"),
			Location: ParseLocation(str(m, "in")),
			Value:    str(m, "value"),
		}, nil
	case KindHTTPBasic:
		return HTTPBasic{Username: str(m, "username"), Password: str(m, "password")}, nil
	case KindHTTPBearer:
		auto, _ := m["autoUpdate"].(bool)
		return HTTPBearer{
			Token:        str(m, "token"),
			BearerFormat: str(m, "bearerFormat"),
			AutoUpdate:   auto,
			TokenPath:    str(m, "tokenPath"),
		}, nil
	case KindOAuth2:
		return OAuth2{
			Flow:        str(m, "flow"),
			AuthURL:     str(m, "authUrl"),
			TokenURL:    str(m, "tokenUrl"),
			RefreshURL:  str(m, "refreshUrl"),
			Scopes:      scopes(m["scopes"]),
			AccessToken: str(m, "accessToken"),
		}, nil
	case KindOpenIDConnect:
		return OpenIDConnect{URL: str(m, "url"), AccessToken: str(m, "accessToken")}, nil
	default:
		return None{}, fmt.Errorf("auth: unknown type %q", kind)
	}
}

func str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// scopes accepts either a list of {name, description} or an OpenAPI style
// name → description map.
func scopes(v any) []Scope {
	var out []Scope
	switch list := v.(type) {
	case []any:
		for _, item := range list {
			switch s := item.(type) {
			case map[string]any:
				if name := strings.TrimSpace(str(s, "name")); name != "" {
					out = append(out, Scope{Name: name, Description: str(s, "description")})
				}
			case string:
				out = append(out, Scope{Name: s})
			}
		}
	case map[string]any:
		names := make([]string, 0, len(list))
		for name := range list {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, Scope{Name: name, Description: str(list, name)})
		}
	}
	return out
}

// ScopesFromMap converts an OpenAPI scopes object into a sorted scope list.
func ScopesFromMap(m map[string]any) []Scope {
	return scopes(m)
}

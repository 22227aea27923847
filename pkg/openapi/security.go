package openapi

import (
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/blackcoderx/reqtree/pkg/auth"
)

// descriptorFromScheme maps a securitySchemes entry to an auth descriptor.
// OpenAPI's bearerFormat is a documentation hint, not an Authorization
// prefix, so it is not carried over; x-reqtree-auth preserves the prefix.
func descriptorFromScheme(scheme map[string]any) (auth.Descriptor, bool) {
	switch strings.ToLower(stringOf(scheme["type"])) {
	case "apikey":
		return auth.APIKey{
			Name:     stringOf(scheme["name"]),
			Location: auth.ParseLocation(stringOf(scheme["in"])),
		}, true
	case "http":
		switch strings.ToLower(stringOf(scheme["scheme"])) {
		case "basic":
			return auth.HTTPBasic{}, true
		case "bearer":
			return auth.HTTPBearer{}, true
		}
	case "oauth2":
		return oauth2FromFlows(mapOf(scheme["flows"])), true
	case "openidconnect":
		return auth.OpenIDConnect{URL: stringOf(scheme["openIdConnectUrl"])}, true
	}
	return auth.None{}, false
}

// oauth2FromFlows picks the first declared flow, preferring the ones that can
// run without a browser.
func oauth2FromFlows(flows map[string]any) auth.OAuth2 {
	for _, name := range []string{auth.FlowClientCredentials, auth.FlowPassword, auth.FlowAuthorizationCode, auth.FlowImplicit} {
		flow := mapOf(flows[name])
		if flow == nil {
			continue
		}
		return auth.OAuth2{
			Flow:       name,
			AuthURL:    stringOf(flow["authorizationUrl"]),
			TokenURL:   stringOf(flow["tokenUrl"]),
			RefreshURL: stringOf(flow["refreshUrl"]),
			Scopes:     auth.ScopesFromMap(mapOf(flow["scopes"])),
		}
	}
	return auth.OAuth2{}
}

// defaultAuth derives the document-wide auth from the first top-level
// security requirement. Requirement objects are unordered, so when one names
// several schemes the lexicographically first is used.
func (r resolver) defaultAuth() auth.Descriptor {
	requirements := listOf(r.root["security"])
	if len(requirements) == 0 {
		return auth.None{}
	}
	first := mapOf(requirements[0])
	if len(first) == 0 {
		return auth.None{}
	}
	name := sortedKeys(first)[0]
	schemes := mapOf(mapOf(r.root["components"])["securitySchemes"])
	scheme := r.resolveMap(schemes[name])
	if scheme == nil {
		return auth.None{}
	}
	d, _ := descriptorFromScheme(scheme)
	return d
}

// schemeBuilder maps a descriptor to its securitySchemes entry and base name.
type schemeBuilder struct {
	name   string
	scheme SecurityScheme
	scopes []string
	ok     bool
}

func (b *schemeBuilder) VisitNone(auth.None) {}

func (b *schemeBuilder) VisitAPIKey(d auth.APIKey) {
	b.name, b.ok = "apiKeyAuth", true
	b.scheme = SecurityScheme{Type: "apiKey", Name: d.Name, In: string(d.Location)}
	if b.scheme.In == "" {
		b.scheme.In = string(auth.InHeader)
	}
}

func (b *schemeBuilder) VisitHTTPBasic(auth.HTTPBasic) {
	b.name, b.ok = "basicAuth", true
	b.scheme = SecurityScheme{Type: "http", Scheme: "basic"}
}

func (b *schemeBuilder) VisitHTTPBearer(d auth.HTTPBearer) {
	b.name, b.ok = "bearerAuth", true
	b.scheme = SecurityScheme{Type: "http", Scheme: "bearer"}
	if format := strings.TrimSpace(d.BearerFormat); format != "" && !strings.EqualFold(format, "bearer") {
		b.scheme.BearerFormat = format
	}
}

func (b *schemeBuilder) VisitOAuth2(d auth.OAuth2) {
	b.name, b.ok = "oauth2Auth", true
	flow := &OAuthFlow{
		AuthorizationURL: d.AuthURL,
		TokenURL:         d.TokenURL,
		RefreshURL:       d.RefreshURL,
		Scopes:           map[string]string{},
	}
	for _, s := range d.Scopes {
		flow.Scopes[s.Name] = s.Description
	}
	flows := &OAuthFlows{}
	switch d.Flow {
	case auth.FlowPassword:
		flow.AuthorizationURL = ""
		flows.Password = flow
	case auth.FlowAuthorizationCode:
		flows.AuthorizationCode = flow
	case auth.FlowImplicit:
		flow.TokenURL = ""
		flows.Implicit = flow
	default:
		flow.AuthorizationURL = ""
		flows.ClientCredentials = flow
	}
	b.scheme = SecurityScheme{Type: "oauth2", Flows: flows}
	b.scopes = d.ScopeNames()
}

func (b *schemeBuilder) VisitOpenIDConnect(d auth.OpenIDConnect) {
	b.name, b.ok = "openIdConnectAuth", true
	b.scheme = SecurityScheme{Type: "openIdConnect", OpenIDConnectURL: d.URL}
}

// schemeSet collects distinct security schemes under stable names.
type schemeSet struct {
	names   []string
	schemes map[string]SecurityScheme
	scopes  map[string][]string
	counts  map[string]int
}

func newSchemeSet() *schemeSet {
	return &schemeSet{
		schemes: map[string]SecurityScheme{},
		scopes:  map[string][]string{},
		counts:  map[string]int{},
	}
}

// add registers the scheme for d, reusing the name of a structurally equal
// scheme. Structurally different schemes of one kind get numeric suffixes.
func (s *schemeSet) add(d auth.Descriptor) {
	b := &schemeBuilder{}
	auth.OrNone(d).Accept(b)
	if !b.ok {
		return
	}
	for _, name := range s.names {
		if reflect.DeepEqual(s.schemes[name], b.scheme) {
			return
		}
	}
	s.counts[b.name]++
	name := b.name
	if n := s.counts[b.name]; n > 1 {
		name += strconv.Itoa(n)
	}
	s.names = append(s.names, name)
	s.schemes[name] = b.scheme
	s.scopes[name] = b.scopes
}

// requirement returns the top-level security requirement, set only when
// exactly one distinct scheme exists.
func (s *schemeSet) requirement() []map[string][]string {
	if len(s.names) != 1 {
		return nil
	}
	name := s.names[0]
	scopes := append([]string{}, s.scopes[name]...)
	sort.Strings(scopes)
	return []map[string][]string{{name: scopes}}
}

func (s *schemeSet) components() *Components {
	if len(s.names) == 0 {
		return nil
	}
	return &Components{SecuritySchemes: s.schemes}
}

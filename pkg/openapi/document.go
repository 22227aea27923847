package openapi

// Document is the subset of an OpenAPI 3.0 document the exporter writes.
// Field order here is the key order in the YAML output.
type Document struct {
	OpenAPI    string                `yaml:"openapi"`
	Info       Info                  `yaml:"info"`
	Servers    []Server              `yaml:"servers,omitempty"`
	Tags       []Tag                 `yaml:"tags,omitempty"`
	Security   []map[string][]string `yaml:"security,omitempty"`
	Paths      map[string]*PathItem  `yaml:"paths"`
	Components *Components           `yaml:"components,omitempty"`
}

type Info struct {
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

// Server is a server object; Auth carries the full descriptor under the
// x-reqtree-auth extension.
type Server struct {
	URL  string         `yaml:"url"`
	Auth map[string]any `yaml:"x-reqtree-auth,omitempty"`
}

type Tag struct {
	Name string `yaml:"name"`
}

// PathItem holds one operation per method, in OpenAPI order.
type PathItem struct {
	Get     *Operation `yaml:"get,omitempty"`
	Post    *Operation `yaml:"post,omitempty"`
	Put     *Operation `yaml:"put,omitempty"`
	Patch   *Operation `yaml:"patch,omitempty"`
	Delete  *Operation `yaml:"delete,omitempty"`
	Options *Operation `yaml:"options,omitempty"`
	Head    *Operation `yaml:"head,omitempty"`
	Trace   *Operation `yaml:"trace,omitempty"`
}

type Operation struct {
	Tags        []string            `yaml:"tags,omitempty"`
	Summary     string              `yaml:"summary,omitempty"`
	Parameters  []Parameter         `yaml:"parameters,omitempty"`
	RequestBody *RequestBody        `yaml:"requestBody,omitempty"`
	Responses   map[string]Response `yaml:"responses"`
}

type Parameter struct {
	Name     string         `yaml:"name"`
	In       string         `yaml:"in"`
	Required bool           `yaml:"required,omitempty"`
	Schema   map[string]any `yaml:"schema"`
	Example  any            `yaml:"example,omitempty"`
}

type RequestBody struct {
	Content map[string]MediaType `yaml:"content"`
}

type MediaType struct {
	Schema  map[string]any `yaml:"schema,omitempty"`
	Example any            `yaml:"example,omitempty"`
}

type Response struct {
	Description string `yaml:"description"`
}

type Components struct {
	SecuritySchemes map[string]SecurityScheme `yaml:"securitySchemes,omitempty"`
}

type SecurityScheme struct {
	Type             string      `yaml:"type"`
	Name             string      `yaml:"name,omitempty"`
	In               string      `yaml:"in,omitempty"`
	Scheme           string      `yaml:"scheme,omitempty"`
	BearerFormat     string      `yaml:"bearerFormat,omitempty"`
	Flows            *OAuthFlows `yaml:"flows,omitempty"`
	OpenIDConnectURL string      `yaml:"openIdConnectUrl,omitempty"`
}

type OAuthFlows struct {
	Implicit          *OAuthFlow `yaml:"implicit,omitempty"`
	Password          *OAuthFlow `yaml:"password,omitempty"`
	ClientCredentials *OAuthFlow `yaml:"clientCredentials,omitempty"`
	AuthorizationCode *OAuthFlow `yaml:"authorizationCode,omitempty"`
}

type OAuthFlow struct {
	AuthorizationURL string            `yaml:"authorizationUrl,omitempty"`
	TokenURL         string            `yaml:"tokenUrl,omitempty"`
	RefreshURL       string            `yaml:"refreshUrl,omitempty"`
	Scopes           map[string]string `yaml:"scopes"`
}

// operation returns the slot for method in p.
func (p *PathItem) operation(method string) **Operation {
	switch method {
	case "get":
		return &p.Get
	case "post":
		return &p.Post
	case "put":
		return &p.Put
	case "patch":
		return &p.Patch
	case "delete":
		return &p.Delete
	case "options":
		return &p.Options
	case "head":
		return &p.Head
	case "trace":
		return &p.Trace
	default:
		return nil
	}
}

package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTarget records what Apply writes.
type fakeTarget struct {
	headers [][2]string
	query   [][2]string
}

func (f *fakeTarget) Header(key string) (string, bool) {
	for _, h := range f.headers {
		if strings.EqualFold(h[0], key) {
			return h[1], true
		}
	}
	return "", false
}

func (f *fakeTarget) SetHeader(key, value string) {
	for i, h := range f.headers {
		if strings.EqualFold(h[0], key) {
			f.headers[i][1] = value
			return
		}
	}
	f.headers = append(f.headers, [2]string{key, value})
}

func (f *fakeTarget) AppendQuery(key, value string) {
	f.query = append(f.query, [2]string{key, value})
}

func TestApply(t *testing.T) {
	tests := []struct {
		name        string
		descriptor  Descriptor
		preset      [][2]string
		wantHeaders [][2]string
		wantQuery   [][2]string
	}{
		{name: "none", descriptor: None{}},
		{name: "nil descriptor", descriptor: nil},
		{
			name:        "api key header",
			descriptor:  APIKey{Name: "X-Key", Location: InHeader, Value: "abc"},
			wantHeaders: [][2]string{{"X-Key", "abc"}},
		},
		{
			name:       "api key query",
			descriptor: APIKey{Name: "X-Key", Location: InQuery, Value: "abc"},
			wantQuery:  [][2]string{{"X-Key", "abc"}},
		},
		{
			name:        "api key cookie new",
			descriptor:  APIKey{Name: "sid", Location: InCookie, Value: "1"},
			wantHeaders: [][2]string{{"Cookie", "sid=1"}},
		},
		{
			name:        "api key cookie merge",
			descriptor:  APIKey{Name: "sid", Location: InCookie, Value: "1"},
			preset:      [][2]string{{"cookie", "theme=dark"}},
			wantHeaders: [][2]string{{"cookie", "theme=dark; sid=1"}},
		},
		{
			name:       "api key without name",
			descriptor: APIKey{Name: "  ", Value: "abc"},
		},
		{
			name:       "api key without value",
			descriptor: APIKey{Name: "X-Key", Location: InQuery, Value: " "},
		},
		{
			name:        "basic without credentials",
			descriptor:  HTTPBasic{},
			wantHeaders: [][2]string{{"Authorization", "Basic Og=="}},
		},
		{
			name:        "basic",
			descriptor:  HTTPBasic{Username: "user", Password: "pass"},
			wantHeaders: [][2]string{{"Authorization", "Basic dXNlcjpwYXNz"}},
		},
		{
			name:        "bearer default format",
			descriptor:  HTTPBearer{Token: "t1"},
			wantHeaders: [][2]string{{"Authorization", "Bearer t1"}},
		},
		{
			name:        "bearer custom format",
			descriptor:  HTTPBearer{Token: "t1", BearerFormat: "Token"},
			wantHeaders: [][2]string{{"Authorization", "Token t1"}},
		},
		{
			name:       "bearer blank token",
			descriptor: HTTPBearer{Token: " "},
		},
		{
			name:        "oauth2",
			descriptor:  OAuth2{AccessToken: "at"},
			wantHeaders: [][2]string{{"Authorization", "Bearer at"}},
		},
		{
			name:        "openid connect",
			descriptor:  OpenIDConnect{URL: "https://id.test", AccessToken: "oidc"},
			wantHeaders: [][2]string{{"Authorization", "Bearer oidc"}},
		},
		{
			name:       "openid connect without token",
			descriptor: OpenIDConnect{URL: "https://id.test"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &fakeTarget{headers: tt.preset}
			Apply(tt.descriptor, target)
			assert.Equal(t, tt.wantHeaders, target.headers)
			assert.Equal(t, tt.wantQuery, target.query)
		})
	}
}

func TestMapCodecRoundTrip(t *testing.T) {
	descriptors := []Descriptor{
		None{},
		APIKey{Name: "X-Key", Location: InCookie, Value: "v"},
		HTTPBasic{Username: "u", Password: "p"},
		HTTPBearer{Token: "t", BearerFormat: "JWT", AutoUpdate: true, TokenPath: "$.data.token"},
		OAuth2{
			Flow:        FlowClientCredentials,
			TokenURL:    "https://auth.test/token",
			RefreshURL:  "https://auth.test/refresh",
			Scopes:      []Scope{{Name: "read", Description: "Read"}, {Name: "write"}},
			AccessToken: "at",
		},
		OpenIDConnect{URL: "https://id.test/.well-known/openid-configuration", AccessToken: "x"},
	}

	for _, d := range descriptors {
		t.Run(KindOf(d), func(t *testing.T) {
			got, err := FromMap(ToMap(d, true))
			require.NoError(t, err)
			assert.Equal(t, d, got)
		})
	}
}

func TestToMapOmitsSecrets(t *testing.T) {
	m := ToMap(HTTPBearer{Token: "secret", AutoUpdate: true, TokenPath: "token"}, false)
	assert.NotContains(t, m, "token")
	assert.Equal(t, true, m["autoUpdate"])

	m = ToMap(APIKey{Name: "k", Location: InQuery, Value: "secret"}, false)
	assert.NotContains(t, m, "value")
	assert.Equal(t, "query", m["in"])
}

func TestFromMapErrors(t *testing.T) {
	_, err := FromMap(map[string]any{"type": "kerberos"})
	assert.Error(t, err)

	_, err = FromMap(map[string]any{"name": "X"})
	assert.Error(t, err)

	d, err := FromMap(nil)
	require.NoError(t, err)
	assert.True(t, IsNone(d))
}

func TestScopesFromOpenAPIMap(t *testing.T) {
	scopes := ScopesFromMap(map[string]any{"write": "Write", "read": "Read"})
	assert.Equal(t, []Scope{{Name: "read", Description: "Read"}, {Name: "write", Description: "Write"}}, scopes)
}

func TestInspectToken(t *testing.T) {
	enc := base64.RawURLEncoding.EncodeToString
	token := enc([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." +
		enc([]byte(`{"sub":"user-1","exp":1700000000,"iat":1600000000}`)) + ".sig"

	info, err := InspectToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "HS256", info.Header["alg"])
	assert.Equal(t, "user-1", info.Subject)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), info.ExpiresAt)
	assert.True(t, info.Expired(time.Unix(1800000000, 0)))
	assert.False(t, info.Expired(time.Unix(1650000000, 0)))

	_, err = InspectToken("not-a-jwt")
	assert.ErrorContains(t, err, "expected 3 parts")
	_, err = InspectToken("")
	assert.Error(t, err)
}

func TestDescriptorToken(t *testing.T) {
	assert.Equal(t, "t", DescriptorToken(HTTPBearer{Token: "t"}))
	assert.Equal(t, "at", DescriptorToken(OAuth2{AccessToken: "at"}))
	assert.Equal(t, "", DescriptorToken(HTTPBasic{Username: "u"}))
	assert.Equal(t, "", DescriptorToken(nil))
}

func TestFetchTokenClientCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "read write", r.PostForm.Get("scope"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","token_type":"bearer","expires_in":3600}`))
	}))
	defer server.Close()

	d := OAuth2{
		Flow:     FlowClientCredentials,
		TokenURL: server.URL,
		Scopes:   []Scope{{Name: "read"}, {Name: "write"}},
	}
	got, err := FetchToken(context.Background(), d, Credentials{ClientID: "id", ClientSecret: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.AccessToken)
	assert.Equal(t, "", d.AccessToken)
}

func TestFetchTokenRejectsUnsupportedFlows(t *testing.T) {
	creds := Credentials{ClientID: "id"}
	_, err := FetchToken(context.Background(), OAuth2{Flow: FlowImplicit, TokenURL: "https://x"}, creds)
	assert.ErrorContains(t, err, "browser")

	_, err = FetchToken(context.Background(), OAuth2{Flow: FlowClientCredentials}, creds)
	assert.ErrorContains(t, err, "token URL")

	_, err = FetchToken(context.Background(), OAuth2{Flow: FlowPassword, TokenURL: "https://x"}, creds)
	assert.ErrorContains(t, err, "username")
}

func TestVariantAccessors(t *testing.T) {
	bearer, ok := AutoRefreshing(HTTPBearer{Token: "t", AutoUpdate: true, TokenPath: "$.token"})
	assert.True(t, ok)
	assert.Equal(t, "t", bearer.Token)

	_, ok = AutoRefreshing(HTTPBearer{Token: "t", AutoUpdate: true})
	assert.False(t, ok, "a blank token path disables refresh")
	_, ok = AutoRefreshing(nil)
	assert.False(t, ok)

	o, ok := AsOAuth2(OAuth2{Flow: FlowPassword, TokenURL: "https://id.test/token"})
	assert.True(t, ok)
	assert.Equal(t, FlowPassword, o.Flow)
	_, ok = AsOAuth2(OpenIDConnect{AccessToken: "x"})
	assert.False(t, ok)
}

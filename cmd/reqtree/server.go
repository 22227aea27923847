package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackcoderx/reqtree/pkg/auth"
	"github.com/blackcoderx/reqtree/pkg/cli"
	"github.com/blackcoderx/reqtree/pkg/request"
	"github.com/blackcoderx/reqtree/pkg/workspace"
)

func newServerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage the servers requests are sent to",
	}
	cmd.AddCommand(
		newServerLsCmd(a),
		newServerAddCmd(a),
		newServerRmCmd(a),
		newServerAuthCmd(a),
		newServerTokenCmd(a),
		newServerInspectCmd(a),
	)
	return cmd
}

func serverArg(w *workspace.Workspace, arg string) (int, *request.Server, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, nil, fmt.Errorf("server index %q is not a number", arg)
	}
	s, ok := w.Server(i)
	if !ok {
		return 0, nil, fmt.Errorf("no server at index %d (have %d)", i, len(w.Servers))
	}
	return i, s, nil
}

func newServerLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.load()
			if err != nil {
				return err
			}
			a.printf("%s", cli.RenderServers(w.Servers))
			return nil
		},
	}
}

func newServerAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <base-url>",
		Short: "Add a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(func(w *workspace.Workspace) error {
				i := w.AddServer(request.Server{BaseURL: strings.TrimSpace(args[0])})
				a.printf("%s %s\n", cli.PathStyle.Render(fmt.Sprintf("[%d]", i)), args[0])
				return nil
			})
		},
	}
}

func newServerRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <index>",
		Short: "Remove a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(func(w *workspace.Workspace) error {
				i, _, err := serverArg(w, args[0])
				if err != nil {
					return err
				}
				w.RemoveServer(i)
				return nil
			})
		},
	}
}

// authFlags collects `server auth` flags into the map form auth.FromMap reads.
type authFlags struct {
	kind       string
	name       string
	in         string
	value      string
	username   string
	password   string
	token      string
	format     string
	autoUpdate bool
	tokenPath  string
	flow       string
	authURL    string
	tokenURL   string
	refreshURL string
	scopes     []string
	url        string
}

func (f *authFlags) descriptor() (auth.Descriptor, error) {
	m := map[string]any{"type": f.kind}
	set := func(key, value string) {
		if value != "" {
			m[key] = value
		}
	}
	switch f.kind {
	case auth.KindAPIKey:
		set("name", f.name)
		set("in", f.in)
		set("value", f.value)
	case auth.KindHTTPBasic:
		set("username", f.username)
		set("password", f.password)
	case auth.KindHTTPBearer:
		set("token", f.token)
		set("bearerFormat", f.format)
		set("tokenPath", f.tokenPath)
		m["autoUpdate"] = f.autoUpdate
	case auth.KindOAuth2:
		set("flow", f.flow)
		set("authUrl", f.authURL)
		set("tokenUrl", f.tokenURL)
		set("refreshUrl", f.refreshURL)
		set("accessToken", f.token)
		scopes := make([]any, 0, len(f.scopes))
		for _, s := range f.scopes {
			scopes = append(scopes, s)
		}
		m["scopes"] = scopes
	case auth.KindOpenIDConnect:
		set("url", f.url)
		set("accessToken", f.token)
	}
	return auth.FromMap(m)
}

func newServerAuthCmd(a *app) *cobra.Command {
	f := &authFlags{}
	cmd := &cobra.Command{
		Use:   "auth <index>",
		Short: "Set the auth scheme of a server",
		Long: `Set the auth scheme of a server. --type is one of none, api_key,
http_basic, http_bearer, oauth2 or openid_connect; the other flags apply to
the scheme that uses them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := f.descriptor()
			if err != nil {
				return err
			}
			return a.edit(func(w *workspace.Workspace) error {
				i, _, err := serverArg(w, args[0])
				if err != nil {
					return err
				}
				w.UpdateServerAuth(i, d)
				a.printf("%s server %d uses %s\n", cli.OKStyle.Render("✓"), i, auth.KindOf(d))
				return nil
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.kind, "type", "t", auth.KindNone, "auth scheme")
	fl.StringVar(&f.name, "name", "", "api_key: header, query or cookie name")
	fl.StringVar(&f.in, "in", "header", "api_key: header, query or cookie")
	fl.StringVar(&f.value, "value", "", "api_key: key value")
	fl.StringVar(&f.username, "username", "", "http_basic: username")
	fl.StringVar(&f.password, "password", "", "http_basic: password")
	fl.StringVar(&f.token, "token", "", "http_bearer, oauth2, openid_connect: token")
	fl.StringVar(&f.format, "bearer-format", "", "http_bearer: Authorization prefix (default Bearer)")
	fl.BoolVar(&f.autoUpdate, "auto-update", false, "http_bearer: replace the token from response bodies")
	fl.StringVar(&f.tokenPath, "token-path", "", "http_bearer: JSON path of the token in responses, e.g. $.data.token")
	fl.StringVar(&f.flow, "flow", auth.FlowClientCredentials, "oauth2: flow")
	fl.StringVar(&f.authURL, "auth-url", "", "oauth2: authorization URL")
	fl.StringVar(&f.tokenURL, "token-url", "", "oauth2: token URL")
	fl.StringVar(&f.refreshURL, "refresh-url", "", "oauth2: refresh URL")
	fl.StringSliceVar(&f.scopes, "scope", nil, "oauth2: scope (repeatable)")
	fl.StringVar(&f.url, "openid-url", "", "openid_connect: discovery URL")
	return cmd
}

func newServerTokenCmd(a *app) *cobra.Command {
	var creds auth.Credentials
	cmd := &cobra.Command{
		Use:   "token <index>",
		Short: "Fetch an OAuth2 access token for a server",
		Long: `Run the client credentials or password grant of an oauth2 server and
store the access token. Missing secrets are read from REQTREE_CLIENT_SECRET and
REQTREE_PASSWORD, then asked for.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.ClientSecret == "" {
				creds.ClientSecret = os.Getenv("REQTREE_CLIENT_SECRET")
			}
			if creds.Password == "" {
				creds.Password = os.Getenv("REQTREE_PASSWORD")
			}
			return a.edit(func(w *workspace.Workspace) error {
				i, s, err := serverArg(w, args[0])
				if err != nil {
					return err
				}
				if d, ok := auth.AsOAuth2(s.Auth); ok {
					if creds.ClientSecret == "" {
						if creds.ClientSecret, err = a.prompt.Secret("Client secret"); err != nil {
							return err
						}
					}
					if d.Flow == auth.FlowPassword && creds.Password == "" {
						if creds.Password, err = a.prompt.Secret("Password for " + creds.Username); err != nil {
							return err
						}
					}
				}
				if err := w.FetchServerToken(cmd.Context(), i, creds); err != nil {
					return err
				}
				a.printf("%s token stored for server %d\n", cli.OKStyle.Render("✓"), i)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&creds.ClientID, "client-id", "", "OAuth2 client ID")
	cmd.Flags().StringVar(&creds.ClientSecret, "client-secret", "", "OAuth2 client secret")
	cmd.Flags().StringVar(&creds.Username, "username", "", "password flow: username")
	cmd.Flags().StringVar(&creds.Password, "password", "", "password flow: password")
	return cmd
}

func newServerInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <index>",
		Short: "Decode the JWT a server sends (signature not verified)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.load()
			if err != nil {
				return err
			}
			_, s, err := serverArg(w, args[0])
			if err != nil {
				return err
			}
			info, err := auth.InspectToken(auth.DescriptorToken(s.Auth))
			if err != nil {
				return err
			}

			if info.Subject != "" {
				a.printf("subject: %s\n", info.Subject)
			}
			if !info.IssuedAt.IsZero() {
				a.printf("issued:  %s\n", info.IssuedAt.Format(time.RFC3339))
			}
			if !info.ExpiresAt.IsZero() {
				state := cli.OKStyle.Render("valid")
				if info.Expired(time.Now()) {
					state = cli.ErrorStyle.Render("expired")
				}
				a.printf("expires: %s (%s)\n", info.ExpiresAt.Format(time.RFC3339), state)
			}
			keys := make([]string, 0, len(info.Claims))
			for k := range info.Claims {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				a.printf("  %s: %v\n", k, info.Claims[k])
			}
			return nil
		},
	}
}

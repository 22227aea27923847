package workspace

import (
	"context"
	"fmt"

	"github.com/blackcoderx/reqtree/pkg/apperr"
	"github.com/blackcoderx/reqtree/pkg/auth"
)

// FetchServerToken runs the OAuth2 grant of the server at i and stores the
// access token on its descriptor.
func (w *Workspace) FetchServerToken(ctx context.Context, i int, creds auth.Credentials) error {
	s, ok := w.Server(i)
	if !ok {
		return apperr.RequestBuild("token", apperr.ErrNoSuchServer, "%d", i)
	}
	d, ok := auth.AsOAuth2(s.Auth)
	if !ok {
		return fmt.Errorf("server %d uses %s auth, not oauth2", i, auth.KindOf(s.Auth))
	}
	d, err := auth.FetchToken(ctx, d, creds)
	if err != nil {
		return apperr.Transport("token", err, "")
	}
	s.Auth = d
	w.log().Info("oauth2 token stored", "server", s.BaseURL, "flow", d.Flow)
	return nil
}

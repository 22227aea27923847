package compiler

import (
	"context"
	"log/slog"
	"time"

	"github.com/blackcoderx/reqtree/pkg/apperr"
	"github.com/blackcoderx/reqtree/pkg/request"
)

// Transport sends a compiled request. A non-nil error means no HTTP response
// was received; non-2xx statuses are responses, not errors.
type Transport interface {
	Send(ctx context.Context, req *Request) (*request.Response, error)
}

// Execute compiles content against server, sends it, and refreshes the
// server's bearer token from the response body when auto-update is on.
//
// A build error is returned without any network call. A transport error is
// returned together with a failure response (status 0, not OK) carrying the
// error text, so callers can store it like any other response.
func Execute(ctx context.Context, t Transport, content *request.Content, server *request.Server) (*request.Response, error) {
	req, err := Compile(content, server)
	if err != nil {
		return nil, err
	}

	slog.Debug("sending request", "method", req.Method, "url", req.URL)
	start := time.Now()
	resp, err := t.Send(ctx, req)
	if err != nil {
		if apperr.KindOf(err) == 0 {
			err = apperr.Transport("send", err, "")
		}
		slog.Warn("request failed", "method", req.Method, "url", req.URL, "error", err)
		return &request.Response{
			URL:      req.URL,
			Data:     err.Error(),
			Request:  req.Echo(),
			Duration: time.Since(start),
		}, err
	}

	if resp.Request == nil {
		resp.Request = req.Echo()
	}
	if resp.URL == "" {
		resp.URL = req.URL
	}
	if resp.Duration == 0 {
		resp.Duration = time.Since(start)
	}
	slog.Debug("response received", "status", resp.Status, "duration", resp.Duration)

	if server != nil {
		if token, ok := RefreshBearer(server, resp.Data); ok {
			slog.Info("bearer token refreshed from response", "length", len(token))
		}
	}
	return resp, nil
}

// Package transport sends compiled requests over net/http.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/blackcoderx/reqtree/pkg/apperr"
	"github.com/blackcoderx/reqtree/pkg/compiler"
	"github.com/blackcoderx/reqtree/pkg/request"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// HTTP is a compiler.Transport backed by an http.Client.
type HTTP struct {
	client *http.Client
}

var _ compiler.Transport = (*HTTP)(nil)

// NewHTTP creates a transport with the given per-request timeout.
// A zero timeout uses DefaultTimeout.
func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewHTTPWithClient wraps an existing client, e.g. one from httptest.
func NewHTTPWithClient(client *http.Client) *HTTP {
	return &HTTP{client: client}
}

// Send performs the request. Any received response, whatever its status, is
// returned without error.
func (t *HTTP) Send(ctx context.Context, req *compiler.Request) (*request.Response, error) {
	startTime := time.Now()

	var bodyReader io.Reader
	if req.Body != nil {
		bodyReader = bytes.NewBufferString(*req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, bodyReader)
	if err != nil {
		return nil, apperr.RequestBuild("send", err, "failed to create request")
	}
	for _, h := range req.Headers {
		httpReq.Header.Set(h.Key, h.Value)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classify(err, t.client.Timeout)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, apperr.Transport("send", err, "failed to read response")
	}

	headers := make(map[string]string, len(httpResp.Header))
	raw := make(map[string][]string, len(httpResp.Header))
	for key, values := range httpResp.Header {
		headers[key] = strings.Join(values, ", ")
		raw[key] = append([]string(nil), values...)
	}

	return &request.Response{
		URL:        req.URL,
		Status:     httpResp.StatusCode,
		OK:         httpResp.StatusCode >= 200 && httpResp.StatusCode < 300,
		Headers:    headers,
		RawHeaders: raw,
		Data:       string(bodyBytes),
		Request:    req.Echo(),
		Duration:   time.Since(startTime),
	}, nil
}

// classify maps a client error to a transport error with a short category.
func classify(err error, timeout time.Duration) error {
	var (
		netErr  net.Error
		dnsErr  *net.DNSError
		certErr *tls.CertificateVerificationError
		unknown x509.UnknownAuthorityError
		host    x509.HostnameError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return apperr.Transport("send", err, "request canceled")
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return apperr.Transport("send", err, "timed out after %s", timeout)
	case errors.As(err, &dnsErr):
		return apperr.Transport("send", err, "cannot resolve host %s", dnsErr.Name)
	case errors.Is(err, syscall.ECONNREFUSED):
		return apperr.Transport("send", err, "connection refused")
	case errors.Is(err, syscall.ECONNRESET):
		return apperr.Transport("send", err, "connection reset")
	case errors.As(err, &certErr), errors.As(err, &unknown), errors.As(err, &host):
		return apperr.Transport("send", err, "TLS verification failed")
	default:
		return apperr.Transport("send", err, "request failed")
	}
}

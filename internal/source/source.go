package source

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/estimatelens/estimatelens/internal/config"
	"github.com/estimatelens/estimatelens/pkg/types"
)

const defaultFetchTimeout = 30 * time.Second

// Source is the common interface implemented by every issue source.
type Source interface {
	ID() string
	Fetch(ctx context.Context) ([]types.RawIssue, error)
}

// New returns the appropriate Source for the given configuration.
// It builds the HTTP client once and reuses it across fetches.
func New(src config.Source) (Source, error) {
	switch src.Type {
	case "jira":
		client, err := buildHTTPClient(src)
		if err != nil {
			return nil, fmt.Errorf("source %q: build http client: %w", src.ID, err)
		}
		return &jiraSource{src: src, client: client}, nil
	case "file":
		return &fileSource{id: src.ID, path: src.Path}, nil
	default:
		return nil, fmt.Errorf("source: unsupported type %q", src.Type)
	}
}

// NewAll builds every configured source, failing on the first error.
func NewAll(srcs []config.Source) ([]Source, error) {
	out := make([]Source, 0, len(srcs))
	for _, s := range srcs {
		src, err := New(s)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.Header, t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the source's auth and TLS settings.
func buildHTTPClient(src config.Source) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: src.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}
	transport := &authRoundTripper{
		base: &http.Transport{TLSClientConfig: tlsCfg, Proxy: http.ProxyFromEnvironment},
		auth: src.Auth,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultFetchTimeout,
	}, nil
}

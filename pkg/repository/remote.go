package repository

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/libresolve/pkg/artifact"
	"github.com/matzehuels/libresolve/pkg/buildinfo"
	"github.com/matzehuels/libresolve/pkg/httputil"
	"github.com/matzehuels/libresolve/pkg/observability"
)

const httpTimeout = 60 * time.Second

// NewHTTPClient creates an HTTP client with a standard timeout for
// repository requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// Remote is an HTTP(S) repository in standard Maven layout.
type Remote struct {
	repo   artifact.Repository
	client *http.Client
	verify bool
}

// NewRemote creates a remote source for repo. When verify is set, the
// published .sha1 checksum of every file is fetched and compared.
// A nil client uses [NewHTTPClient].
func NewRemote(repo artifact.Repository, client *http.Client, verify bool) *Remote {
	if client == nil {
		client = NewHTTPClient()
	}
	return &Remote{repo: repo.Normalize(), client: client, verify: verify}
}

// URL returns the repository base URL.
func (r *Remote) URL() string { return r.repo.URL }

// Repository returns the repository definition.
func (r *Remote) Repository() artifact.Repository { return r.repo }

// Open downloads c. The returned body carries the Content-Length and, if
// checksum verification is enabled and the repository publishes one, the
// expected SHA-1.
func (r *Remote) Open(ctx context.Context, c artifact.Coordinate) (*Body, error) {
	target := r.repo.ArtifactURL(c)

	var sum string
	if r.verify {
		s, err := r.checksum(ctx, target)
		if err != nil {
			return nil, err
		}
		sum = s
	}

	resp, err := r.get(ctx, target)
	if err != nil {
		return nil, err
	}
	return &Body{ReadCloser: resp.Body, Size: resp.ContentLength, SHA1: sum}, nil
}

// checksum fetches target.sha1. A missing or malformed checksum file
// yields an empty digest.
func (r *Remote) checksum(ctx context.Context, target string) (string, error) {
	resp, err := r.get(ctx, target+".sha1")
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", httputil.Retryable(fmt.Errorf("%w: read checksum: %v", ErrNetwork, err))
	}
	return parseSHA1(string(data)), nil
}

// parseSHA1 extracts the digest from a .sha1 file. Some repositories
// append the file name after the digest.
func parseSHA1(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	sum := strings.ToLower(fields[0])
	if len(sum) != 40 {
		return ""
	}
	if _, err := hex.DecodeString(sum); err != nil {
		return ""
	}
	return sum
}

func (r *Remote) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	host, path := hostPath(target)
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := r.client.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, httputil.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", target, err)
	}
	return resp, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return ErrNotFound
	case code == http.StatusTooManyRequests || code >= 500:
		return httputil.Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

func hostPath(raw string) (string, string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", raw
	}
	return u.Host, u.Path
}

var _ Source = (*Remote)(nil)

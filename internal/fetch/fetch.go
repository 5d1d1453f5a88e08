// Package fetch provides data fetching operations;
// it opens message text and model artifacts from stdin, local files or http(s) URLs.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Size limits to prevent memory overload
const (
	MaxInputSizeBytes    = 10 * 1024 * 1024  // 10MB limit for a message to classify
	MaxArtifactSizeBytes = 512 * 1024 * 1024 // 512MB limit for a serialized model artifact
)

// HTTPRequestTimeout bounds a whole download, including the body.
const HTTPRequestTimeout = 60 * time.Second

// specific timeout thresholds (based on HTTPRequestTimeout)
var (
	HTTPDialTimeout           = HTTPRequestTimeout / 6 // max time to wait for network connection
	HTTPTLSTimeout            = HTTPRequestTimeout / 6 // max time to wait for TLS handshake
	HTTPResponseHeaderTimeout = HTTPRequestTimeout / 2 // max time for response headers
)

const userAgent = "spamsift/0.1"

// limitedReadCloser wraps an io.ReadCloser to enforce size limits
type limitedReadCloser struct {
	io.ReadCloser
	N      int64  // max bytes remaining
	source string // for error messages
}

func (l *limitedReadCloser) Read(p []byte) (n int, err error) {
	if l.N <= 0 {
		// a source that ends exactly at the limit is fine
		var probe [1]byte
		if m, _ := l.ReadCloser.Read(probe[:]); m == 0 {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("content from %q exceeds size limit", l.source)
	}
	if int64(len(p)) > l.N {
		p = p[0:l.N]
	}
	n, err = l.ReadCloser.Read(p)
	l.N -= int64(n)
	return
}

// httpClient is a shared HTTP client with timeouts; safe for concurrent use.
var httpClient = &http.Client{
	Timeout: HTTPRequestTimeout,
	Transport: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: HTTPDialTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   HTTPTLSTimeout,
		ResponseHeaderTimeout: HTTPResponseHeaderTimeout,
	},
}

// IsURL reports whether source is fetched over HTTP.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// GetContent opens a source and returns an io.ReadCloser that fails once more than
// limit bytes have been read. It supports three kinds of sources:
//   - "-" reads from standard input
//   - URLs starting with "http://" or "https://" are fetched via HTTP GET
//   - everything else is treated as a local file path
//
// ctx allows for cancellation and timeout control of HTTP requests.
func GetContent(ctx context.Context, source string, limit int64) (io.ReadCloser, error) {
	switch {
	case source == "-":
		return &limitedReadCloser{
			ReadCloser: io.NopCloser(os.Stdin),
			N:          limit,
			source:     "stdin",
		}, nil
	case IsURL(source):
		return fetchURL(ctx, source, limit)
	default:
		return fetchFile(source, limit)
	}
}

// ReadAll reads a whole source into memory, enforcing limit.
func ReadAll(ctx context.Context, source string, limit int64) ([]byte, error) {
	rc, err := GetContent(ctx, source, limit)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", source, err)
	}

	slog.Debug("Source read", "source", source, "bytes", len(data))
	return data, nil
}

// fetchURL retrieves content from an HTTP or HTTPS URL.
func fetchURL(ctx context.Context, url string, limit int64) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for URL %q: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL %q: %w", url, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP request failed for URL %q: status %d %s", url, resp.StatusCode, resp.Status)
	}

	// reject oversized bodies early when the server announces the length
	if contentLength := resp.Header.Get("Content-Length"); contentLength != "" {
		if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil && size > limit {
			resp.Body.Close()
			return nil, fmt.Errorf("HTTP content too large (%d bytes > %d bytes limit)", size, limit)
		}
	}

	return &limitedReadCloser{
		ReadCloser: resp.Body,
		N:          limit,
		source:     url,
	}, nil
}

// fetchFile opens a local file for reading with better error messages
func fetchFile(path string, limit int64) (io.ReadCloser, error) {
	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file %q does not exist", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to access file %q: %w", path, err)
	}
	if fileInfo.IsDir() {
		return nil, fmt.Errorf("%q is a directory", path)
	}

	if fileInfo.Size() > limit {
		return nil, fmt.Errorf("file %q is too large (%d bytes > %d bytes limit)",
			path, fileInfo.Size(), limit)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", path, err)
	}

	return file, nil
}

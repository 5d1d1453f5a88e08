package fetch_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chriscorrea/spamsift/internal/fetch"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "message.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

func TestGetContent(t *testing.T) {
	tests := []struct {
		name        string
		setupFunc   func(t *testing.T) string
		limit       int64
		expectError bool
		expectData  string
	}{
		{
			name: "http URL success",
			setupFunc: func(t *testing.T) string {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					if got := r.Header.Get("User-Agent"); !strings.HasPrefix(got, "spamsift/") {
						t.Errorf("User-Agent = %q, want spamsift/*", got)
					}
					_, _ = w.Write([]byte("win a free cruise"))
				}))
				t.Cleanup(server.Close)
				return server.URL
			},
			limit:      fetch.MaxInputSizeBytes,
			expectData: "win a free cruise",
		},
		{
			name: "http URL with error status",
			setupFunc: func(t *testing.T) string {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusNotFound)
				}))
				t.Cleanup(server.Close)
				return server.URL
			},
			limit:       fetch.MaxInputSizeBytes,
			expectError: true,
		},
		{
			name: "http content length above limit",
			setupFunc: func(t *testing.T) string {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					_, _ = w.Write([]byte(strings.Repeat("x", 64)))
				}))
				t.Cleanup(server.Close)
				return server.URL
			},
			limit:       16,
			expectError: true,
		},
		{
			name: "local file success",
			setupFunc: func(t *testing.T) string {
				return writeTempFile(t, "see you at the meeting")
			},
			limit:      fetch.MaxInputSizeBytes,
			expectData: "see you at the meeting",
		},
		{
			name: "local file exactly at limit",
			setupFunc: func(t *testing.T) string {
				return writeTempFile(t, "12345678")
			},
			limit:      8,
			expectData: "12345678",
		},
		{
			name: "local file above limit",
			setupFunc: func(t *testing.T) string {
				return writeTempFile(t, "123456789")
			},
			limit:       8,
			expectError: true,
		},
		{
			name: "non-existent file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.txt")
			},
			limit:       fetch.MaxInputSizeBytes,
			expectError: true,
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
			limit:       fetch.MaxInputSizeBytes,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := tt.setupFunc(t)

			reader, err := fetch.GetContent(context.Background(), source, tt.limit)
			if tt.expectError {
				if err == nil {
					reader.Close()
					t.Errorf("GetContent() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("GetContent() error = %v, expected no error", err)
			}
			defer reader.Close()

			data, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("Failed to read from reader: %v", err)
			}
			if string(data) != tt.expectData {
				t.Errorf("GetContent() data = %q, expected %q", string(data), tt.expectData)
			}
		})
	}
}

func TestGetContentStdin(t *testing.T) {
	reader, err := fetch.GetContent(context.Background(), "-", fetch.MaxInputSizeBytes)
	if err != nil {
		t.Fatalf("GetContent() error = %v, expected no error for stdin", err)
	}
	if reader == nil {
		t.Fatal("GetContent() for stdin should return a non-nil reader")
	}
	reader.Close()
}

func TestReadAllStreamAboveLimit(t *testing.T) {
	// no Content-Length: the limit is enforced while streaming
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		flusher, _ := w.(http.Flusher)
		for i := 0; i < 4; i++ {
			_, _ = w.Write([]byte(strings.Repeat("y", 16)))
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	defer server.Close()

	_, err := fetch.ReadAll(context.Background(), server.URL, 32)
	if err == nil || !strings.Contains(err.Error(), "exceeds size limit") {
		t.Errorf("ReadAll() error = %v, want size limit error", err)
	}
}

func TestIsURL(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{"http://example.com/model.json", true},
		{"https://example.com/model.json", true},
		{"models/vocabulary.json", false},
		{"-", false},
	}

	for _, tt := range tests {
		if got := fetch.IsURL(tt.source); got != tt.want {
			t.Errorf("IsURL(%q) = %v, want %v", tt.source, got, tt.want)
		}
	}
}

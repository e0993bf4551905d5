// Package fetch resolves byte source URLs (data URLs, local upload paths,
// http/https) into byte streams, with a fixed timeout on remote fetches.
package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrTimeout    = errors.New("fetch: timed out")
	ErrBadSource  = errors.New("fetch: unsupported byte source")
	ErrOutsideDir = errors.New("fetch: path escapes upload directory")
)

type Fetcher struct {
	client  *http.Client
	baseDir string
}

// New returns a fetcher rooted at baseDir for relative paths. timeout bounds
// every remote fetch; a fetch that exceeds it is aborted and reported as
// ErrTimeout so the caller can show a timeout-specific message.
func New(baseDir string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		baseDir: baseDir,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		return decodeDataURL(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return f.fetchHTTP(ctx, src)
	case src == "":
		return nil, ErrBadSource
	default:
		return f.readLocal(src)
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		var ue interface{ Timeout() bool }
		if errors.As(err, &ue) && ue.Timeout() {
			return nil, ErrTimeout
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: unexpected status %d for %s", resp.StatusCode, src)
	}
	return io.ReadAll(resp.Body)
}

func (f *Fetcher) readLocal(src string) ([]byte, error) {
	clean := filepath.Clean(filepath.FromSlash(src))
	if f.baseDir == "" {
		if strings.HasPrefix(clean, "..") {
			return nil, ErrOutsideDir
		}
		return os.ReadFile(clean)
	}
	base := filepath.Clean(f.baseDir)
	// stored paths are prefixed with the upload dir name already
	path := clean
	if !filepath.IsAbs(clean) && !strings.HasPrefix(clean, base+string(filepath.Separator)) && clean != base {
		path = filepath.Join(base, clean)
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, ErrOutsideDir
	}
	return os.ReadFile(path)
}

// decodeDataURL handles data:<mime>;base64,<payload> sources (the form the
// signature capture widget produces).
func decodeDataURL(src string) ([]byte, error) {
	i := strings.Index(src, ",")
	if i < 0 {
		return nil, ErrBadSource
	}
	meta, payload := src[:i], src[i+1:]
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	return nil, ErrBadSource
}

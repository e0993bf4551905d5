// Package uploads stores attachment byte payloads on disk and tracks
// transient preview blobs so they can be released when no bundle entry
// references them anymore.
package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type Store struct {
	dir string

	mu        sync.Mutex
	transient map[string]bool // byte source URL -> owned transient blob
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, transient: map[string]bool{}}, nil
}

// Save writes a permanent blob and returns its byte source URL (a path
// relative to the working directory) and size.
func (s *Store) Save(name string, r io.Reader) (string, int64, error) {
	return s.save(name, r, false)
}

// SavePreview writes a transient blob. Transient blobs are released when the
// referencing entry is removed or replaced; permanent blobs are kept for
// audit and history.
func (s *Store) SavePreview(name string, r io.Reader) (string, int64, error) {
	return s.save(name, r, true)
}

func (s *Store) save(name string, r io.Reader, transient bool) (string, int64, error) {
	base := sanitize(name)
	fileName := uuid.New().String() + "-" + base
	path := filepath.Join(s.dir, fileName)
	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, err
	}
	src := filepath.ToSlash(path)
	if transient {
		s.mu.Lock()
		s.transient[src] = true
		s.mu.Unlock()
	}
	return src, n, nil
}

// Release frees the blob behind src if this store owns it as a transient
// handle. Permanent blobs and foreign sources (data URLs, remote URLs) are
// ignored.
func (s *Store) Release(src string) {
	s.mu.Lock()
	owned := s.transient[src]
	delete(s.transient, src)
	s.mu.Unlock()
	if owned {
		_ = os.Remove(filepath.FromSlash(src))
	}
}

// Promote marks a transient blob permanent (the preview got attached).
func (s *Store) Promote(src string) {
	s.mu.Lock()
	delete(s.transient, src)
	s.mu.Unlock()
}

func sanitize(name string) string {
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." {
		name = "blob"
	}
	return name
}

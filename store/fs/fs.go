// Package fs implements the canonical file-backed store.
//
// Layout: <root>/<api>/<provider>/<key><ext>, one record per file.
// Directories are created lazily on first write. Writes go to a temp file
// in the destination directory and are published with an atomic rename, so
// a concurrent reader never observes a partially written record. A per-path
// flock serializes writers across processes; the last writer wins.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/unkn0wn-root/replaycache/store"
)

const defaultExt = ".json"

type Store struct {
	root string
	ext  string
}

var _ store.Store = (*Store)(nil)

type Config struct {
	// Root is the cache directory. A leading "~" or "~/" is expanded to
	// the user's home directory. Created recursively if absent.
	Root string

	// Ext is the record file extension. Defaults to ".json"; set it to
	// match the envelope codec when not using the JSON one.
	Ext string
}

func New(cfg Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, errors.New("fs store: root is required")
	}
	root, err := ExpandHome(cfg.Root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("fs store: create root: %w", err)
	}
	// Resolve once so record paths stay stable if the process chdirs.
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("fs store: resolve root: %w", err)
	}
	ext := cfg.Ext
	if ext == "" {
		ext = defaultExt
	}
	return &Store{root: abs, ext: ext}, nil
}

// ExpandHome resolves a leading "~" to the current user's home directory.
func ExpandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("fs store: expand %q: %w", p, err)
	}
	if p == "~" {
		return home, nil
	}
	return filepath.Join(home, p[2:]), nil
}

func (s *Store) Get(_ context.Context, addr store.Address) ([]byte, bool, error) {
	p, err := s.recordPath(addr)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("fs store: read %s: %w", p, err)
	}
	return b, true, nil
}

func (s *Store) Put(_ context.Context, addr store.Address, value []byte) error {
	p, err := s.recordPath(addr)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("fs store: create namespace: %w", err)
	}

	// Cross-process writer exclusion. Readers never take the lock; the
	// rename below keeps reads consistent without it.
	lock := flock.New(p + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("fs store: lock %s: %w", p, err)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(p), filepath.Base(p)+".tmp*")
	if err != nil {
		return fmt.Errorf("fs store: create temp: %w", err)
	}
	_, werr := tmp.Write(value)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmp.Name())
		if werr != nil {
			return fmt.Errorf("fs store: write temp: %w", werr)
		}
		return fmt.Errorf("fs store: close temp: %w", cerr)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("fs store: publish record: %w", err)
	}
	return nil
}

func (s *Store) Close(context.Context) error { return nil }

// Root returns the resolved cache root.
func (s *Store) Root() string { return s.root }

func (s *Store) recordPath(addr store.Address) (string, error) {
	for _, part := range []string{addr.API, addr.Provider, addr.Key} {
		if !safeComponent(part) {
			return "", fmt.Errorf("fs store: unsafe path component %q", part)
		}
	}
	return filepath.Join(s.root, addr.API, addr.Provider, addr.Key+s.ext), nil
}

// safeComponent rejects anything that could escape the cache root.
func safeComponent(c string) bool {
	if c == "" || c == "." || c == ".." {
		return false
	}
	return !strings.ContainsAny(c, `/\`)
}

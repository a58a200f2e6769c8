// Package evidence keeps submitted probe images on local disk so an audit
// entry's evidence_path can be replayed later.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("evidence not found")
	ErrInvalidPath = errors.New("evidence path escapes the evidence directory")
)

// Store writes images under dir/YYYY/MM/DD/<uuid>.<ext>. Paths handed back
// to callers are slash-separated and relative to dir.
type Store struct {
	dir string
	now func() time.Time
}

func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("evidence dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("mkdir evidence dir: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Save persists image and returns its relative path. The file is fsynced
// before Save returns.
func (s *Store) Save(ctx context.Context, image []byte, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		ext = "bin"
	}

	day := s.now().UTC().Format("2006/01/02")
	rel := path.Join(day, uuid.NewString()+"."+ext)
	full := filepath.Join(s.dir, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("mkdir evidence day dir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("create evidence file: %w", err)
	}
	if _, err := f.Write(image); err != nil {
		f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("write evidence file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("sync evidence file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close evidence file: %w", err)
	}
	return rel, nil
}

// Open returns the stored image for a path previously returned by Save.
func (s *Store) Open(rel string) ([]byte, error) {
	full, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read evidence: %w", err)
	}
	return b, nil
}

// PruneOlderThan removes images whose modification time is before cutoff
// and returns how many files were deleted. Empty day directories are left
// in place.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := filepath.WalkDir(s.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		deleted++
		return nil
	})
	if err != nil {
		return deleted, fmt.Errorf("prune evidence: %w", err)
	}
	return deleted, nil
}

func (s *Store) resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)[1:]
	if clean == "" || clean != rel {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}

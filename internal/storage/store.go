package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store — файлы на диске под одним корнем, имя — uuid записи.
// Путь наружу не отдаётся, только id.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("files root: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) path(id, ext string) string {
	// ext уже провалидирован по whitelist, но точки/слэши режем на всякий случай
	ext = strings.TrimLeft(filepath.Base(ext), ".")
	return filepath.Join(s.root, id+"."+ext)
}

func (s *Store) Save(id, ext string, src io.Reader) (int64, error) {
	dst, err := os.Create(s.path(id, ext))
	if err != nil {
		return 0, fmt.Errorf("file create: %w", err)
	}
	defer dst.Close()

	n, err := io.Copy(dst, src)
	if err != nil {
		return 0, fmt.Errorf("file write: %w", err)
	}
	return n, nil
}

func (s *Store) Open(id, ext string) (*os.File, error) {
	f, err := os.Open(s.path(id, ext))
	if err != nil {
		return nil, fmt.Errorf("file open: %w", err)
	}
	return f, nil
}

func (s *Store) FilePath(id, ext string) string {
	return s.path(id, ext)
}

func (s *Store) Remove(id, ext string) error {
	return os.Remove(s.path(id, ext))
}

// README: File-backed collections, one JSON file per collection, replaced via temp file + rename.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []byte("[]"), nil
	}
	return data, err
}

// Save writes every document to its own pending temp file first and only then renames them
// into place. A crash can still land between two renames; callers reconcile on startup.
func (s *FileStore) Save(ctx context.Context, docs ...Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pending := make([]*renameio.PendingFile, 0, len(docs))
	defer func() {
		for _, pf := range pending {
			_ = pf.Cleanup()
		}
	}()

	for _, doc := range docs {
		path, err := s.path(doc.Name)
		if err != nil {
			return err
		}
		pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
		if err != nil {
			return fmt.Errorf("stage %s: %w", doc.Name, err)
		}
		pending = append(pending, pf)
		if _, err := pf.Write(doc.Data); err != nil {
			return fmt.Errorf("write %s: %w", doc.Name, err)
		}
	}
	for i, pf := range pending {
		if err := pf.CloseAtomicallyReplace(); err != nil {
			return fmt.Errorf("replace %s: %w", docs[i].Name, err)
		}
	}
	return nil
}

func (s *FileStore) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid collection name %q", name)
	}
	return filepath.Join(s.dir, name+".json"), nil
}

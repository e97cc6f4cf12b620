package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local serves staged files from a filesystem directory.
type Local struct {
	Root string
}

// NewLocal creates a Local rooted at root.
func NewLocal(root string) *Local {
	return &Local{Root: root}
}

func (l *Local) path(name string) string {
	return filepath.Join(l.Root, filepath.FromSlash(name))
}

// Open implements Storage.
func (l *Local) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, l.path(name))
		}
		return nil, fmt.Errorf("failed to open %s: %w", l.path(name), err)
	}
	return f, nil
}

// Delete implements Storage.
func (l *Local) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(l.path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, l.path(name))
		}
		return fmt.Errorf("failed to delete %s: %w", l.path(name), err)
	}
	return nil
}

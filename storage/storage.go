// Package storage resolves staged batch-file locations to byte streams.
//
// A batch message carries full URLs such as file:///tmp/batches/part-0.jsonl.gz
// or s3://bucket/prefix/part-0.jsonl. SplitURL separates the directory head
// from the file name, FromURL picks a backend for the head, and the backend
// opens and deletes files relative to it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNotFound is returned when a staged file does not exist.
var ErrNotFound = errors.New("staged file does not exist")

// ErrUnsupportedScheme is returned by FromURL for schemes without a backend.
var ErrUnsupportedScheme = errors.New("unsupported storage scheme")

// Storage is the staged-file storage collaborator.
type Storage interface {
	// Open returns a reader over the named file. The caller closes it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes the named file.
	Delete(ctx context.Context, name string) error
}

// SplitURL splits a file URL into its directory head and file name tail.
// Backslashes are treated as separators so Windows paths split correctly.
func SplitURL(u string) (head, tail string) {
	u = strings.ReplaceAll(u, `\`, "/")
	i := strings.LastIndex(u, "/")
	if i < 0 {
		return "", u
	}
	return u[:i], u[i+1:]
}

// Options configure backends created by FromURL.
type Options struct {
	// S3 configures the client used for s3:// heads.
	// OPTIONAL: defaults to the shared AWS session configuration.
	S3 S3Options
}

// FromURL returns the backend serving files under head.
// Supported schemes are file:// (and bare paths) and s3://.
func FromURL(head string, opts Options) (Storage, error) {
	if !strings.Contains(head, "://") {
		return NewLocal(head), nil
	}

	u, err := url.Parse(head)
	if err != nil {
		return nil, fmt.Errorf("failed to parse storage URL %q: %w", head, err)
	}

	switch u.Scheme {
	case "file":
		return NewLocal(localPath(u)), nil
	case "s3":
		return NewS3(u.Host, strings.TrimPrefix(u.Path, "/"), opts.S3)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// localPath converts a file:// URL to a filesystem path. A relative URL such
// as file://test/batches keeps its host as the first path element.
func localPath(u *url.URL) string {
	p := u.Path
	if u.Host != "" {
		p = u.Host + p
	}
	if runtime.GOOS == "windows" && strings.HasPrefix(p, "/") {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

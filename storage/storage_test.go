package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

func TestSplitURL(t *testing.T) {
	tests := []struct {
		url  string
		head string
		tail string
	}{
		{"file:///tmp/batches/part-0.jsonl.gz", "file:///tmp/batches", "part-0.jsonl.gz"},
		{"s3://bucket/prefix/part-1.jsonl", "s3://bucket/prefix", "part-1.jsonl"},
		{`file://C:\batches\part.jsonl`, "file://C:/batches", "part.jsonl"},
		{"part.jsonl", "", "part.jsonl"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			head, tail := SplitURL(tt.url)
			if head != tt.head || tail != tt.tail {
				t.Errorf("SplitURL() = (%q, %q), want (%q, %q)", head, tail, tt.head, tt.tail)
			}
		})
	}
}

func TestFromURL(t *testing.T) {
	fake := &fakeS3{}

	tests := []struct {
		head    string
		check   func(t *testing.T, s Storage)
		wantErr error
	}{
		{
			head: "file:///tmp/batches",
			check: func(t *testing.T, s Storage) {
				l, ok := s.(*Local)
				if !ok || l.Root != filepath.FromSlash("/tmp/batches") {
					t.Errorf("got %#v, want Local at /tmp/batches", s)
				}
			},
		},
		{
			head: "file://test/batches",
			check: func(t *testing.T, s Storage) {
				l, ok := s.(*Local)
				if !ok || l.Root != filepath.FromSlash("test/batches") {
					t.Errorf("got %#v, want Local at test/batches", s)
				}
			},
		},
		{
			head: "/var/spool",
			check: func(t *testing.T, s Storage) {
				if _, ok := s.(*Local); !ok {
					t.Errorf("got %T, want *Local", s)
				}
			},
		},
		{
			head: "s3://staging/exports/2024",
			check: func(t *testing.T, s Storage) {
				b, ok := s.(*S3)
				if !ok || b.Bucket != "staging" || b.Prefix != "exports/2024" {
					t.Errorf("got %#v, want S3 staging/exports/2024", s)
				}
			},
		},
		{head: "gs://bucket/x", wantErr: ErrUnsupportedScheme},
	}

	for _, tt := range tests {
		t.Run(tt.head, func(t *testing.T) {
			s, err := FromURL(tt.head, Options{S3: S3Options{Client: fake}})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("FromURL() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromURL() failed: %v", err)
			}
			tt.check(t, s)
		})
	}
}

func TestLocalOpenDelete(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "part.jsonl"), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	l := NewLocal(dir)

	rc, err := l.Open(ctx, "part.jsonl")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "{}\n" {
		t.Errorf("read %q", data)
	}

	if err := l.Delete(ctx, "part.jsonl"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := l.Open(ctx, "part.jsonl"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open() after delete error = %v, want ErrNotFound", err)
	}
	if err := l.Delete(ctx, "part.jsonl"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
	deleted []string
}

func (f *fakeS3) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "not found", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObjectWithContext(ctx aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3OpenDelete(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"staging/exports/part.jsonl": []byte("{\"id\":1}\n")}}
	b, err := NewS3("staging", "exports", S3Options{Client: fake})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	rc, err := b.Open(ctx, "part.jsonl")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "{\"id\":1}\n" {
		t.Errorf("read %q", data)
	}

	if _, err := b.Open(ctx, "missing.jsonl"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open(missing) error = %v, want ErrNotFound", err)
	}

	if err := b.Delete(ctx, "part.jsonl"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != "staging/exports/part.jsonl" {
		t.Errorf("deleted = %v", fake.deleted)
	}
}

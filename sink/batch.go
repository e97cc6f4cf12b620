package sink

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hugr-lab/target-mssql/internal/compress"
	"github.com/hugr-lab/target-mssql/internal/metrics"
	"github.com/hugr-lab/target-mssql/internal/recovery"
	"github.com/hugr-lab/target-mssql/message"
	"github.com/hugr-lab/target-mssql/schema"
	"github.com/hugr-lab/target-mssql/storage"
)

// maxRecordLine bounds one staged record line.
const maxRecordLine = 64 << 20

// ErrBatchFileName is returned for manifest entries outside the configured
// file name prefix.
var ErrBatchFileName = errors.New("batch file name does not match prefix")

// StorageResolver returns the backend serving files under a URL head.
type StorageResolver func(head string) (storage.Storage, error)

// BatchConfig configures a BatchPipeline.
type BatchConfig struct {
	// Storage serves every staged file when set. Otherwise each file's
	// backend is resolved from its URL.
	// OPTIONAL.
	Storage storage.Storage

	// Resolve picks a backend per URL head when Storage is nil.
	// OPTIONAL: storage.FromURL with default options.
	Resolve StorageResolver

	// Prefix is the file name prefix of staged files. A manifest naming any
	// other file is rejected before anything is loaded or deleted.
	// OPTIONAL: any name is accepted when empty.
	Prefix string

	// Logger. OPTIONAL: slog.Default() when nil.
	Logger *slog.Logger

	// Metrics counts processed batch files. OPTIONAL.
	Metrics *metrics.Metrics
}

// BatchPipeline loads staged batch files through a Loader and releases them.
type BatchPipeline struct {
	loader *Loader
	schema func() *schema.Schema
	cfg    BatchConfig
	logger *slog.Logger
}

// NewBatchPipeline creates a pipeline feeding loader. current returns the
// stream schema in effect when a batch is processed.
func NewBatchPipeline(loader *Loader, current func() *schema.Schema, cfg BatchConfig) *BatchPipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Resolve == nil {
		cfg.Resolve = func(head string) (storage.Storage, error) {
			return storage.FromURL(head, storage.Options{})
		}
	}
	return &BatchPipeline{loader: loader, schema: current, cfg: cfg, logger: logger}
}

// Process loads every file of a batch message. Each file is read fully,
// loaded with one Load call and then deleted. Deletions run concurrently
// with the following loads and are awaited before Process returns.
func (p *BatchPipeline) Process(ctx context.Context, enc message.Encoding, files []string) (int64, error) {
	if enc.Format != message.FormatJSONL {
		return 0, &UnsupportedEncodingError{Format: enc.Format}
	}
	codec, err := compress.Parse(enc.Compression)
	if err != nil {
		return 0, &UnsupportedEncodingError{Format: enc.Format, Compression: enc.Compression}
	}
	if p.cfg.Prefix != "" {
		for _, file := range files {
			_, tail := storage.SplitURL(file)
			if !strings.HasPrefix(path.Base(tail), p.cfg.Prefix) {
				return 0, fmt.Errorf("%w: %s (prefix %q)", ErrBatchFileName, file, p.cfg.Prefix)
			}
		}
	}

	var cleanup errgroup.Group
	var total int64
	for _, file := range files {
		head, tail := storage.SplitURL(file)
		st, err := p.storageFor(head)
		if err != nil {
			return total, p.wait(&cleanup, err)
		}

		records, err := p.read(ctx, st, tail, codec)
		if err != nil {
			return total, p.wait(&cleanup, fmt.Errorf("failed to read batch file %s: %w", file, err))
		}

		n, err := p.loader.Load(ctx, p.schema(), records)
		if err != nil {
			return total, p.wait(&cleanup, err)
		}
		total += n
		p.cfg.Metrics.BatchFile()

		cleanup.Go(func() error {
			return recovery.RecoverToError(p.logger, "delete batch file", func() error {
				if err := st.Delete(ctx, tail); err != nil {
					return fmt.Errorf("failed to delete batch file %s: %w", file, err)
				}
				return nil
			})
		})
	}
	return total, cleanup.Wait()
}

func (p *BatchPipeline) storageFor(head string) (storage.Storage, error) {
	if p.cfg.Storage != nil {
		return p.cfg.Storage, nil
	}
	return p.cfg.Resolve(head)
}

// wait finishes pending deletions before surfacing err.
func (p *BatchPipeline) wait(g *errgroup.Group, err error) error {
	if cerr := g.Wait(); cerr != nil {
		p.logger.Error("batch file cleanup failed", "error", cerr)
	}
	return err
}

// read decodes one JSON record per line.
func (p *BatchPipeline) read(ctx context.Context, st storage.Storage, name string, codec compress.Compression) ([]map[string]any, error) {
	rc, err := st.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r, err := compress.NewReader(rc, codec)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return readJSONLines(r)
}

func readJSONLines(r io.Reader) ([]map[string]any, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxRecordLine)

	var records []map[string]any
	line := 0
	for s.Scan() {
		line++
		data := bytes.TrimSpace(s.Bytes())
		if len(data) == 0 {
			continue
		}
		rec, err := message.DecodeRecord(data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, s.Err()
}

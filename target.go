package target

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hugr-lab/target-mssql/internal/metrics"
	"github.com/hugr-lab/target-mssql/internal/recovery"
	"github.com/hugr-lab/target-mssql/message"
	"github.com/hugr-lab/target-mssql/sink"
	"github.com/hugr-lab/target-mssql/sqltype"
	"github.com/hugr-lab/target-mssql/storage"
	"github.com/hugr-lab/target-mssql/store"
)

// Options carries runtime collaborators that cannot be read from a config file.
type Options struct {
	// Registerer receives the target's Prometheus collectors.
	// OPTIONAL: metrics are counted but not registered when nil.
	Registerer prometheus.Registerer

	// StateOutput receives every STATE value, one JSON document per line,
	// once all records received before it are loaded.
	// OPTIONAL: state is dropped when nil.
	StateOutput io.Writer

	// Storage configures backends for BATCH manifests. OPTIONAL.
	Storage storage.Options
}

// Target loads a message stream into SQL Server.
//
// One Evolver, and with it one namespace catalog, is shared by every stream.
// A Target is not safe for concurrent use.
type Target struct {
	cfg     Config
	opts    Options
	store   store.Store
	evolver *sink.Evolver
	batches storage.Storage
	metrics *metrics.Metrics
	logger  *slog.Logger
	runID   string

	sinks []*Sink
	byKey map[string]*Sink

	// state is the latest STATE value not yet emitted.
	state []byte
}

// Open connects to the server described by cfg and returns a Target over it.
// The caller must Close the Target.
func Open(ctx context.Context, cfg Config, opts Options) (*Target, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.logger()
	logger.Info("connecting to SQL Server", "dsn", cfg.RedactedDSN())

	db, err := store.Open(ctx, cfg.DSN(), logger)
	if err != nil {
		return nil, err
	}
	t, err := New(db, cfg, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return t, nil
}

// New creates a Target over an open store. Connection fields of cfg are
// not used.
func New(st store.Store, cfg Config, opts Options) (*Target, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if err := cfg.validateSettings(); err != nil {
		return nil, err
	}
	if cfg.MaxBatchSize == 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}

	logger := cfg.logger()
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)
	m := metrics.New(opts.Registerer)

	var batches storage.Storage
	if root := cfg.Batch.Storage.Root; root != "" {
		s, err := storage.FromURL(root, opts.Storage)
		if err != nil {
			return nil, fmt.Errorf("%w: batch storage: %v", ErrInvalidConfig, err)
		}
		batches = s
	}

	return &Target{
		cfg:   cfg,
		opts:  opts,
		store: st,
		evolver: sink.NewEvolver(st, sink.EvolverConfig{
			Engine:              sqltype.NewEngine(cfg.ExtendedTypeMode, logger),
			PrimaryKeyMaxLength: cfg.PrimaryKeyMaxLength,
			AllowColumnAdd:      cfg.AllowColumnAdd,
			AllowColumnRename:   cfg.AllowColumnRename,
			Logger:              logger,
			Metrics:             m,
		}),
		batches: batches,
		metrics: m,
		logger:  logger,
		runID:   runID,
		byKey:   make(map[string]*Sink),
	}, nil
}

// RunID identifies this Target in logs.
func (t *Target) RunID() string {
	return t.runID
}

// Evolver returns the shared schema evolver.
func (t *Target) Evolver() *sink.Evolver {
	return t.evolver
}

// Sink returns the sink of a stream, if a SCHEMA for it has been processed.
func (t *Target) Sink(stream string) (*Sink, bool) {
	s, ok := t.byKey[stream]
	return s, ok
}

// Process handles one message.
func (t *Target) Process(ctx context.Context, msg *message.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	switch msg.Type {
	case message.TypeSchema:
		s, ok := t.byKey[msg.Stream]
		if !ok {
			s = t.newSink(msg.Stream)
		}
		return s.SetSchema(ctx, msg.Schema, msg.KeyProperties)

	case message.TypeRecord:
		s, err := t.sinkFor(msg.Stream)
		if err != nil {
			return err
		}
		s.Add(msg.Record)
		if s.Pending() >= t.cfg.MaxBatchSize {
			return t.Flush(ctx)
		}
		return nil

	case message.TypeBatch:
		s, err := t.sinkFor(msg.Stream)
		if err != nil {
			return err
		}
		enc := msg.Encoding
		if enc.Format == "" {
			enc = message.Encoding{Format: t.cfg.Batch.Encoding.Format, Compression: t.cfg.Batch.Encoding.Compression}
		}
		_, err = s.ProcessBatch(ctx, enc, msg.Manifest)
		return err

	case message.TypeState:
		t.state = append(t.state[:0], msg.Value...)
		return nil

	case message.TypeActivateVersion:
		t.logger.Debug("ignoring ACTIVATE_VERSION", "stream", msg.Stream)
		return nil
	}
	return nil
}

// Flush loads every buffered record and then emits the latest state.
// It runs whenever a stream buffer reaches MaxBatchSize, so emitted state
// never runs ahead of loaded data.
func (t *Target) Flush(ctx context.Context) error {
	for _, s := range t.sinks {
		if err := s.Drain(ctx); err != nil {
			return err
		}
	}
	return t.emitState()
}

// Run processes messages from r until it is exhausted and flushes.
func (t *Target) Run(ctx context.Context, r message.Reader) error {
	var processed int
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read message %d: %w", processed+1, err)
		}

		err = recovery.RecoverToError(t.logger, "process message", func() error {
			return t.Process(ctx, msg)
		})
		if err != nil {
			return fmt.Errorf("message %d (%s %s): %w", processed+1, msg.Type, msg.Stream, err)
		}
		processed++
	}

	if err := t.Flush(ctx); err != nil {
		return err
	}
	t.logger.Info("target finished", "messages", processed, "streams", len(t.sinks))
	return nil
}

// Close releases the store.
func (t *Target) Close() error {
	return t.store.Close()
}

func (t *Target) emitState() error {
	if t.state == nil {
		return nil
	}
	state := t.state
	t.state = nil
	if t.opts.StateOutput == nil {
		return nil
	}
	if _, err := t.opts.StateOutput.Write(append(state, '\n')); err != nil {
		return fmt.Errorf("failed to emit state: %w", err)
	}
	return nil
}

func (t *Target) sinkFor(stream string) (*Sink, error) {
	s, ok := t.byKey[stream]
	if !ok || s.schema == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStream, stream)
	}
	return s, nil
}

func (t *Target) newSink(stream string) *Sink {
	s := newSink(stream, TableNameFor(stream, t.cfg.DefaultTargetSchema), t)
	t.sinks = append(t.sinks, s)
	t.byKey[stream] = s
	return s
}

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/medpanel/medpanel-go/internal/telemetry/logger"
)

// gcDiscardRatio is the value-log GC threshold used on Close.
const gcDiscardRatio = 0.5

// BadgerKV implements KV using Badger v3.
type BadgerKV struct {
	db     *badger.DB
	logger logger.Logger
}

// NewBadgerKV opens (or creates) a Badger database.
func NewBadgerKV(cfg KVConfig, log logger.Logger) (*BadgerKV, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if log == nil {
		log = logger.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithLogger(&badgerLogger{logger: log}).
		WithSyncWrites(cfg.SyncWrites).
		WithInMemory(cfg.InMemory).
		WithNumVersionsToKeep(1)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", cfg.Dir, err)
	}

	log.Debug("badger kv opened", "dir", cfg.Dir, "in_memory", cfg.InMemory)
	return &BadgerKV{db: db, logger: log}, nil
}

// Get retrieves a value by key.
func (e *BadgerKV) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte

	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, e.mapErr(err)
	}

	return value, nil
}

// Set stores a key-value pair.
func (e *BadgerKV) Set(ctx context.Context, key, value []byte) error {
	return e.mapErr(e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	}))
}

// Delete removes a key.
func (e *BadgerKV) Delete(ctx context.Context, key []byte) error {
	return e.mapErr(e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	}))
}

// Batch runs fn inside a single read-write transaction.
func (e *BadgerKV) Batch(ctx context.Context, fn func(w Writer) error) error {
	return e.mapErr(e.db.Update(func(txn *badger.Txn) error {
		return fn(txn)
	}))
}

// Stats returns storage statistics.
func (e *BadgerKV) Stats(ctx context.Context) (*KVStats, error) {
	var keys uint64
	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys++
		}
		return nil
	})
	if err != nil {
		return nil, e.mapErr(err)
	}

	lsm, vlog := e.db.Size()
	return &KVStats{
		Keys:      keys,
		TotalSize: uint64(lsm + vlog),
	}, nil
}

// RegisterMetrics exposes the on-disk size as a gauge.
func (e *BadgerKV) RegisterMetrics(reg prometheus.Registerer) error {
	if reg == nil {
		return nil
	}
	return reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "medpanel",
		Subsystem: "session_store",
		Name:      "size_bytes",
		Help:      "Badger LSM plus value log size in bytes",
	}, func() float64 {
		lsm, vlog := e.db.Size()
		return float64(lsm + vlog)
	}))
}

// Close runs one value-log GC pass and closes the database.
func (e *BadgerKV) Close() error {
	if err := e.db.RunValueLogGC(gcDiscardRatio); err != nil &&
		!errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrGCInMemoryMode) {
		e.logger.Debug("badger gc skipped", "error", err)
	}

	if err := e.db.Close(); err != nil {
		return fmt.Errorf("badger: close: %w", err)
	}
	return nil
}

func (e *BadgerKV) mapErr(err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return err
}

// badgerLogger adapts logger.Logger to Badger's Logger interface. Badger is
// chatty at info level, so info is demoted to debug.
type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

package table

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// BadgerOptions configures a Badger-backed table.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless InMemory.
	Dir string

	// InMemory runs BadgerDB without disk persistence. Useful for tests.
	InMemory bool

	// ReadOnly opens the database without write access, which lets several
	// processes search the same table.
	ReadOnly bool

	// Logger receives badger's warnings and errors. Nil uses slog.Default().
	Logger *slog.Logger
}

// Badger serves a title table stored in BadgerDB. Keys are raw title bytes;
// values are msgpack-encoded records.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens a Badger table.
func OpenBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("table: BadgerOptions.Dir is required for on-disk mode")
	}

	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts = dbOpts.
		WithReadOnly(opts.ReadOnly && !opts.InMemory).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: logger.With("component", "badger")})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger table: %w", err)
	}
	return &Badger{db: db}, nil
}

// Lookup implements Store.
func (b *Badger) Lookup(_ context.Context, title string) (Entry, bool, error) {
	var r record
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(title))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &r)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("badger lookup %q: %w", title, err)
	}
	return r.entry(), true, nil
}

// TitlesWithPrefix implements Prefixer.
func (b *Badger) TitlesWithPrefix(_ context.Context, prefix string, limit int) ([]string, error) {
	var out []string
	p := []byte(prefix)
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = false
		iterOpts.Prefix = p
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			out = append(out, string(it.Item().Key()))
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger prefix scan: %w", err)
	}
	return out, nil
}

// Close implements Store.
func (b *Badger) Close() error {
	return b.db.Close()
}

// Writer returns a batch writer on the same database. Closing the writer
// flushes it but leaves the table open.
func (b *Badger) Writer(batchSize int) *BadgerWriter {
	return newBadgerWriter(b.db, batchSize, false)
}

// DefaultBadgerBatchSize is the number of records committed per write batch flush.
const DefaultBadgerBatchSize = 10000

// BadgerWriter loads records through badger write batches.
type BadgerWriter struct {
	mu        sync.Mutex
	db        *badger.DB
	wb        *badger.WriteBatch
	pending   int
	batchSize int
	ownsDB    bool
	closed    bool
}

// CreateBadger opens the table at opts.Dir for writing. Closing the writer
// closes the database.
func CreateBadger(opts BadgerOptions, batchSize int) (*BadgerWriter, error) {
	opts.ReadOnly = false
	t, err := OpenBadger(opts)
	if err != nil {
		return nil, err
	}
	return newBadgerWriter(t.db, batchSize, true), nil
}

func newBadgerWriter(db *badger.DB, batchSize int, ownsDB bool) *BadgerWriter {
	if batchSize <= 0 {
		batchSize = DefaultBadgerBatchSize
	}
	return &BadgerWriter{
		db:        db,
		wb:        db.NewWriteBatch(),
		batchSize: batchSize,
		ownsDB:    ownsDB,
	}
}

// Put implements Writer.
func (w *BadgerWriter) Put(_ context.Context, title string, e Entry) error {
	if err := validTitle(title); err != nil {
		return err
	}
	val, err := msgpack.Marshal(toRecord(e))
	if err != nil {
		return fmt.Errorf("encode record %q: %w", title, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if err := w.wb.Set([]byte(title), val); err != nil {
		return fmt.Errorf("badger batch set: %w", err)
	}
	w.pending++
	if w.pending >= w.batchSize {
		return w.flushLocked()
	}
	return nil
}

func (w *BadgerWriter) flushLocked() error {
	if err := w.wb.Flush(); err != nil {
		return fmt.Errorf("badger batch flush: %w", err)
	}
	w.wb = w.db.NewWriteBatch()
	w.pending = 0
	return nil
}

// Close implements Writer.
func (w *BadgerWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.closed = true

	err := w.wb.Flush()
	if err != nil {
		err = fmt.Errorf("badger batch flush: %w", err)
	}
	if w.ownsDB {
		if cerr := w.db.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// badgerLogger adapts slog to badger's Logger interface. Info and debug
// output is dropped; badger is chatty at those levels.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(string, ...interface{})  {}
func (l *badgerLogger) Debugf(string, ...interface{}) {}

package table

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors.
var (
	// ErrUnknownBackend is returned by Open and Create for an unsupported backend name.
	ErrUnknownBackend = errors.New("table: unknown backend")

	// ErrClosed is returned when a closed store or writer is used.
	ErrClosed = errors.New("table: closed")

	// ErrInvalidTitle is returned by writers for an empty title or one that
	// contains the link delimiter.
	ErrInvalidTitle = errors.New("table: invalid title")
)

// Store is read-only access to a title table.
//
// Lookup returns found=false for an absent title; err is reserved for I/O
// or corruption. Implementations are safe for concurrent use and never
// reshape titles: comparison is byte-for-byte.
type Store interface {
	Lookup(ctx context.Context, title string) (entry Entry, found bool, err error)
	Close() error
}

// Prefixer is implemented by stores that can list titles in byte order.
type Prefixer interface {
	// TitlesWithPrefix returns up to limit titles starting with prefix,
	// sorted. A limit <= 0 means no limit.
	TitlesWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error)
}

// Writer fills a table. It is used to build tables, never during a search.
type Writer interface {
	Put(ctx context.Context, title string, e Entry) error
	// Close flushes pending writes and releases resources.
	Close() error
}

// Backend names a storage implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendAOF    Backend = "aof"
	BackendSQLite Backend = "sqlite"
	BackendBadger Backend = "badger"
)

// ParseBackend validates a backend name (case-insensitive).
func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	switch b {
	case BackendMemory, BackendAOF, BackendSQLite, BackendBadger:
		return b, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
}

// Open opens an existing table for reading. For BackendMemory the path is ignored
// and an empty table is returned.
func Open(ctx context.Context, backend Backend, path string) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendAOF:
		return OpenAOF(path)
	case BackendSQLite:
		return OpenSQLite(ctx, path)
	case BackendBadger:
		return OpenBadger(BadgerOptions{Dir: path, ReadOnly: true})
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}

// Create opens a writer that builds a new table at path. batchSize <= 0 uses
// the backend default.
func Create(ctx context.Context, backend Backend, path string, batchSize int) (Writer, error) {
	switch backend {
	case BackendAOF:
		return CreateAOF(path, batchSize)
	case BackendSQLite:
		return CreateSQLite(ctx, path, batchSize)
	case BackendBadger:
		return CreateBadger(BadgerOptions{Dir: path}, batchSize)
	}
	return nil, fmt.Errorf("%w: %q is not writable", ErrUnknownBackend, backend)
}

func validTitle(title string) error {
	if title == "" || strings.Contains(title, Delimiter) {
		return fmt.Errorf("%w: %q", ErrInvalidTitle, title)
	}
	return nil
}

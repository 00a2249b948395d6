package table

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/sanonone/wikihop/pkg/persistence"
)

// Log command vocabulary.
//
//	SET <title> <kind> <payload>   kind is "L" (links) or "R" (redirect)
//	DEL <title>
const (
	cmdSet = "SET"
	cmdDel = "DEL"

	kindLinks    = "L"
	kindRedirect = "R"
)

// ErrCorruptLog is returned when an append-only table cannot be replayed.
var ErrCorruptLog = errors.New("table: corrupt append-only log")

// AOF is a title table persisted as an append-only log and served from memory.
//
// The whole log is replayed into an in-memory B-Tree when the table is
// opened, so lookups never touch the disk.
type AOF struct {
	*Memory
	path string
}

// OpenAOF replays the log at path.
//
// A torn frame at the end of the file (interrupted import) is logged and
// ignored; checksum or decoding failures anywhere else abort with ErrCorruptLog.
func OpenAOF(path string) (*AOF, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table log: %w", err)
	}
	defer f.Close()

	start := time.Now()
	mem := NewMemory()
	frames, truncated, err := persistence.Replay(f, func(cmd *persistence.Command) error {
		return applyCommand(mem, cmd)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptLog, path, err)
	}
	if truncated {
		slog.Warn("Table log ends with an incomplete frame; ignoring tail", "path", path, "frames", frames)
	}

	slog.Debug("Table log replayed",
		"path", path,
		"frames", frames,
		"titles", mem.Len(),
		"duration", time.Since(start).String(),
	)
	return &AOF{Memory: mem, path: path}, nil
}

func applyCommand(mem *Memory, cmd *persistence.Command) error {
	switch cmd.Name {
	case cmdSet:
		if len(cmd.Args) != 3 {
			return fmt.Errorf("SET expects 3 arguments, got %d", len(cmd.Args))
		}
		var r record
		switch string(cmd.Args[1]) {
		case kindLinks:
		case kindRedirect:
			r.Redirect = true
		default:
			return fmt.Errorf("SET: unknown entry kind %q", cmd.Args[1])
		}
		r.Payload = string(cmd.Args[2])
		mem.setRecord(string(cmd.Args[0]), r)
	case cmdDel:
		if len(cmd.Args) != 1 {
			return fmt.Errorf("DEL expects 1 argument, got %d", len(cmd.Args))
		}
		mem.Delete(string(cmd.Args[0]))
	default:
		return fmt.Errorf("unknown command %q", cmd.Name)
	}
	return nil
}

// Path returns the log file path.
func (a *AOF) Path() string {
	return a.path
}

// AOFWriter appends title records to a table log.
type AOFWriter struct {
	mu     sync.Mutex
	lazy   *persistence.LazyAOFWriter
	closed bool
}

// CreateAOF opens the log at path for appending. Records written later win
// over earlier ones for the same title. batchSize <= 0 uses the persistence default.
func CreateAOF(path string, batchSize int) (*AOFWriter, error) {
	w, err := persistence.NewAOFWriter(path)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		return &AOFWriter{lazy: persistence.NewLazyAOFWriter(w)}, nil
	}
	return &AOFWriter{
		lazy: persistence.NewLazyAOFWriterWithConfig(w, persistence.DefaultLazyFlushInterval, batchSize),
	}, nil
}

// Put implements Writer.
func (w *AOFWriter) Put(_ context.Context, title string, e Entry) error {
	if err := validTitle(title); err != nil {
		return err
	}
	kind := kindLinks
	if e.Redirect {
		kind = kindRedirect
	}
	cmd := persistence.FormatCommand(cmdSet, []byte(title), []byte(kind), []byte(e.Payload()))
	return w.lazy.Write(cmd)
}

// Delete appends a tombstone for title.
func (w *AOFWriter) Delete(_ context.Context, title string) error {
	return w.lazy.Write(persistence.FormatCommand(cmdDel, []byte(title)))
}

// Close implements Writer.
func (w *AOFWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.closed = true
	return w.lazy.Close()
}

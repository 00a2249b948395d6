package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrWriterClosed is returned by Write after Close.
var ErrWriterClosed = errors.New("persistence: writer closed")

// LazyAOFWriter batches commands in memory and hands them to an AOFWriter
// when the buffer fills up or the flush interval elapses.
//
// Durability: pending commands live only in memory until the next flush.
// Close flushes and fsyncs everything, so a table built by the import
// command is complete once Close returns nil.
type LazyAOFWriter struct {
	underlying *AOFWriter

	mu      sync.Mutex
	buffer  [][]byte
	stopped bool
	// flushErr holds the first error seen by a background flush; it is
	// returned by the next Write, Flush or Close.
	flushErr error

	flushTicker *time.Ticker
	stopCh      chan struct{}
	done        chan struct{}

	flushInterval time.Duration
	maxBufferSize int
}

const (
	// DefaultLazyFlushInterval is the time between background flushes.
	DefaultLazyFlushInterval = 100 * time.Millisecond

	// DefaultMaxBufferSize is the number of buffered commands that triggers
	// an inline flush.
	DefaultMaxBufferSize = 1000
)

// NewLazyAOFWriter wraps underlying with the default batching configuration.
// The underlying writer must not be used directly afterwards.
func NewLazyAOFWriter(underlying *AOFWriter) *LazyAOFWriter {
	return NewLazyAOFWriterWithConfig(underlying, DefaultLazyFlushInterval, DefaultMaxBufferSize)
}

// NewLazyAOFWriterWithConfig wraps underlying with a custom flush interval and
// buffer size. A flushInterval <= 0 disables background flushing.
func NewLazyAOFWriterWithConfig(underlying *AOFWriter, flushInterval time.Duration, maxBufferSize int) *LazyAOFWriter {
	if maxBufferSize <= 0 {
		maxBufferSize = DefaultMaxBufferSize
	}
	lw := &LazyAOFWriter{
		underlying:    underlying,
		buffer:        make([][]byte, 0, maxBufferSize),
		flushInterval: flushInterval,
		maxBufferSize: maxBufferSize,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}

	if flushInterval > 0 {
		lw.flushTicker = time.NewTicker(flushInterval)
		go lw.flushRoutine()
	} else {
		close(lw.done)
	}

	slog.Debug("LazyAOFWriter initialized",
		"path", underlying.Path(),
		"flush_interval", flushInterval,
		"max_buffer_size", maxBufferSize,
	)
	return lw
}

// Write buffers cmd. When the buffer reaches its maximum size it is flushed
// inline, which applies back-pressure to bulk producers.
func (lw *LazyAOFWriter) Write(cmd []byte) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.stopped {
		return ErrWriterClosed
	}
	if lw.flushErr != nil {
		return lw.flushErr
	}

	lw.buffer = append(lw.buffer, cmd)
	if len(lw.buffer) >= lw.maxBufferSize {
		return lw.flushUnlocked()
	}
	return nil
}

// Flush hands every buffered command to the underlying writer and flushes it to the OS.
func (lw *LazyAOFWriter) Flush() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	return lw.flushUnlocked()
}

// flushUnlocked performs the flush. Caller must hold the mutex.
func (lw *LazyAOFWriter) flushUnlocked() error {
	if lw.flushErr != nil {
		return lw.flushErr
	}
	if len(lw.buffer) == 0 {
		return nil
	}

	for _, cmd := range lw.buffer {
		if err := lw.underlying.Append(cmd); err != nil {
			lw.flushErr = fmt.Errorf("failed to write to AOF: %w", err)
			return lw.flushErr
		}
	}
	if err := lw.underlying.Flush(); err != nil {
		lw.flushErr = fmt.Errorf("failed to flush AOF buffer: %w", err)
		return lw.flushErr
	}

	clear(lw.buffer)
	lw.buffer = lw.buffer[:0]
	return nil
}

// Close stops background flushing, flushes pending commands and fsyncs the file.
func (lw *LazyAOFWriter) Close() error {
	lw.mu.Lock()
	if lw.stopped {
		lw.mu.Unlock()
		return ErrWriterClosed
	}
	lw.stopped = true
	lw.mu.Unlock()

	close(lw.stopCh)
	<-lw.done

	lw.mu.Lock()
	defer lw.mu.Unlock()

	flushErr := lw.flushUnlocked()
	if err := lw.underlying.Close(); err != nil && flushErr == nil {
		return err
	}
	return flushErr
}

// Path returns the file path of the underlying log.
func (lw *LazyAOFWriter) Path() string {
	return lw.underlying.Path()
}

func (lw *LazyAOFWriter) flushRoutine() {
	defer close(lw.done)
	defer lw.flushTicker.Stop()
	for {
		select {
		case <-lw.flushTicker.C:
			if err := lw.Flush(); err != nil {
				slog.Error("Periodic AOF flush failed", "path", lw.Path(), "error", err)
			}
		case <-lw.stopCh:
			return
		}
	}
}

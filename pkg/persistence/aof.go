package persistence

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// AOFWriter appends framed commands to a log file.
type AOFWriter struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	frames *FrameWriter
	path   string
}

// NewAOFWriter opens or creates the log file at path in append mode.
func NewAOFWriter(path string) (*AOFWriter, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open AOF file: %w", err)
	}

	buf := bufio.NewWriterSize(file, 64*1024)
	return &AOFWriter{
		file:   file,
		buf:    buf,
		frames: NewFrameWriter(buf),
		path:   path,
	}, nil
}

// Append writes one command as a frame into the buffer.
func (a *AOFWriter) Append(cmd []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.frames.WriteFrame(cmd)
}

// Flush forces the buffer contents to the OS file descriptor.
func (a *AOFWriter) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.Flush()
}

// Sync flushes the buffer and fsyncs the file.
func (a *AOFWriter) Sync() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.buf.Flush(); err != nil {
		return err
	}
	return a.file.Sync()
}

// Close flushes and closes the underlying file.
func (a *AOFWriter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.buf.Flush(); err != nil {
		_ = a.file.Close()
		return err
	}
	if err := a.file.Sync(); err != nil {
		_ = a.file.Close()
		return err
	}
	return a.file.Close()
}

// Path returns the file path.
func (a *AOFWriter) Path() string {
	return a.path
}

// Replay reads every frame from r and passes the decoded command to apply.
//
// A torn frame at the very end of the stream (ErrIncompleteFrame) stops the
// replay without error and is reported through the returned truncated flag.
// Any other framing or decoding failure is returned with the byte offset
// at which it happened.
func Replay(r io.Reader, apply func(cmd *Command) error) (frames int, truncated bool, err error) {
	br := bufio.NewReaderSize(r, 256*1024)
	var offset int64
	for {
		payload, n, err := ReadFrame(br)
		if err == io.EOF {
			return frames, false, nil
		}
		if err == ErrIncompleteFrame {
			return frames, true, nil
		}
		if err != nil {
			return frames, false, fmt.Errorf("frame at offset %d: %w", offset, err)
		}

		cmd, err := ParseCommand(payload)
		if err != nil {
			return frames, false, fmt.Errorf("frame at offset %d: %w", offset, err)
		}
		if err := apply(cmd); err != nil {
			return frames, false, fmt.Errorf("frame at offset %d: %w", offset, err)
		}
		offset += int64(n)
		frames++
	}
}

// Package persistence implements the append-only log used to store a title
// table on disk.
//
// The log is a sequence of binary frames. Each frame carries one command
// encoded in a binary-safe subset of RESP, e.g. SET <title> <kind> <payload>.
// Frames are checksummed so that replay can tell a torn tail write (power
// loss while appending) from real corruption.
package persistence

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
)

// Constants for the binary frame format.
const (
	// MagicByte marks the start of every frame.
	MagicByte = 0xA5

	// HeaderSize is 1 byte (Magic) + 1 byte (OpCode) + 4 bytes (Length) + 4 bytes (CRC32).
	HeaderSize = 10

	// OpCodeCommand marks a frame whose payload is a RESP command.
	OpCodeCommand = 0x01

	// MaxFrameSize bounds the payload length accepted by ReadFrame. A length
	// above it means the header itself is damaged.
	MaxFrameSize = 64 << 20
)

var (
	// ErrInvalidMagic indicates the stream lost synchronization or is not a log file.
	ErrInvalidMagic = errors.New("persistence: invalid magic byte")
	// ErrChecksumMismatch indicates corruption within a frame payload.
	ErrChecksumMismatch = errors.New("persistence: crc32 checksum mismatch")
	// ErrIncompleteFrame indicates the file ended in the middle of a frame.
	ErrIncompleteFrame = errors.New("persistence: incomplete frame")
	// ErrFrameTooLarge indicates a header announcing more than MaxFrameSize bytes.
	ErrFrameTooLarge = errors.New("persistence: frame too large")
)

// AppendFrame appends the framed payload to dst and returns the extended slice.
// Frame format: [Magic(1)][OpCode(1)][Length(4)][CRC(4)][Payload(N)], little endian.
func AppendFrame(dst, payload []byte) []byte {
	var header [HeaderSize]byte
	header[0] = MagicByte
	header[1] = OpCodeCommand
	binary.LittleEndian.PutUint32(header[2:6], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[6:10], crc32.ChecksumIEEE(payload))

	dst = append(dst, header[:]...)
	return append(dst, payload...)
}

// FrameWriter writes frames to an io.Writer. Wrap the target in a
// bufio.Writer so header and payload reach the OS in a single write.
type FrameWriter struct {
	w   io.Writer
	buf []byte
}

// NewFrameWriter creates a writer that wraps w.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame encodes payload as a frame and writes it.
func (fw *FrameWriter) WriteFrame(payload []byte) error {
	fw.buf = AppendFrame(fw.buf[:0], payload)
	_, err := fw.w.Write(fw.buf)
	return err
}

// ReadFrame reads the next frame from r, validating the magic byte and checksum.
// It returns the payload, the number of bytes consumed and an error.
// A clean end of stream at a frame boundary returns io.EOF.
func ReadFrame(r io.Reader) ([]byte, int, error) {
	var header [HeaderSize]byte

	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, 0, io.EOF
		}
		return nil, 0, ErrIncompleteFrame
	}

	if header[0] != MagicByte {
		return nil, HeaderSize, ErrInvalidMagic
	}

	length := binary.LittleEndian.Uint32(header[2:6])
	expectedCRC := binary.LittleEndian.Uint32(header[6:10])
	if length > MaxFrameSize {
		return nil, HeaderSize, ErrFrameTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, HeaderSize, ErrIncompleteFrame
	}

	if crc32.ChecksumIEEE(payload) != expectedCRC {
		return nil, HeaderSize + int(length), ErrChecksumMismatch
	}

	return payload, HeaderSize + int(length), nil
}

package persistence

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedCommand is returned by ParseCommand for a payload that is not a
// well-formed RESP array of bulk strings.
var ErrMalformedCommand = errors.New("persistence: malformed command")

// Command is a parsed log command.
type Command struct {
	// Name is the upper-case command name, e.g. "SET".
	Name string
	// Args are binary-safe arguments.
	Args [][]byte
}

// FormatCommand encodes a command as a RESP array of bulk strings.
func FormatCommand(name string, args ...[]byte) []byte {
	n := 16 + len(name)
	for _, a := range args {
		n += len(a) + 16
	}
	b := make([]byte, 0, n)

	b = append(b, '*')
	b = strconv.AppendInt(b, int64(1+len(args)), 10)
	b = append(b, '\r', '\n')
	b = appendBulk(b, []byte(name))
	for _, a := range args {
		b = appendBulk(b, a)
	}
	return b
}

func appendBulk(b, s []byte) []byte {
	b = append(b, '$')
	b = strconv.AppendInt(b, int64(len(s)), 10)
	b = append(b, '\r', '\n')
	b = append(b, s...)
	return append(b, '\r', '\n')
}

// ParseCommand decodes a RESP array produced by FormatCommand.
func ParseCommand(payload []byte) (*Command, error) {
	n, rest, err := readLength(payload, '*')
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: empty array", ErrMalformedCommand)
	}

	parts := make([][]byte, n)
	for i := range parts {
		var size int
		size, rest, err = readLength(rest, '$')
		if err != nil {
			return nil, err
		}
		if size < 0 || len(rest) < size+2 {
			return nil, fmt.Errorf("%w: bulk string of %d bytes truncated", ErrMalformedCommand, size)
		}
		parts[i] = rest[:size]
		if rest[size] != '\r' || rest[size+1] != '\n' {
			return nil, fmt.Errorf("%w: missing CRLF after bulk string", ErrMalformedCommand)
		}
		rest = rest[size+2:]
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedCommand, len(rest))
	}

	return &Command{
		Name: string(bytes.ToUpper(parts[0])),
		Args: parts[1:],
	}, nil
}

// readLength parses "<prefix><int>\r\n" at the start of b.
func readLength(b []byte, prefix byte) (int, []byte, error) {
	if len(b) == 0 || b[0] != prefix {
		return 0, nil, fmt.Errorf("%w: expected %q", ErrMalformedCommand, prefix)
	}
	end := bytes.Index(b, []byte("\r\n"))
	if end < 0 {
		return 0, nil, fmt.Errorf("%w: unterminated header", ErrMalformedCommand)
	}
	n, err := strconv.Atoi(string(b[1:end]))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: bad length: %v", ErrMalformedCommand, err)
	}
	return n, b[end+2:], nil
}

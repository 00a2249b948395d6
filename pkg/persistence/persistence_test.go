package persistence

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	fw := NewFrameWriter(&buf)
	payloads := [][]byte{[]byte("hello"), {}, []byte("with\x00null")}
	for _, p := range payloads {
		if err := fw.WriteFrame(p); err != nil {
			t.Fatal(err)
		}
	}

	for i, want := range payloads {
		got, n, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) || n != HeaderSize+len(want) {
			t.Errorf("frame %d = %q (%d bytes), want %q", i, got, n, want)
		}
	}
	if _, _, err := ReadFrame(&buf); err != io.EOF {
		t.Errorf("want io.EOF at end, got %v", err)
	}
}

func TestFrameErrors(t *testing.T) {
	frame := AppendFrame(nil, []byte("payload"))

	if _, _, err := ReadFrame(bytes.NewReader(frame[:5])); !errors.Is(err, ErrIncompleteFrame) {
		t.Errorf("short header: %v", err)
	}
	if _, _, err := ReadFrame(bytes.NewReader(frame[:len(frame)-1])); !errors.Is(err, ErrIncompleteFrame) {
		t.Errorf("short payload: %v", err)
	}

	bad := bytes.Clone(frame)
	bad[0] = 0x00
	if _, _, err := ReadFrame(bytes.NewReader(bad)); !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("bad magic: %v", err)
	}

	bad = bytes.Clone(frame)
	bad[len(bad)-1] ^= 0xFF
	if _, _, err := ReadFrame(bytes.NewReader(bad)); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("bad crc: %v", err)
	}
}

func TestCommandRoundTrip(t *testing.T) {
	raw := FormatCommand("set", []byte("Title\r\nwith CRLF"), []byte("L"), []byte("A<|>B"), nil)
	cmd, err := ParseCommand(raw)
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Name != "SET" {
		t.Errorf("Name = %q", cmd.Name)
	}
	want := []string{"Title\r\nwith CRLF", "L", "A<|>B", ""}
	if len(cmd.Args) != len(want) {
		t.Fatalf("got %d args", len(cmd.Args))
	}
	for i, w := range want {
		if string(cmd.Args[i]) != w {
			t.Errorf("arg %d = %q, want %q", i, cmd.Args[i], w)
		}
	}

	for _, bad := range []string{"", "$3\r\nSET\r\n", "*1\r\n$9\r\nSET\r\n", "*1\r\n$3\r\nSETXX", "*1\r\n$3\r\nSET\r\nextra"} {
		if _, err := ParseCommand([]byte(bad)); !errors.Is(err, ErrMalformedCommand) {
			t.Errorf("ParseCommand(%q): want ErrMalformedCommand, got %v", bad, err)
		}
	}
}

func TestLazyWriterReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.aof")
	w, err := NewAOFWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	lw := NewLazyAOFWriterWithConfig(w, 0, 3)
	for _, title := range []string{"A", "B", "C", "D"} {
		if err := lw.Write(FormatCommand("SET", []byte(title))); err != nil {
			t.Fatal(err)
		}
	}
	if err := lw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := lw.Write(FormatCommand("SET", []byte("E"))); !errors.Is(err, ErrWriterClosed) {
		t.Errorf("write after close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var got []string
	frames, truncated, err := Replay(f, func(cmd *Command) error {
		got = append(got, string(cmd.Args[0]))
		return nil
	})
	if err != nil || truncated || frames != 4 {
		t.Fatalf("Replay = %d frames, truncated %v, err %v", frames, truncated, err)
	}
	if len(got) != 4 || got[0] != "A" || got[3] != "D" {
		t.Errorf("replayed %v", got)
	}
}

package table

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func fixture() map[string]Entry {
	return map[string]Entry{
		"Bedford":                   Page("Paul Singer (businessman)", "X"),
		"Paul Singer (businessman)": Page("Bedford"),
		"Bedfordshire":              RedirectTo("Bedford"),
		"Talk:Bedford":              RedirectTo(""),
		"Empty":                     Page(),
	}
}

func fill(t *testing.T, w Writer) {
	t.Helper()
	ctx := context.Background()
	for title, e := range fixture() {
		if err := w.Put(ctx, title, e); err != nil {
			t.Fatalf("Put(%q): %v", title, err)
		}
	}
}

func checkStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for title, want := range fixture() {
		got, ok, err := s.Lookup(ctx, title)
		if err != nil || !ok {
			t.Fatalf("Lookup(%q) = found %v, err %v", title, ok, err)
		}
		if got.Redirect != want.Redirect || got.Target != want.Target || len(got.Links) != len(want.Links) {
			t.Errorf("Lookup(%q) = %+v, want %+v", title, got, want)
			continue
		}
		for i := range want.Links {
			if got.Links[i] != want.Links[i] {
				t.Errorf("Lookup(%q).Links[%d] = %q, want %q", title, i, got.Links[i], want.Links[i])
			}
		}
	}

	if _, ok, err := s.Lookup(ctx, "bedford"); ok || err != nil {
		t.Errorf("lookups must be case-sensitive: found=%v err=%v", ok, err)
	}

	if p, ok := s.(Prefixer); ok {
		got, err := p.TitlesWithPrefix(ctx, "Bedford", 0)
		if err != nil {
			t.Fatal(err)
		}
		if want := []string{"Bedford", "Bedfordshire"}; !reflect.DeepEqual(got, want) {
			t.Errorf("TitlesWithPrefix = %v, want %v", got, want)
		}
		got, _ = p.TitlesWithPrefix(ctx, "", 2)
		if len(got) != 2 {
			t.Errorf("TitlesWithPrefix limit 2 returned %d titles", len(got))
		}
	}
}

func TestEntryPayload(t *testing.T) {
	e := Page("A", "B c", "")
	if got := e.Payload(); got != "A<|>B c<|>" {
		t.Fatalf("Payload = %q", got)
	}
	back := ParseEntry(false, e.Payload())
	if !reflect.DeepEqual(back.Links, []string{"A", "B c", ""}) {
		t.Errorf("ParseEntry links = %q", back.Links)
	}
	if ParseEntry(false, "").Links != nil {
		t.Error("empty payload should decode to no links")
	}
	if r := ParseEntry(true, ""); !r.Filtered() {
		t.Error("empty redirect target should be filtered")
	}
	if r := ParseEntry(true, "B"); r.Filtered() || r.Target != "B" {
		t.Errorf("redirect = %+v", r)
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	fill(t, m)
	checkStore(t, m)

	if err := m.Put(context.Background(), "bad<|>title", Page()); !errors.Is(err, ErrInvalidTitle) {
		t.Errorf("want ErrInvalidTitle, got %v", err)
	}
	if m.Len() != len(fixture()) {
		t.Errorf("Len = %d", m.Len())
	}
}

func TestAOFRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles.aof")
	w, err := CreateAOF(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	fill(t, w)
	// Later records win; tombstones remove.
	ctx := context.Background()
	if err := w.Put(ctx, "Gone", Page("Bedford")); err != nil {
		t.Fatal(err)
	}
	if err := w.Delete(ctx, "Gone"); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close: want ErrClosed, got %v", err)
	}

	s, err := OpenAOF(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	checkStore(t, s)
	if _, ok, _ := s.Lookup(ctx, "Gone"); ok {
		t.Error("deleted title still present")
	}
}

func TestAOFTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles.aof")
	w, err := CreateAOF(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	fill(t, w)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	// Simulate a crash in the middle of appending a frame.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.Write([]byte{0xA5, 0x01, 0xFF})
	f.Close()

	s, err := OpenAOF(path)
	if err != nil {
		t.Fatalf("torn tail should be tolerated: %v", err)
	}
	checkStore(t, s)
}

func TestAOFCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles.aof")
	w, err := CreateAOF(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	fill(t, w)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Flip a payload byte of the first frame.
	data[12] ^= 0xFF
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := OpenAOF(path); !errors.Is(err, ErrCorruptLog) {
		t.Fatalf("want ErrCorruptLog, got %v", err)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "table.db")

	// Batch size 2 exercises both full batches and the trailing remainder.
	w, err := CreateSQLite(ctx, path, 2)
	if err != nil {
		t.Fatal(err)
	}
	fill(t, w)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	checkStore(t, s)
}

func TestSQLiteURIDelimitersInPath(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "odd #1?")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "table?v=2#x.db")

	w, err := CreateSQLite(ctx, path, 0)
	if err != nil {
		t.Fatal(err)
	}
	fill(t, w)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("table not created at the literal path: %v", err)
	}

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	checkStore(t, s)
}

func TestSQLiteWriterBatchHonorsContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.db")
	w, err := CreateSQLite(context.Background(), path, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Put(ctx, "Bedford", Page("X")); !errors.Is(err, context.Canceled) {
		t.Fatalf("Put with cancelled context: want context.Canceled, got %v", err)
	}
}

func TestBadgerInMemory(t *testing.T) {
	s, err := OpenBadger(BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	w := s.Writer(3)
	fill(t, w)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	checkStore(t, s)
}

func TestBadgerOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	w, err := Create(ctx, BackendBadger, dir, 0)
	if err != nil {
		t.Fatal(err)
	}
	fill(t, w)
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	s, err := Open(ctx, BackendBadger, dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	checkStore(t, s)
}

func TestImport(t *testing.T) {
	input := strings.Join([]string{
		"# title\tkind\tpayload",
		"Bedford\tL\tPaul Singer (businessman)<|>X",
		"",
		"Bedfordshire\tR\tBedford",
		"Talk:Bedford\tR\t",
		"Empty\tL",
	}, "\n")

	m := NewMemory()
	var seen []int
	n, err := Import(context.Background(), strings.NewReader(input), m, ImportOptions{
		ProgressEvery: 2,
		OnProgress:    func(records int) { seen = append(seen, records) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("imported %d records, want 4", n)
	}
	if !reflect.DeepEqual(seen, []int{2, 4}) {
		t.Errorf("progress calls = %v", seen)
	}

	e, ok, _ := m.Lookup(context.Background(), "Talk:Bedford")
	if !ok || !e.Filtered() {
		t.Errorf("Talk:Bedford = %+v, found %v", e, ok)
	}

	_, err = Import(context.Background(), strings.NewReader("A\tQ\tB\n"), m, ImportOptions{})
	if !errors.Is(err, ErrMalformedLine) || !strings.Contains(err.Error(), "line 1") {
		t.Errorf("want ErrMalformedLine on line 1, got %v", err)
	}
}

func TestParseBackend(t *testing.T) {
	for _, s := range []string{"memory", "AOF", " sqlite ", "badger"} {
		if _, err := ParseBackend(s); err != nil {
			t.Errorf("ParseBackend(%q): %v", s, err)
		}
	}
	if _, err := ParseBackend("postgres"); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("want ErrUnknownBackend, got %v", err)
	}
	if _, err := Create(context.Background(), BackendMemory, "", 0); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("memory backend is not a file writer, got %v", err)
	}
}

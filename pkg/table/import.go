package table

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedLine is returned by Import for a line that is not a valid record.
var ErrMalformedLine = errors.New("table: malformed import line")

// ImportProgress is called by Import every ImportOptions.ProgressEvery records.
type ImportProgress func(records int)

// ImportOptions tunes Import.
type ImportOptions struct {
	// ProgressEvery is the record interval for OnProgress. 0 disables it.
	ProgressEvery int
	OnProgress    ImportProgress
}

// Import reads pre-extracted adjacency records from r and writes them to w.
//
// Each line holds one record of three tab-separated fields:
//
//	title <TAB> kind <TAB> payload
//
// kind is "L" for a page (payload: link titles joined by Delimiter) or "R"
// for a redirect (payload: target title, empty for a filtered redirect).
// Blank lines and lines starting with '#' are skipped. Import does not close w.
func Import(ctx context.Context, r io.Reader, w Writer, opts ImportOptions) (int, error) {
	sc := bufio.NewScanner(r)
	// Link-heavy pages produce very long lines.
	sc.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	count := 0
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		title, e, err := parseImportLine(line)
		if err != nil {
			return count, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := w.Put(ctx, title, e); err != nil {
			return count, fmt.Errorf("line %d: %w", lineNo, err)
		}
		count++

		if opts.ProgressEvery > 0 && opts.OnProgress != nil && count%opts.ProgressEvery == 0 {
			opts.OnProgress(count)
		}
		if count%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return count, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return count, fmt.Errorf("read import stream: %w", err)
	}
	return count, nil
}

func parseImportLine(line string) (string, Entry, error) {
	fields := strings.SplitN(line, "\t", 3)
	if len(fields) < 2 {
		return "", Entry{}, fmt.Errorf("%w: want 3 tab-separated fields", ErrMalformedLine)
	}
	payload := ""
	if len(fields) == 3 {
		payload = fields[2]
	}

	title := fields[0]
	switch fields[1] {
	case kindLinks:
		return title, ParseEntry(false, payload), nil
	case kindRedirect:
		return title, RedirectTo(payload), nil
	}
	return "", Entry{}, fmt.Errorf("%w: unknown kind %q", ErrMalformedLine, fields[1])
}

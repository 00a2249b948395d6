package table

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

const (
	sqliteSchema = `
CREATE TABLE IF NOT EXISTS page_references (
    title TEXT PRIMARY KEY,
    links TEXT,
    is_redirect INTEGER
);`

	// Bulk-load settings: the table is rebuilt from scratch, so durability
	// during the load is traded for speed.
	sqliteBulkPragmas = `
PRAGMA journal_mode = OFF;
PRAGMA synchronous = 0;
PRAGMA cache_size = 1000000;
PRAGMA locking_mode = EXCLUSIVE;
PRAGMA temp_store = MEMORY;`

	sqliteLookup = `SELECT links, is_redirect FROM page_references WHERE title = ?`
	sqlitePrefix = `SELECT title FROM page_references WHERE title >= ? ORDER BY title LIMIT ?`

	// DefaultSQLiteBatchSize is the number of rows per multi-row INSERT.
	DefaultSQLiteBatchSize = 1000

	// maxSQLiteBatchSize keeps 3 parameters per row under SQLite's 32766 limit.
	maxSQLiteBatchSize = 10000
)

// sqliteURI turns a file path into a SQLite URI filename, so that '?' and
// '#' in the path are not read as URI delimiters.
func sqliteURI(path, query string) string {
	uri := "file:" + (&url.URL{Path: path}).EscapedPath()
	if query != "" {
		uri += "?" + query
	}
	return uri
}

// SQLite serves a title table stored in a SQLite database with the
// page_references(title, links, is_redirect) layout.
type SQLite struct {
	db     *sql.DB
	lookup *sql.Stmt
	prefix *sql.Stmt
}

// OpenSQLite opens the database at path read-only.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", sqliteURI(path, "mode=ro&_pragma=query_only(1)"))
	if err != nil {
		return nil, fmt.Errorf("open sqlite table: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite table %s: %w", path, err)
	}

	lookup, err := db.PrepareContext(ctx, sqliteLookup)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare lookup: %w", err)
	}
	prefix, err := db.PrepareContext(ctx, sqlitePrefix)
	if err != nil {
		lookup.Close()
		db.Close()
		return nil, fmt.Errorf("prepare prefix scan: %w", err)
	}
	return &SQLite{db: db, lookup: lookup, prefix: prefix}, nil
}

// Lookup implements Store.
func (s *SQLite) Lookup(ctx context.Context, title string) (Entry, bool, error) {
	var (
		links    sql.NullString
		redirect sql.NullInt64
	)
	err := s.lookup.QueryRowContext(ctx, title).Scan(&links, &redirect)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("sqlite lookup %q: %w", title, err)
	}
	return ParseEntry(redirect.Int64 != 0, links.String), true, nil
}

// TitlesWithPrefix implements Prefixer.
func (s *SQLite) TitlesWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	// LIMIT -1 is unbounded in SQLite; the scan stops at the first title
	// past the prefix.
	page := limit
	if page <= 0 {
		page = -1
	}
	rows, err := s.prefix.QueryContext(ctx, prefix, page)
	if err != nil {
		return nil, fmt.Errorf("sqlite prefix scan: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		if !strings.HasPrefix(title, prefix) {
			break
		}
		out = append(out, title)
	}
	return out, rows.Err()
}

// Close implements Store.
func (s *SQLite) Close() error {
	s.lookup.Close()
	s.prefix.Close()
	return s.db.Close()
}

// SQLiteWriter bulk-loads rows with multi-row INSERT statements, one
// transaction per batch.
type SQLiteWriter struct {
	mu        sync.Mutex
	db        *sql.DB
	batchSize int
	batch     []any
	stmt      *sql.Stmt
	closed    bool
}

// CreateSQLite opens (creating if needed) the database at path for bulk loading.
// Rows for an existing title replace the stored row.
func CreateSQLite(ctx context.Context, path string, batchSize int) (*SQLiteWriter, error) {
	if batchSize <= 0 {
		batchSize = DefaultSQLiteBatchSize
	}
	batchSize = min(batchSize, maxSQLiteBatchSize)

	db, err := sql.Open("sqlite", sqliteURI(path, ""))
	if err != nil {
		return nil, fmt.Errorf("create sqlite table: %w", err)
	}
	// PRAGMAs are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteBulkPragmas); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply bulk pragmas: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	stmt, err := db.PrepareContext(ctx, insertStatement(batchSize))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare batch insert: %w", err)
	}

	return &SQLiteWriter{
		db:        db,
		batchSize: batchSize,
		batch:     make([]any, 0, batchSize*3),
		stmt:      stmt,
	}, nil
}

func insertStatement(rows int) string {
	var b strings.Builder
	b.WriteString("INSERT OR REPLACE INTO page_references (title, links, is_redirect) VALUES ")
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?)")
	}
	return b.String()
}

// Put implements Writer.
func (w *SQLiteWriter) Put(ctx context.Context, title string, e Entry) error {
	if err := validTitle(title); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	w.batch = append(w.batch, title, e.Payload(), boolToInt(e.Redirect))
	if len(w.batch) < w.batchSize*3 {
		return nil
	}
	if err := w.exec(ctx, w.stmt, ""); err != nil {
		return fmt.Errorf("sqlite batch insert: %w", err)
	}
	w.batch = w.batch[:0]
	return nil
}

// exec inserts the pending batch inside a transaction, through stmt when
// it is set and through query otherwise.
func (w *SQLiteWriter) exec(ctx context.Context, stmt *sql.Stmt, query string) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if stmt != nil {
		_, err = tx.StmtContext(ctx, stmt).ExecContext(ctx, w.batch...)
	} else {
		_, err = tx.ExecContext(ctx, query, w.batch...)
	}
	if err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// flushRemainder writes rows that do not fill a whole batch.
func (w *SQLiteWriter) flushRemainder(ctx context.Context) error {
	rows := len(w.batch) / 3
	if rows == 0 {
		return nil
	}
	if err := w.exec(ctx, nil, insertStatement(rows)); err != nil {
		return fmt.Errorf("sqlite insert of %d trailing rows: %w", rows, err)
	}
	w.batch = w.batch[:0]
	return nil
}

// Close implements Writer.
func (w *SQLiteWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.closed = true

	err := w.flushRemainder(context.Background())
	w.stmt.Close()
	if cerr := w.db.Close(); err == nil {
		err = cerr
	}
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

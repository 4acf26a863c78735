package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

type sqliteEngine struct {
	*sqlEngine
}

func openSQLiteEngine(ctx context.Context, path string) (*sqliteEngine, error) {
	uri, err := sqliteURI(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", uri)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return newSQLiteEngine(db), nil
}

func newSQLiteEngine(db *sql.DB) *sqliteEngine {
	return &sqliteEngine{sqlEngine: newSQLEngine("sqlite", DialectSQLite, db)}
}

// DescribeTable reads PRAGMA table_info; a missing table yields no rows rather than an error.
func (s *sqliteEngine) DescribeTable(ctx context.Context, table string) ([]Column, error) {
	q := fmt.Sprintf("PRAGMA table_info(\"%s\")", strings.ReplaceAll(table, "\"", "\"\""))
	rows, err := s.queryer().QueryContext(ctx, q)
	if err != nil {
		return nil, &DbError{Statement: q, Err: err}
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var cid, notnull, pk int
		var name, colType string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notnull, &dflt, &pk); err != nil {
			return nil, &DbError{Statement: q, Err: err}
		}
		cols = append(cols, Column{Name: name, DeclaredType: colType})
	}
	if err := rows.Err(); err != nil {
		return nil, &DbError{Statement: q, Err: err}
	}
	if len(cols) == 0 {
		return nil, &SchemaError{Table: table, Reason: "table does not exist"}
	}
	return cols, nil
}

// --- DSN handling ---

// sqliteURI turns a plain path or file: URI into a read-write-create URI.
func sqliteURI(dsn string) (string, error) {
	if dsn == ":memory:" || dsn == "file::memory:" ||
		strings.Contains(dsn, "mode=memory") {
		return "", fmt.Errorf("in-memory SQLite databases are not supported (each handle would see a separate DB)")
	}

	if !strings.HasPrefix(dsn, "file:") {
		return "file:" + dsn + "?mode=rwc", nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse sqlite URI: %w", err)
	}
	q := u.Query()
	if q.Get("mode") == "" {
		q.Set("mode", "rwc")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// sqliteDBName returns the file's base name without extension, for logging.
func sqliteDBName(dsn string) string {
	path := dsn
	if strings.HasPrefix(dsn, "file:") {
		path = strings.TrimPrefix(dsn, "file:")
		if idx := strings.IndexByte(path, '?'); idx >= 0 {
			path = path[:idx]
		}
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		return "sqlite"
	}
	return base
}

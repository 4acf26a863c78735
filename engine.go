package main

import (
	"context"
	"database/sql"
	"fmt"
)

// Engine abstracts one database engine so panels and migrations can be written once
// for MySQL, PostgreSQL and SQLite.
//
// An Engine owns exactly one connection. At most one operation may be in flight on it;
// there is no internal locking.
type Engine interface {
	// Name returns the engine key ("mysql", "postgres", "sqlite").
	Name() string

	// Dialect returns the SQL dialect statements for this engine are written in.
	Dialect() Dialect

	// DescribeTable returns the table's columns in ordinal order with the identity marked.
	DescribeTable(ctx context.Context, table string) ([]Column, error)

	// FetchAll returns every row of the table in engine order.
	FetchAll(ctx context.Context, table string) ([]Row, error)

	// Exec runs one statement inside the engine's current transaction, beginning one if needed.
	Exec(ctx context.Context, stmt string) (ExecResult, error)

	// Commit commits the current transaction. It is a no-op when none is open.
	Commit(ctx context.Context) error

	// Rollback discards the current transaction. It is a no-op when none is open.
	Rollback(ctx context.Context) error

	// Close rolls back any open transaction and releases the connection.
	Close() error
}

// ExecResult summarises one executed statement.
type ExecResult struct {
	RowsAffected int64
	LastInsertID int64 // 0 when the driver does not report one
}

// openEngine connects to the named engine.
func openEngine(ctx context.Context, name string, ec EngineConfig) (Engine, error) {
	d, err := parseDialect(name)
	if err != nil {
		return nil, err
	}
	var eng Engine
	switch d {
	case DialectMySQL:
		eng, err = openMySQLEngine(ctx, ec.DSN)
	case DialectPostgres:
		eng, err = openPostgresEngine(ctx, ec.DSN)
	case DialectSQLite:
		eng, err = openSQLiteEngine(ctx, ec.Path)
	}
	if err != nil {
		return nil, &ConnectError{Engine: name, Err: err}
	}
	return eng, nil
}

// sqlEngine is the database/sql core shared by the MySQL and SQLite engines.
type sqlEngine struct {
	name    string
	dialect Dialect
	db      *sql.DB
	tx      *sql.Tx
}

// sqlQueryer is satisfied by both *sql.DB and *sql.Tx.
type sqlQueryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func newSQLEngine(name string, d Dialect, db *sql.DB) *sqlEngine {
	// One connection per handle; reads during an open transaction go through it.
	db.SetMaxOpenConns(1)
	return &sqlEngine{name: name, dialect: d, db: db}
}

func (e *sqlEngine) Name() string     { return e.name }
func (e *sqlEngine) Dialect() Dialect { return e.dialect }

func (e *sqlEngine) queryer() sqlQueryer {
	if e.tx != nil {
		return e.tx
	}
	return e.db
}

func (e *sqlEngine) FetchAll(ctx context.Context, table string) ([]Row, error) {
	q := fmt.Sprintf("SELECT * FROM %s", table)
	rows, err := e.queryer().QueryContext(ctx, q)
	if err != nil {
		return nil, &DbError{Statement: q, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &DbError{Statement: q, Err: err}
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &DbError{Statement: q, Err: err}
		}
		row := make(Row, len(cols))
		for i, v := range vals {
			// MySQL's text protocol hands back raw bytes; keep them as text.
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
				continue
			}
			row[i] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &DbError{Statement: q, Err: err}
	}
	return out, nil
}

func (e *sqlEngine) Exec(ctx context.Context, stmt string) (ExecResult, error) {
	if e.tx == nil {
		tx, err := e.db.BeginTx(ctx, nil)
		if err != nil {
			return ExecResult{}, &DbError{Statement: "BEGIN", Err: err}
		}
		e.tx = tx
	}
	res, err := e.tx.ExecContext(ctx, stmt)
	if err != nil {
		return ExecResult{}, &DbError{Statement: stmt, Err: err}
	}
	var out ExecResult
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out, nil
}

func (e *sqlEngine) Commit(_ context.Context) error {
	if e.tx == nil {
		return nil
	}
	tx := e.tx
	e.tx = nil
	if err := tx.Commit(); err != nil {
		return &DbError{Statement: "COMMIT", Err: err}
	}
	return nil
}

func (e *sqlEngine) Rollback(_ context.Context) error {
	if e.tx == nil {
		return nil
	}
	tx := e.tx
	e.tx = nil
	if err := tx.Rollback(); err != nil {
		return &DbError{Statement: "ROLLBACK", Err: err}
	}
	return nil
}

func (e *sqlEngine) Close() error {
	if e.tx != nil {
		_ = e.tx.Rollback()
		e.tx = nil
	}
	return e.db.Close()
}

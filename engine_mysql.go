package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql" // registers the "mysql" database/sql driver
)

type mysqlEngine struct {
	*sqlEngine
}

func openMySQLEngine(ctx context.Context, dsn string) (*mysqlEngine, error) {
	fullDSN, err := mysqlDSNWithOptions(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", fullDSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return newMySQLEngine(db), nil
}

func newMySQLEngine(db *sql.DB) *mysqlEngine {
	return &mysqlEngine{sqlEngine: newSQLEngine("mysql", DialectMySQL, db)}
}

// DescribeTable reads SHOW COLUMNS, which reports the full column type
// (e.g. tinyint(1) for BOOLEAN) rather than the bare driver type name.
func (m *mysqlEngine) DescribeTable(ctx context.Context, table string) ([]Column, error) {
	q := fmt.Sprintf("SHOW COLUMNS FROM %s", table)
	rows, err := m.queryer().QueryContext(ctx, q)
	if err != nil {
		return nil, &DbError{Statement: q, Err: err}
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var field, colType, null, key, extra string
		var dflt sql.NullString
		if err := rows.Scan(&field, &colType, &null, &key, &dflt, &extra); err != nil {
			return nil, &DbError{Statement: q, Err: err}
		}
		cols = append(cols, Column{Name: field, DeclaredType: strings.ToLower(colType)})
	}
	if err := rows.Err(); err != nil {
		return nil, &DbError{Statement: q, Err: err}
	}
	if len(cols) == 0 {
		return nil, &SchemaError{Table: table, Reason: "no columns reported"}
	}
	return cols, nil
}

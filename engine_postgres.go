package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type postgresEngine struct {
	conn *pgx.Conn
	tx   pgx.Tx
}

// pgQuerier is satisfied by both *pgx.Conn and pgx.Tx.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func openPostgresEngine(ctx context.Context, dsn string) (*postgresEngine, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &postgresEngine{conn: conn}, nil
}

func (p *postgresEngine) Name() string     { return "postgres" }
func (p *postgresEngine) Dialect() Dialect { return DialectPostgres }

func (p *postgresEngine) querier() pgQuerier {
	if p.tx != nil {
		return p.tx
	}
	return p.conn
}

// DescribeTable issues a zero-row query and names each column's type from its OID.
func (p *postgresEngine) DescribeTable(ctx context.Context, table string) ([]Column, error) {
	q := fmt.Sprintf("SELECT * FROM %s LIMIT 0", table)
	rows, err := p.querier().Query(ctx, q)
	if err != nil {
		return nil, &DbError{Statement: q, Err: err}
	}
	fields := rows.FieldDescriptions()
	typeMap := p.conn.TypeMap()
	cols := make([]Column, 0, len(fields))
	for _, fd := range fields {
		typeName := fmt.Sprintf("oid:%d", fd.DataTypeOID)
		if t, ok := typeMap.TypeForOID(fd.DataTypeOID); ok {
			typeName = t.Name
		}
		cols = append(cols, Column{Name: fd.Name, DeclaredType: typeName})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, &DbError{Statement: q, Err: err}
	}
	if len(cols) == 0 {
		return nil, &SchemaError{Table: table, Reason: "no columns reported"}
	}
	return cols, nil
}

func (p *postgresEngine) FetchAll(ctx context.Context, table string) ([]Row, error) {
	q := fmt.Sprintf("SELECT * FROM %s", table)
	rows, err := p.querier().Query(ctx, q)
	if err != nil {
		return nil, &DbError{Statement: q, Err: err}
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, &DbError{Statement: q, Err: err}
		}
		out = append(out, Row(vals))
	}
	if err := rows.Err(); err != nil {
		return nil, &DbError{Statement: q, Err: err}
	}
	return out, nil
}

func (p *postgresEngine) Exec(ctx context.Context, stmt string) (ExecResult, error) {
	if p.tx == nil {
		tx, err := p.conn.Begin(ctx)
		if err != nil {
			return ExecResult{}, &DbError{Statement: "BEGIN", Err: err}
		}
		p.tx = tx
	}
	if strings.HasSuffix(stmt, " RETURNING "+identityColumn) {
		var id int64
		if err := p.tx.QueryRow(ctx, stmt).Scan(&id); err != nil {
			return ExecResult{}, &DbError{Statement: stmt, Err: err}
		}
		return ExecResult{RowsAffected: 1, LastInsertID: id}, nil
	}
	tag, err := p.tx.Exec(ctx, stmt)
	if err != nil {
		return ExecResult{}, &DbError{Statement: stmt, Err: err}
	}
	return ExecResult{RowsAffected: tag.RowsAffected()}, nil
}

func (p *postgresEngine) Commit(ctx context.Context) error {
	if p.tx == nil {
		return nil
	}
	tx := p.tx
	p.tx = nil
	if err := tx.Commit(ctx); err != nil {
		return &DbError{Statement: "COMMIT", Err: err}
	}
	return nil
}

func (p *postgresEngine) Rollback(ctx context.Context) error {
	if p.tx == nil {
		return nil
	}
	tx := p.tx
	p.tx = nil
	if err := tx.Rollback(ctx); err != nil {
		return &DbError{Statement: "ROLLBACK", Err: err}
	}
	return nil
}

func (p *postgresEngine) Close() error {
	ctx := context.Background()
	if p.tx != nil {
		_ = p.tx.Rollback(ctx)
		p.tx = nil
	}
	return p.conn.Close(ctx)
}

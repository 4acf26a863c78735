package main

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect is the closed set of SQL dialects the tool writes.
type Dialect int

const (
	DialectMySQL Dialect = iota
	DialectPostgres
	DialectSQLite
)

func (d Dialect) String() string {
	switch d {
	case DialectMySQL:
		return "MySQL"
	case DialectPostgres:
		return "PostgreSQL"
	case DialectSQLite:
		return "SQLite"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// quoteChar is the character wrapped around string literals.
func (d Dialect) quoteChar() string {
	if d == DialectPostgres {
		return "'"
	}
	return `"`
}

func (d Dialect) nullLiteral() string {
	return "NULL"
}

// hasBooleanLiterals reports whether boolean-ish columns take TRUE/FALSE rather than 1/0.
func (d Dialect) hasBooleanLiterals() bool {
	return d == DialectPostgres
}

// commitsDDL reports whether DDL implicitly commits the open transaction. MySQL does;
// PostgreSQL and SQLite run DDL inside the transaction.
func (d Dialect) commitsDDL() bool {
	return d == DialectMySQL
}

// hasInsertReturning reports whether an INSERT can hand back the assigned identity.
func (d Dialect) hasInsertReturning() bool {
	return d == DialectPostgres
}

// quoteString wraps s in the dialect's quote character.
// Embedded quote characters are not escaped.
func (d Dialect) quoteString(s string) string {
	q := d.quoteChar()
	return q + s + q
}

// isBooleanType reports whether a declared column type holds a single-bit flag:
// MySQL reports BOOLEAN as tinyint(1), PostgreSQL as bool.
func isBooleanType(declaredType string) bool {
	t := strings.ToLower(strings.TrimSpace(declaredType))
	switch t {
	case "bool", "boolean":
		return true
	}
	n, ok := columnTypeLength(t, "tinyint")
	return ok && n == 1
}

// columnTypeLength extracts N from a declared type of the form base(N).
func columnTypeLength(columnType, baseType string) (int64, bool) {
	ct := strings.ToLower(strings.TrimSpace(columnType))
	prefix := baseType + "("
	if !strings.HasPrefix(ct, prefix) {
		return 0, false
	}
	rest := ct[len(prefix):]
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(rest[:end]), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseDialect maps an engine name from the CLI or config to its dialect.
func parseDialect(engine string) (Dialect, error) {
	switch engine {
	case "mysql":
		return DialectMySQL, nil
	case "postgres":
		return DialectPostgres, nil
	case "sqlite":
		return DialectSQLite, nil
	default:
		return 0, fmt.Errorf("unsupported engine %q (must be mysql, postgres or sqlite)", engine)
	}
}

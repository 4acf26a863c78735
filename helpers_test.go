package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// memEngine is an Engine double that keeps one table in memory. It understands just
// enough of the statements this package generates to track schema and rows, and records
// every statement it is given.
type memEngine struct {
	name    string
	dialect Dialect

	columns []Column
	rows    []Row
	nextID  int64

	// failOn makes Exec fail for any statement containing the substring.
	failOn string

	executed   []string
	committed  []string
	pending    []string
	rollbacks  int
	closed     bool
	snapshotAt struct {
		columns []Column
		rows    []Row
	}
}

func newMemEngine(name string, d Dialect) *memEngine {
	return &memEngine{name: name, dialect: d, nextID: 1}
}

// seed installs a table with the given columns and rows, as if committed.
func (m *memEngine) seed(cols []Column, rows ...Row) *memEngine {
	m.columns = cols
	m.rows = rows
	for _, r := range rows {
		for i, c := range cols {
			if c.Name == identityColumn {
				if text, ok := valueText(r[i]); ok {
					var n int64
					fmt.Sscan(text, &n)
					if n >= m.nextID {
						m.nextID = n + 1
					}
				}
			}
		}
	}
	m.checkpoint()
	return m
}

func (m *memEngine) checkpoint() {
	m.snapshotAt.columns = append([]Column(nil), m.columns...)
	m.snapshotAt.rows = append([]Row(nil), m.rows...)
}

func (m *memEngine) Name() string     { return m.name }
func (m *memEngine) Dialect() Dialect { return m.dialect }

func (m *memEngine) DescribeTable(_ context.Context, table string) ([]Column, error) {
	if len(m.columns) == 0 {
		return nil, &SchemaError{Table: table, Reason: "table does not exist"}
	}
	cols := make([]Column, len(m.columns))
	copy(cols, m.columns)
	return cols, nil
}

func (m *memEngine) FetchAll(_ context.Context, _ string) ([]Row, error) {
	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *memEngine) Exec(_ context.Context, stmt string) (ExecResult, error) {
	m.executed = append(m.executed, stmt)
	if m.failOn != "" && strings.Contains(stmt, m.failOn) {
		return ExecResult{}, &DbError{Statement: stmt, Err: errors.New("constraint failed")}
	}
	m.pending = append(m.pending, stmt)

	switch {
	case strings.HasPrefix(stmt, "DROP TABLE"):
		m.columns, m.rows, m.nextID = nil, nil, 1
	case strings.HasPrefix(stmt, "CREATE TABLE"):
		if strings.Contains(stmt, "IF NOT EXISTS") && len(m.columns) > 0 {
			return ExecResult{}, nil
		}
		m.columns = parseCreateTable(stmt)
	case strings.HasPrefix(stmt, "INSERT INTO"):
		return m.insert(stmt)
	case strings.HasPrefix(stmt, "DELETE FROM"):
		return m.delete(stmt)
	}
	return ExecResult{RowsAffected: 1}, nil
}

func (m *memEngine) insert(stmt string) (ExecResult, error) {
	stmt = strings.TrimSuffix(stmt, " RETURNING "+identityColumn)
	open := strings.Index(stmt, "(")
	mid := strings.Index(stmt, ") VALUES (")
	names := strings.Split(stmt[open+1:mid], ", ")
	values := strings.Split(strings.TrimSuffix(stmt[mid+len(") VALUES ("):], ")"), ", ")

	row := make(Row, len(m.columns))
	for i, name := range names {
		idx := -1
		for j, c := range m.columns {
			if c.Name == name {
				idx = j
			}
		}
		if idx < 0 {
			return ExecResult{}, &DbError{Statement: stmt, Err: fmt.Errorf("no column %s", name)}
		}
		row[idx] = parseLiteral(values[i])
	}
	for j, c := range m.columns {
		if c.Name != identityColumn {
			continue
		}
		if row[j] == nil {
			row[j] = m.nextID
		}
		var n int64
		fmt.Sscan(fmt.Sprint(row[j]), &n)
		if n >= m.nextID {
			m.nextID = n + 1
		}
	}
	m.rows = append(m.rows, row)
	return ExecResult{RowsAffected: 1, LastInsertID: m.nextID - 1}, nil
}

func (m *memEngine) delete(stmt string) (ExecResult, error) {
	_, id, _ := strings.Cut(stmt, "WHERE id=")
	kept := m.rows[:0:0]
	var n int64
	for _, r := range m.rows {
		if displayText(r[0]) == id {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return ExecResult{RowsAffected: n}, nil
}

func (m *memEngine) Commit(context.Context) error {
	m.committed = append(m.committed, m.pending...)
	m.pending = nil
	m.checkpoint()
	return nil
}

func (m *memEngine) Rollback(context.Context) error {
	m.rollbacks++
	m.pending = nil
	m.columns = append([]Column(nil), m.snapshotAt.columns...)
	m.rows = append([]Row(nil), m.snapshotAt.rows...)
	return nil
}

func (m *memEngine) Close() error {
	m.closed = true
	return nil
}

// inserts returns the executed INSERT statements.
func (m *memEngine) inserts() []string {
	var out []string
	for _, s := range m.executed {
		if strings.HasPrefix(s, "INSERT") {
			out = append(out, s)
		}
	}
	return out
}

// parseCreateTable reads back the column list generateCreateTable writes, one per line.
func parseCreateTable(ddl string) []Column {
	var cols []Column
	for _, line := range strings.Split(ddl, "\n")[1:] {
		fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(line), ","))
		if len(fields) < 2 {
			continue
		}
		cols = append(cols, Column{Name: fields[0], DeclaredType: strings.ToLower(fields[1])})
	}
	return cols
}

func parseLiteral(lit string) any {
	switch {
	case lit == "NULL":
		return nil
	case lit == "TRUE":
		return true
	case lit == "FALSE":
		return false
	case len(lit) >= 2 && (lit[0] == '"' || lit[0] == '\''):
		return lit[1 : len(lit)-1]
	default:
		return lit
	}
}

// mysqlLicenseColumns is the column list MySQL reports for the license table.
func mysqlLicenseColumns() []Column {
	return []Column{
		{Name: "id", DeclaredType: "int"},
		{Name: "price", DeclaredType: "int"},
		{Name: "count", DeclaredType: "int"},
		{Name: "rating", DeclaredType: "float"},
		{Name: "program_name", DeclaredType: "text"},
		{Name: "program_description", DeclaredType: "text"},
		{Name: "license_expire_year", DeclaredType: "year"},
		{Name: "is_unlimited_license", DeclaredType: "tinyint(1)"},
	}
}

type logEntry struct {
	message  string
	severity Severity
}

type recordingLogger struct {
	entries []logEntry
	fatal   []string
}

func (l *recordingLogger) Log(message string, severity Severity) {
	l.entries = append(l.entries, logEntry{message: message, severity: severity})
}

func (l *recordingLogger) ReportFatal(message string) {
	l.fatal = append(l.fatal, message)
}

func (l *recordingLogger) has(severity Severity, substr string) bool {
	for _, e := range l.entries {
		if e.severity == severity && strings.Contains(e.message, substr) {
			return true
		}
	}
	return false
}

type recordingRenderer struct {
	renders []*TableSnapshot
	states  []RenderState
	during  func() // called while rendering
}

func (r *recordingRenderer) RenderSnapshot(snap *TableSnapshot, view RenderState) {
	r.renders = append(r.renders, snap)
	r.states = append(r.states, view)
	if r.during != nil {
		r.during()
	}
}

func newTestPanel(eng Engine, r Renderer, l Logger) *TablePanel {
	return newTablePanel(eng, licenseTable, EngineConfig{}, 0, r, l)
}

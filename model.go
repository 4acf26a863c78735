package main

// licenseTable is the single table every engine panel works on.
const licenseTable = "internet_store_licenses"

// identityColumn is the name of the auto-incrementing primary key.
const identityColumn = "id"

// Column describes one column of the table as reported by an engine.
type Column struct {
	Name         string
	DeclaredType string // e.g. "tinyint(1)", "int4", "INTEGER"
	IsIdentity   bool
}

// Row is one table row; values are aligned positionally with the snapshot's columns.
// Values stay untyped (string, int64, float64, bool, nil, ...) until encoded.
type Row []any

// TableSnapshot is the in-memory copy of a table as of the last refresh.
type TableSnapshot struct {
	Table   string
	Columns []Column
	Rows    []Row
	IDIndex int
}

// ColumnIndex returns the position of the named column, or -1.
func (s *TableSnapshot) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the column names in table order.
func (s *TableSnapshot) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// MigrationSpec selects what a migration copies.
//
// With no Columns, every non-identity column is copied, plus the identity when
// IncludeIdentity is set. With Columns, the list defines both inclusion and order and the
// identity is copied only when it is named explicitly.
type MigrationSpec struct {
	Source          string
	Target          string
	IncludeIdentity bool
	Columns         []string
}

func (m MigrationSpec) projected() bool {
	return len(m.Columns) > 0
}

package main

import (
	"context"
	"fmt"
	"strings"
)

// columnDef is one non-identity column of the license table, typed per dialect.
type columnDef struct {
	Name    string
	Types   [3]string // indexed by Dialect
	NotNull bool
}

func (c columnDef) typeFor(d Dialect) string {
	return c.Types[d]
}

// licenseColumns is the fixed schema in canonical order. MySQL keeps YEAR; the other
// dialects widen it to INT.
var licenseColumns = []columnDef{
	{Name: "price", Types: [3]string{"INT", "INT", "INT"}, NotNull: true},
	{Name: "count", Types: [3]string{"INT", "INT", "INT"}},
	{Name: "rating", Types: [3]string{"FLOAT", "FLOAT", "FLOAT"}},
	{Name: "program_name", Types: [3]string{"TEXT", "TEXT", "TEXT"}, NotNull: true},
	{Name: "program_description", Types: [3]string{"TEXT", "TEXT", "TEXT"}},
	{Name: "license_expire_year", Types: [3]string{"YEAR", "INT", "INT"}},
	{Name: "is_unlimited_license", Types: [3]string{"BOOLEAN", "BOOLEAN", "BOOLEAN"}, NotNull: true},
}

func lookupColumnDef(name string) (columnDef, bool) {
	for _, c := range licenseColumns {
		if c.Name == name {
			return c, true
		}
	}
	return columnDef{}, false
}

// identityDefinition is the auto-incrementing primary key clause for a dialect.
func identityDefinition(d Dialect) string {
	switch d {
	case DialectPostgres:
		return identityColumn + " SERIAL PRIMARY KEY"
	case DialectSQLite:
		return identityColumn + " INTEGER PRIMARY KEY AUTOINCREMENT"
	default:
		return identityColumn + " INT PRIMARY KEY AUTO_INCREMENT"
	}
}

// generateCreateTable builds the CREATE TABLE statement for the license table.
// With a nil column list every column is created in canonical order; otherwise only the
// listed columns, in list order. The identity column is always created first.
func generateCreateTable(table string, d Dialect, columns []string, ifNotExists bool) (string, error) {
	defs := licenseColumns
	if columns != nil {
		defs = make([]columnDef, 0, len(columns))
		for _, name := range columns {
			if name == identityColumn {
				continue
			}
			def, ok := lookupColumnDef(name)
			if !ok {
				return "", fmt.Errorf("column %q is not part of the %s schema", name, table)
			}
			defs = append(defs, def)
		}
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	if ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	fmt.Fprintf(&b, "%s (\n  %s", table, identityDefinition(d))
	for _, def := range defs {
		fmt.Fprintf(&b, ",\n  %s %s", def.Name, def.typeFor(d))
		if def.NotNull {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString("\n)")
	return b.String(), nil
}

// bootstrapTable creates the license table if it does not exist yet.
func bootstrapTable(ctx context.Context, eng Engine, table string) error {
	ddl, err := generateCreateTable(table, eng.Dialect(), nil, true)
	if err != nil {
		return err
	}
	if _, err := eng.Exec(ctx, ddl); err != nil {
		_ = eng.Rollback(ctx)
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return eng.Commit(ctx)
}

package main

import (
	"context"
	"fmt"
)

// markIdentity flags the single column named "id" and returns its index.
// A table without one, or with more than one, is a SchemaError.
func markIdentity(table string, cols []Column) (int, error) {
	idIndex := -1
	for i := range cols {
		cols[i].IsIdentity = false
		if cols[i].Name != identityColumn {
			continue
		}
		if idIndex >= 0 {
			return -1, &SchemaError{Table: table, Reason: fmt.Sprintf("ambiguous identity: column %q appears more than once", identityColumn)}
		}
		idIndex = i
	}
	if idIndex < 0 {
		return -1, &SchemaError{Table: table, Reason: fmt.Sprintf("no identity column %q", identityColumn)}
	}
	cols[idIndex].IsIdentity = true
	return idIndex, nil
}

// fetchSnapshot describes and reads the whole table. The snapshot is rebuilt wholesale;
// callers keep their previous one if this fails.
func fetchSnapshot(ctx context.Context, eng Engine, table string) (*TableSnapshot, error) {
	cols, err := eng.DescribeTable(ctx, table)
	if err != nil {
		return nil, err
	}
	idIndex, err := markIdentity(table, cols)
	if err != nil {
		return nil, err
	}
	rows, err := eng.FetchAll(ctx, table)
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, &SchemaError{
				Table:  table,
				Reason: fmt.Sprintf("row %d has %d values, table has %d columns", i, len(r), len(cols)),
			}
		}
	}
	return &TableSnapshot{Table: table, Columns: cols, Rows: rows, IDIndex: idIndex}, nil
}

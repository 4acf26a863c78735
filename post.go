package main

import (
	"context"
	"fmt"
)

// resetIdentitySequence moves a SERIAL sequence past the largest copied id so rows
// created later do not collide with migrated ones. MySQL and SQLite advance their
// counters on explicit inserts, so only PostgreSQL needs this.
func resetIdentitySequence(ctx context.Context, eng Engine, table string) error {
	if eng.Dialect() != DialectPostgres {
		return nil
	}
	q := fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%s', '%s'), COALESCE((SELECT MAX(%s) FROM %s), 0) + 1, false)",
		table, identityColumn, identityColumn, table,
	)
	if _, err := eng.Exec(ctx, q); err != nil {
		return fmt.Errorf("reset identity sequence: %w", err)
	}
	return nil
}

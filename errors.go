package main

import "fmt"

// ConnectError means an engine could not be reached. The tool is unusable without
// its data sources, so the CLI treats it as fatal.
type ConnectError struct {
	Engine string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Engine, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// SchemaError reports a table whose shape the tool cannot work with.
type SchemaError struct {
	Table  string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("table %s: %s: %v", e.Table, e.Reason, e.Err)
	}
	return fmt.Sprintf("table %s: %s", e.Table, e.Reason)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// DbError wraps a failed statement together with its SQL text.
type DbError struct {
	Statement string
	Err       error
}

func (e *DbError) Error() string {
	return fmt.Sprintf("%v\nSQL: %s", e.Err, e.Statement)
}

func (e *DbError) Unwrap() error { return e.Err }

// MigrationError records the stage a migration failed in.
type MigrationError struct {
	Stage MigrationStage
	Err   error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration failed while %s: %v", e.Stage, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

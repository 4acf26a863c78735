package main

import (
	"context"
	"errors"
	"fmt"
)

var errReadOnly = errors.New("panel is read-only")

// TablePanel pairs one engine with the last snapshot of its table and the grid that
// shows it. It is the unit the operator edits, creates and deletes through.
type TablePanel struct {
	engine   Engine
	table    string
	readOnly bool
	limit    int
	renderer Renderer
	logger   Logger

	snapshot   *TableSnapshot
	refreshing bool // set only while the grid repaints
}

func newTablePanel(eng Engine, table string, ec EngineConfig, limit int, r Renderer, l Logger) *TablePanel {
	return &TablePanel{
		engine:   eng,
		table:    table,
		readOnly: ec.ReadOnly,
		limit:    limit,
		renderer: r,
		logger:   l,
	}
}

// Snapshot returns the last successfully fetched snapshot, or nil before the first refresh.
func (p *TablePanel) Snapshot() *TableSnapshot { return p.snapshot }

func (p *TablePanel) label() string { return p.engine.Dialect().String() }

// Refresh re-reads the table and repaints. On failure the previous snapshot is kept.
func (p *TablePanel) Refresh(ctx context.Context) error {
	if err := p.reload(ctx); err != nil {
		logf(p.logger, SeverityError, "%s error reading table %s: %v", p.label(), p.table, err)
		return err
	}
	return nil
}

// reload is Refresh without the error log, for callers that report failures themselves.
func (p *TablePanel) reload(ctx context.Context) error {
	snap, err := fetchSnapshot(ctx, p.engine, p.table)
	if err != nil {
		return err
	}
	p.snapshot = snap
	p.render()
	return nil
}

func (p *TablePanel) render() {
	if p.renderer == nil || p.snapshot == nil {
		return
	}
	p.refreshing = true
	defer func() { p.refreshing = false }()
	p.renderer.RenderSnapshot(p.snapshot, RenderState{
		Engine:   p.engine.Name(),
		ReadOnly: p.readOnly,
		Limit:    p.limit,
	})
}

// EditCell writes one cell through an UPDATE keyed by the row's identity. Edits that
// arrive while the grid repaints are ignored.
func (p *TablePanel) EditCell(ctx context.Context, row int, column, text string) error {
	if p.refreshing {
		logf(p.logger, SeverityDebug, "%s: ignoring cell edit during refresh", p.label())
		return nil
	}
	if p.readOnly {
		return errReadOnly
	}
	snap := p.snapshot
	if snap == nil {
		return fmt.Errorf("%s: table not loaded", p.label())
	}
	if row < 0 || row >= len(snap.Rows) {
		return fmt.Errorf("row %d out of range (table has %d rows)", row, len(snap.Rows))
	}
	col := snap.ColumnIndex(column)
	if col < 0 {
		return fmt.Errorf("unknown column %q", column)
	}

	d := p.engine.Dialect()
	if err := checkBooleanText(text, snap.Columns[col].DeclaredType, d); err != nil {
		return fmt.Errorf("column %s: %w", column, err)
	}
	idCol := snap.Columns[snap.IDIndex]
	idValue := encodeValue(snap.Rows[row][snap.IDIndex], idCol.DeclaredType, d)
	newValue := encodeValue(text, snap.Columns[col].DeclaredType, d)
	stmt := updateStatement(p.table, column, newValue, idValue)

	if _, err := p.execAndCommit(ctx, stmt); err != nil {
		logf(p.logger, SeverityError, "%s error trying to update table item! %v", p.label(), err)
		// Repaint the last committed state so the grid drops the rejected text.
		p.render()
		return err
	}
	logf(p.logger, SeverityInfo, "Updated %s cell %s with id %s. New value is %s", p.label(), column, idValue, newValue)
	return p.Refresh(ctx)
}

// CreateRow inserts a row from form values aligned with the snapshot's columns. A blank
// identity lets the engine assign one.
func (p *TablePanel) CreateRow(ctx context.Context, form []string) (ExecResult, error) {
	if p.readOnly {
		return ExecResult{}, errReadOnly
	}
	snap := p.snapshot
	if snap == nil {
		return ExecResult{}, fmt.Errorf("%s: table not loaded", p.label())
	}
	if len(form) != len(snap.Columns) {
		return ExecResult{}, fmt.Errorf("form has %d values, table has %d columns", len(form), len(snap.Columns))
	}

	d := p.engine.Dialect()
	row := make(Row, len(form))
	for i, v := range form {
		if i != snap.IDIndex {
			if err := checkBooleanText(v, snap.Columns[i].DeclaredType, d); err != nil {
				return ExecResult{}, fmt.Errorf("column %s: %w", snap.Columns[i].Name, err)
			}
		}
		row[i] = v
	}
	withID := !identityBlank(row, snap.IDIndex)
	stmt := insertStatement(
		p.table,
		fieldNameList(snap.Columns, snap.IDIndex, withID),
		fieldValueList(row, snap.Columns, snap.IDIndex, withID, encoderFor(d)),
	)
	if !withID && d.hasInsertReturning() {
		stmt += " RETURNING " + identityColumn
	}

	res, err := p.execAndCommit(ctx, stmt, func(ctx context.Context) error {
		if !withID {
			return nil
		}
		// An explicit id does not advance a SERIAL sequence.
		return resetIdentitySequence(ctx, p.engine, p.table)
	})
	if err != nil {
		logf(p.logger, SeverityError, "%s error trying to add table item! %v", p.label(), err)
		return ExecResult{}, err
	}
	switch {
	case withID:
		logf(p.logger, SeverityInfo, "Created %s new field with id=%s", p.label(), form[snap.IDIndex])
	case res.LastInsertID > 0:
		logf(p.logger, SeverityInfo, "Created %s new field with id=%d", p.label(), res.LastInsertID)
	default:
		logf(p.logger, SeverityInfo, "Created %s new field", p.label())
	}
	return res, p.Refresh(ctx)
}

// CreateForm lays out column=value assignments as a form aligned with the snapshot's
// columns. Unnamed columns are left blank.
func (p *TablePanel) CreateForm(values map[string]string) ([]string, error) {
	snap := p.snapshot
	if snap == nil {
		return nil, fmt.Errorf("%s: table not loaded", p.label())
	}
	form := make([]string, len(snap.Columns))
	for name, v := range values {
		i := snap.ColumnIndex(name)
		if i < 0 {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		form[i] = v
	}
	return form, nil
}

// DeleteRow removes the row with the given identity, executing the DELETE exactly once.
// Deleting an id that does not exist is not an error.
func (p *TablePanel) DeleteRow(ctx context.Context, id string) (int64, error) {
	if p.readOnly {
		return 0, errReadOnly
	}
	if identityBlank(Row{id}, 0) {
		return 0, fmt.Errorf("delete needs an identity value")
	}
	idType := ""
	if snap := p.snapshot; snap != nil {
		idType = snap.Columns[snap.IDIndex].DeclaredType
	}
	idValue := encodeValue(id, idType, p.engine.Dialect())

	res, err := p.execAndCommit(ctx, deleteStatement(p.table, idValue))
	if err != nil {
		logf(p.logger, SeverityError, "%s error trying to delete table item! %v", p.label(), err)
		return 0, err
	}
	if res.RowsAffected == 0 {
		logf(p.logger, SeverityInfo, "No %s field with id=%s; nothing deleted", p.label(), idValue)
	} else {
		logf(p.logger, SeverityInfo, "Deleted %s field with id=%s", p.label(), idValue)
	}
	return res.RowsAffected, p.Refresh(ctx)
}

// execAndCommit runs one statement, plus any follow-up work in the same transaction,
// and commits. On failure everything is rolled back.
func (p *TablePanel) execAndCommit(ctx context.Context, stmt string, then ...func(context.Context) error) (ExecResult, error) {
	res, err := p.engine.Exec(ctx, stmt)
	if err != nil {
		_ = p.engine.Rollback(ctx)
		return ExecResult{}, err
	}
	for _, fn := range then {
		if err := fn(ctx); err != nil {
			_ = p.engine.Rollback(ctx)
			return ExecResult{}, err
		}
	}
	if err := p.engine.Commit(ctx); err != nil {
		_ = p.engine.Rollback(ctx)
		return ExecResult{}, err
	}
	return res, nil
}

package main

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

func loadedPanel(t *testing.T, ec EngineConfig) (*TablePanel, *memEngine, *recordingRenderer, *recordingLogger) {
	t.Helper()
	eng := newMemEngine("mysql", DialectMySQL).seed(mysqlLicenseColumns(), licenseRows()...)
	r := &recordingRenderer{}
	l := &recordingLogger{}
	p := newTablePanel(eng, licenseTable, ec, 0, r, l)
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	return p, eng, r, l
}

func TestPanelRefresh(t *testing.T) {
	p, _, r, _ := loadedPanel(t, EngineConfig{})
	if len(r.renders) != 1 {
		t.Fatalf("renders = %d, want 1", len(r.renders))
	}
	if got := r.states[0]; got != (RenderState{Engine: "mysql"}) {
		t.Errorf("render state = %+v", got)
	}
	if p.Snapshot() == nil || len(p.Snapshot().Rows) != 3 {
		t.Errorf("snapshot = %+v", p.Snapshot())
	}
	if p.refreshing {
		t.Error("refreshing still set after render")
	}
}

func TestPanelRefresh_FailureKeepsSnapshot(t *testing.T) {
	p, eng, _, l := loadedPanel(t, EngineConfig{})
	before := p.Snapshot()

	eng.rows = append(eng.rows, Row{int64(9)})
	if err := p.Refresh(context.Background()); err == nil {
		t.Fatal("expected error for a short row")
	}
	if p.Snapshot() != before {
		t.Error("snapshot replaced after a failed refresh")
	}
	if !l.has(SeverityError, "MySQL error reading table") {
		t.Errorf("missing error log, got %+v", l.entries)
	}
}

func TestEditCell_EmptyTextWritesNull(t *testing.T) {
	p, eng, _, l := loadedPanel(t, EngineConfig{})

	if err := p.EditCell(context.Background(), 0, "price", ""); err != nil {
		t.Fatalf("EditCell() error: %v", err)
	}
	want := "UPDATE internet_store_licenses SET price=NULL WHERE id=1"
	if !slices.Contains(eng.committed, want) {
		t.Errorf("committed = %q, want %q", eng.committed, want)
	}
	if !l.has(SeverityInfo, "Updated MySQL cell price with id 1. New value is NULL") {
		t.Errorf("missing update log, got %+v", l.entries)
	}
}

func TestEditCell_QuotesText(t *testing.T) {
	p, eng, _, _ := loadedPanel(t, EngineConfig{})
	if err := p.EditCell(context.Background(), 2, "program_name", "Notes Pro"); err != nil {
		t.Fatalf("EditCell() error: %v", err)
	}
	want := `UPDATE internet_store_licenses SET program_name="Notes Pro" WHERE id=7`
	if !slices.Contains(eng.committed, want) {
		t.Errorf("committed = %q, want %q", eng.committed, want)
	}
}

func TestEditCell_FailureRepaintsLastSnapshot(t *testing.T) {
	p, eng, r, l := loadedPanel(t, EngineConfig{})
	before := p.Snapshot()
	eng.failOn = "UPDATE"

	err := p.EditCell(context.Background(), 1, "price", "abc")
	var dbErr *DbError
	if !errors.As(err, &dbErr) {
		t.Fatalf("error = %v, want *DbError", err)
	}
	if eng.rollbacks != 1 {
		t.Errorf("rollbacks = %d, want 1", eng.rollbacks)
	}
	if len(r.renders) != 2 || r.renders[1] != before {
		t.Errorf("grid not repainted with the previous snapshot (renders=%d)", len(r.renders))
	}
	if p.Snapshot() != before {
		t.Error("snapshot changed after a failed edit")
	}
	if !l.has(SeverityError, "MySQL error trying to update table item!") {
		t.Errorf("missing error log, got %+v", l.entries)
	}
}

func TestEditCell_IgnoredDuringRefresh(t *testing.T) {
	eng := newMemEngine("mysql", DialectMySQL).seed(mysqlLicenseColumns(), licenseRows()...)
	r := &recordingRenderer{}
	p := newTestPanel(eng, r, &recordingLogger{})
	ctx := context.Background()

	var duringErr error
	r.during = func() {
		if p.Snapshot() != nil {
			duringErr = p.EditCell(ctx, 0, "price", "1")
		}
	}
	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if duringErr != nil {
		t.Errorf("edit during refresh returned %v, want nil", duringErr)
	}
	for _, s := range eng.executed {
		if strings.HasPrefix(s, "UPDATE") {
			t.Fatalf("edit during refresh reached the engine: %q", s)
		}
	}

	r.during = nil
	if err := p.EditCell(ctx, 0, "price", "1"); err != nil {
		t.Fatalf("EditCell() after refresh error: %v", err)
	}
	if !slices.Contains(eng.committed, "UPDATE internet_store_licenses SET price=1 WHERE id=1") {
		t.Errorf("committed = %q", eng.committed)
	}
}

func TestEditCell_Validation(t *testing.T) {
	p, _, _, _ := loadedPanel(t, EngineConfig{})
	ctx := context.Background()
	if err := p.EditCell(ctx, 5, "price", "1"); err == nil {
		t.Error("expected error for an out-of-range row")
	}
	if err := p.EditCell(ctx, 0, "vendor", "1"); err == nil {
		t.Error("expected error for an unknown column")
	}

	unloaded := newTestPanel(newMemEngine("mysql", DialectMySQL), nil, &recordingLogger{})
	if err := unloaded.EditCell(ctx, 0, "price", "1"); err == nil {
		t.Error("expected error before the first refresh")
	}
}

func TestCreateRow_BlankIdentity(t *testing.T) {
	p, eng, _, l := loadedPanel(t, EngineConfig{})
	form, err := p.CreateForm(map[string]string{
		"price":                "5",
		"program_name":         "Tool",
		"is_unlimited_license": "1",
	})
	if err != nil {
		t.Fatalf("CreateForm() error: %v", err)
	}

	res, err := p.CreateRow(context.Background(), form)
	if err != nil {
		t.Fatalf("CreateRow() error: %v", err)
	}
	want := `INSERT INTO internet_store_licenses (price, count, rating, program_name, program_description, license_expire_year, is_unlimited_license) VALUES (5, NULL, NULL, "Tool", NULL, NULL, 1)`
	if got := eng.inserts(); !slices.Equal(got, []string{want}) {
		t.Errorf("inserts = %q, want %q", got, want)
	}
	if res.LastInsertID != 8 {
		t.Errorf("LastInsertID = %d, want 8", res.LastInsertID)
	}
	if !l.has(SeverityInfo, "Created MySQL new field with id=8") {
		t.Errorf("missing create log, got %+v", l.entries)
	}
	if got := len(p.Snapshot().Rows); got != 4 {
		t.Errorf("rows after create = %d, want 4", got)
	}
}

func TestCreateRow_ExplicitIdentity(t *testing.T) {
	p, eng, _, _ := loadedPanel(t, EngineConfig{})
	form, err := p.CreateForm(map[string]string{"id": "42", "price": "5", "program_name": "Tool", "is_unlimited_license": "0"})
	if err != nil {
		t.Fatalf("CreateForm() error: %v", err)
	}
	if _, err := p.CreateRow(context.Background(), form); err != nil {
		t.Fatalf("CreateRow() error: %v", err)
	}
	if got := eng.inserts(); len(got) != 1 || !strings.HasPrefix(got[0], "INSERT INTO internet_store_licenses (id, price,") {
		t.Errorf("inserts = %q", got)
	}
}

func TestCreateRow_Errors(t *testing.T) {
	p, _, _, _ := loadedPanel(t, EngineConfig{})
	if _, err := p.CreateRow(context.Background(), []string{"1", "2"}); err == nil {
		t.Error("expected error for a short form")
	}
	if _, err := p.CreateForm(map[string]string{"vendor": "x"}); err == nil {
		t.Error("expected error for an unknown form column")
	}
}

func TestDeleteRow(t *testing.T) {
	p, eng, _, l := loadedPanel(t, EngineConfig{})
	ctx := context.Background()

	n, err := p.DeleteRow(ctx, "7")
	if err != nil {
		t.Fatalf("DeleteRow() error: %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteRow() = %d, want 1", n)
	}
	if got := len(p.Snapshot().Rows); got != 2 {
		t.Errorf("rows after delete = %d, want 2", got)
	}
	var deletes int
	for _, s := range eng.executed {
		if strings.HasPrefix(s, "DELETE") {
			deletes++
		}
	}
	if deletes != 1 {
		t.Errorf("DELETE executed %d times, want 1", deletes)
	}

	n, err = p.DeleteRow(ctx, "7")
	if err != nil {
		t.Fatalf("DeleteRow() of a missing id error: %v", err)
	}
	if n != 0 {
		t.Errorf("DeleteRow() of a missing id = %d, want 0", n)
	}
	if !l.has(SeverityInfo, "No MySQL field with id=7; nothing deleted") {
		t.Errorf("missing info log, got %+v", l.entries)
	}

	if _, err := p.DeleteRow(ctx, " "); err == nil {
		t.Error("expected error for a blank id")
	}
}

func TestPanel_ReadOnly(t *testing.T) {
	p, eng, _, _ := loadedPanel(t, EngineConfig{ReadOnly: true})
	ctx := context.Background()

	if err := p.EditCell(ctx, 0, "price", "1"); !errors.Is(err, errReadOnly) {
		t.Errorf("EditCell() error = %v, want errReadOnly", err)
	}
	if _, err := p.CreateRow(ctx, make([]string, 8)); !errors.Is(err, errReadOnly) {
		t.Errorf("CreateRow() error = %v, want errReadOnly", err)
	}
	if _, err := p.DeleteRow(ctx, "1"); !errors.Is(err, errReadOnly) {
		t.Errorf("DeleteRow() error = %v, want errReadOnly", err)
	}
	if len(eng.executed) != 0 {
		t.Errorf("read-only panel executed %q", eng.executed)
	}
}

func postgresPanel(t *testing.T) (*TablePanel, *memEngine, *recordingLogger) {
	t.Helper()
	cols := mysqlLicenseColumns()
	cols[0].DeclaredType = "int4"
	cols[7].DeclaredType = "bool"
	eng := newMemEngine("postgres", DialectPostgres).seed(cols, licenseRows()...)
	l := &recordingLogger{}
	p := newTestPanel(eng, nil, l)
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	return p, eng, l
}

func TestEditCell_BooleanColumnNeedsNumber(t *testing.T) {
	p, eng, _ := postgresPanel(t)
	ctx := context.Background()

	if err := p.EditCell(ctx, 0, "is_unlimited_license", "true"); err == nil {
		t.Fatal("expected error for non-numeric text in a boolean column")
	}
	if len(eng.executed) != 0 {
		t.Errorf("executed %q, want nothing", eng.executed)
	}

	if err := p.EditCell(ctx, 1, "is_unlimited_license", "1"); err != nil {
		t.Fatalf("EditCell() error: %v", err)
	}
	want := "UPDATE internet_store_licenses SET is_unlimited_license=TRUE WHERE id=2"
	if !slices.Equal(eng.committed, []string{want}) {
		t.Errorf("committed = %q, want %q", eng.committed, want)
	}
}

func TestCreateRow_BooleanColumnNeedsNumber(t *testing.T) {
	p, eng, _ := postgresPanel(t)
	form, _ := p.CreateForm(map[string]string{"price": "5", "program_name": "Tool", "is_unlimited_license": "yes"})
	if _, err := p.CreateRow(context.Background(), form); err == nil {
		t.Fatal("expected error for non-numeric text in a boolean column")
	}
	if len(eng.executed) != 0 {
		t.Errorf("executed %q, want nothing", eng.executed)
	}
}

func TestCreateRow_PostgresReportsID(t *testing.T) {
	p, eng, l := postgresPanel(t)
	form, _ := p.CreateForm(map[string]string{"price": "5", "program_name": "Tool", "is_unlimited_license": "0"})

	res, err := p.CreateRow(context.Background(), form)
	if err != nil {
		t.Fatalf("CreateRow() error: %v", err)
	}
	want := "INSERT INTO internet_store_licenses (price, count, rating, program_name, program_description, license_expire_year, is_unlimited_license) VALUES (5, NULL, NULL, 'Tool', NULL, NULL, FALSE) RETURNING id"
	if !slices.Equal(eng.committed, []string{want}) {
		t.Errorf("committed = %q, want %q", eng.committed, want)
	}
	if res.LastInsertID != 8 {
		t.Errorf("LastInsertID = %d, want 8", res.LastInsertID)
	}
	if !l.has(SeverityInfo, "Created PostgreSQL new field with id=8") {
		t.Errorf("missing create log, got %+v", l.entries)
	}
}

func TestCreateRow_PostgresExplicitIDResetsSequence(t *testing.T) {
	p, eng, _ := postgresPanel(t)
	form, _ := p.CreateForm(map[string]string{"id": "42", "price": "5", "program_name": "Tool", "is_unlimited_license": "1"})

	if _, err := p.CreateRow(context.Background(), form); err != nil {
		t.Fatalf("CreateRow() error: %v", err)
	}
	if len(eng.committed) != 2 {
		t.Fatalf("committed = %q, want the insert and the sequence reset", eng.committed)
	}
	if strings.Contains(eng.committed[0], "RETURNING") {
		t.Errorf("explicit id insert should not ask for the id back: %s", eng.committed[0])
	}
	if !strings.Contains(eng.committed[1], "setval(pg_get_serial_sequence('internet_store_licenses', 'id')") {
		t.Errorf("committed[1] = %s, want a sequence reset", eng.committed[1])
	}
}

func TestCreateRow_SequenceResetFailureRollsBack(t *testing.T) {
	p, eng, l := postgresPanel(t)
	eng.failOn = "setval"
	form, _ := p.CreateForm(map[string]string{"id": "42", "price": "5", "program_name": "Tool", "is_unlimited_license": "1"})

	if _, err := p.CreateRow(context.Background(), form); err == nil {
		t.Fatal("expected error")
	}
	if len(eng.committed) != 0 || eng.rollbacks != 1 {
		t.Errorf("committed = %q, rollbacks = %d", eng.committed, eng.rollbacks)
	}
	if got := len(eng.rows); got != 3 {
		t.Errorf("rows after rollback = %d, want 3", got)
	}
	if !l.has(SeverityError, "PostgreSQL error trying to add table item!") {
		t.Errorf("missing error log, got %+v", l.entries)
	}
}

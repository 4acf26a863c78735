package main

import (
	"context"
	"fmt"
	"slices"
)

// MigrationStage is where a migration currently is.
type MigrationStage string

const (
	StageIdle       MigrationStage = "idle"
	StageFetching   MigrationStage = "fetching source"
	StageRecreating MigrationStage = "recreating target"
	StageCopying    MigrationStage = "copying rows"
	StageRefreshing MigrationStage = "refreshing target"
	StageFailed     MigrationStage = "failed"
)

// Migrator copies a table from one panel's engine into another's by dropping and
// recreating the target table and inserting every source row. It runs synchronously
// and cannot be cancelled mid-copy.
type Migrator struct {
	logger     Logger
	hooks      *hookRunner
	beforeCopy []string
	afterCopy  []string
	stage      MigrationStage
}

func newMigrator(logger Logger, hooks *hookRunner, hc HooksConfig) *Migrator {
	return &Migrator{
		logger:     logger,
		hooks:      hooks,
		beforeCopy: hc.BeforeCopy,
		afterCopy:  hc.AfterCopy,
		stage:      StageIdle,
	}
}

// Stage reports the current stage; it is StageIdle between migrations.
func (m *Migrator) Stage() MigrationStage { return m.stage }

func (m *Migrator) enter(stage MigrationStage) {
	m.stage = stage
	logf(m.logger, SeverityDebug, "migration stage: %s", stage)
}

// Migrate copies source into target according to spec and returns the number of rows
// copied. On failure the row copy is rolled back. On engines that commit DDL implicitly
// the recreated table is committed on its own and stays, empty.
func (m *Migrator) Migrate(ctx context.Context, source, target *TablePanel, spec MigrationSpec) (int, error) {
	n, err := m.run(ctx, source, target, spec)
	if err != nil {
		m.enter(StageFailed)
		_ = target.engine.Rollback(ctx)
		logf(m.logger, SeverityError, "Error migrating %s table data to %s! %v", source.label(), target.label(), err)
		m.enter(StageIdle)
		return 0, err
	}
	m.enter(StageIdle)
	logf(m.logger, SeverityInfo, "Successfully migrated %d rows from %s to %s", n, source.label(), target.label())
	return n, nil
}

func (m *Migrator) run(ctx context.Context, source, target *TablePanel, spec MigrationSpec) (int, error) {
	// 1. Fetch the full source table.
	m.enter(StageFetching)
	if err := source.reload(ctx); err != nil {
		return 0, &MigrationError{Stage: StageFetching, Err: err}
	}
	src := source.Snapshot()

	columns := src.ColumnNames()
	if spec.projected() {
		if _, err := resolveProjection(src.Columns, spec.Columns); err != nil {
			return 0, &MigrationError{Stage: StageFetching, Err: err}
		}
		columns = spec.Columns
	}
	ddl, err := generateCreateTable(target.table, target.engine.Dialect(), columns, false)
	if err != nil {
		return 0, &MigrationError{Stage: StageFetching, Err: err}
	}

	// 2. Drop and recreate the target, then resolve indices against what was created.
	m.enter(StageRecreating)
	logf(m.logger, SeverityInfo, "  recreating %s.%s", target.engine.Name(), target.table)
	for _, stmt := range []string{fmt.Sprintf("DROP TABLE IF EXISTS %s", target.table), ddl} {
		if _, err := target.engine.Exec(ctx, stmt); err != nil {
			return 0, &MigrationError{Stage: StageRecreating, Err: err}
		}
	}
	if target.engine.Dialect().commitsDDL() {
		// Close the DDL transaction so the rows go into a transaction of their own.
		if err := target.engine.Commit(ctx); err != nil {
			return 0, &MigrationError{Stage: StageRecreating, Err: err}
		}
	}
	targetCols, err := target.engine.DescribeTable(ctx, target.table)
	if err != nil {
		return 0, &MigrationError{Stage: StageRecreating, Err: err}
	}
	targetID, err := markIdentity(target.table, targetCols)
	if err != nil {
		return 0, &MigrationError{Stage: StageRecreating, Err: err}
	}
	plan, err := planCopy(src, targetCols, targetID, spec)
	if err != nil {
		return 0, &MigrationError{Stage: StageRecreating, Err: err}
	}

	// 3. One INSERT per source row, in source order, then a single commit.
	m.enter(StageCopying)
	if err := m.hooks.run(ctx, target.engine, target.table, m.beforeCopy, "before_copy"); err != nil {
		return 0, &MigrationError{Stage: StageCopying, Err: err}
	}
	logf(m.logger, SeverityInfo, "  copying %d rows (%s)", len(src.Rows), projectedFieldNameList(plan.names))
	encode := encoderFor(target.engine.Dialect())
	copiedIDs := false
	for _, row := range src.Rows {
		names, indices := plan.forRow(row, src.IDIndex)
		if len(indices) == len(plan.indices) && plan.idPos >= 0 {
			copiedIDs = true
		}
		stmt := insertStatement(target.table,
			projectedFieldNameList(names),
			projectedFieldValueList(row, src.Columns, indices, encode))
		if _, err := target.engine.Exec(ctx, stmt); err != nil {
			return 0, &MigrationError{Stage: StageCopying, Err: err}
		}
	}
	if err := m.hooks.run(ctx, target.engine, target.table, m.afterCopy, "after_copy"); err != nil {
		return 0, &MigrationError{Stage: StageCopying, Err: err}
	}
	if copiedIDs {
		if err := resetIdentitySequence(ctx, target.engine, target.table); err != nil {
			return 0, &MigrationError{Stage: StageCopying, Err: err}
		}
	}
	if err := target.engine.Commit(ctx); err != nil {
		return 0, &MigrationError{Stage: StageCopying, Err: err}
	}

	// 4. Show the operator what landed.
	m.enter(StageRefreshing)
	if err := target.reload(ctx); err != nil {
		return 0, &MigrationError{Stage: StageRefreshing, Err: err}
	}
	return len(src.Rows), nil
}

// copyPlan is the target column list of a migration with each column's source index
// resolved once up front.
type copyPlan struct {
	names   []string
	indices []int
	idPos   int // position of the identity in names, -1 when it is not copied

	// names/indices with the identity removed, for rows whose id is blank
	namesNoID   []string
	indicesNoID []int
}

// planCopy decides which target columns receive values. Without a projection that is
// every non-identity column plus the identity when spec.IncludeIdentity; with one, the
// identity only when it is named.
func planCopy(src *TableSnapshot, target []Column, targetID int, spec MigrationSpec) (*copyPlan, error) {
	includeID := spec.IncludeIdentity
	if spec.projected() {
		includeID = slices.Contains(spec.Columns, identityColumn)
	}

	p := &copyPlan{idPos: -1}
	for i, c := range target {
		if i == targetID {
			if !includeID {
				continue
			}
			p.idPos = len(p.names)
		}
		p.names = append(p.names, c.Name)
	}

	indices, err := resolveProjection(src.Columns, p.names)
	if err != nil {
		return nil, fmt.Errorf("source table %s: %w", src.Table, err)
	}
	p.indices = indices

	p.namesNoID = p.names
	p.indicesNoID = p.indices
	if p.idPos >= 0 {
		p.namesNoID = slices.Delete(slices.Clone(p.names), p.idPos, p.idPos+1)
		p.indicesNoID = slices.Delete(slices.Clone(p.indices), p.idPos, p.idPos+1)
	}
	return p, nil
}

// forRow returns the column names and source indices to insert for one row.
func (p *copyPlan) forRow(row Row, srcIDIndex int) ([]string, []int) {
	if p.idPos >= 0 && identityBlank(row, srcIDIndex) {
		return p.namesNoID, p.indicesNoID
	}
	return p.names, p.indices
}

package main

import (
	"context"
	"errors"
	"fmt"
)

// Workbench owns the open engines and their panels for one command. Close releases
// every connection it opened.
type Workbench struct {
	cfg      *Config
	logger   Logger
	panels   map[string]*TablePanel
	engines  []Engine
	migrator *Migrator
}

// openWorkbench connects to the named engines. A connection failure is returned as a
// *ConnectError and any engines already opened are closed.
func openWorkbench(ctx context.Context, cfg *Config, names []string, r Renderer, l Logger) (*Workbench, error) {
	wb := &Workbench{
		cfg:      cfg,
		logger:   l,
		panels:   make(map[string]*TablePanel),
		migrator: newMigrator(l, &hookRunner{cfg: cfg, logger: l}, cfg.Hooks),
	}
	for _, name := range names {
		ec, err := cfg.engine(name)
		if err != nil {
			wb.Close()
			return nil, err
		}
		if !ec.enabled() {
			wb.Close()
			return nil, fmt.Errorf("engine %s is not configured", name)
		}
		eng, err := openEngine(ctx, name, ec)
		if err != nil {
			wb.Close()
			return nil, err
		}
		wb.engines = append(wb.engines, eng)
		logf(l, SeverityInfo, "Successful connection to %s database %s", eng.Dialect(), connectionLabel(name, ec))

		if ec.Bootstrap {
			if err := bootstrapTable(ctx, eng, cfg.Table); err != nil {
				wb.Close()
				return nil, fmt.Errorf("%s: %w", eng.Dialect(), err)
			}
		}
		wb.panels[name] = newTablePanel(eng, cfg.Table, ec, cfg.Display.Limit, r, l)
	}
	return wb, nil
}

func connectionLabel(name string, ec EngineConfig) string {
	switch name {
	case "mysql":
		if db, err := extractMySQLDBName(ec.DSN); err == nil {
			return db
		}
	case "sqlite":
		return sqliteDBName(ec.Path)
	}
	return name
}

// Panel returns the panel for an opened engine.
func (wb *Workbench) Panel(name string) (*TablePanel, error) {
	p, ok := wb.panels[name]
	if !ok {
		return nil, fmt.Errorf("engine %s is not open", name)
	}
	return p, nil
}

// Migrate runs a migration between two opened engines.
func (wb *Workbench) Migrate(ctx context.Context, spec MigrationSpec) (int, error) {
	if spec.Source == spec.Target {
		return 0, fmt.Errorf("source and target must differ (both %s)", spec.Source)
	}
	source, err := wb.Panel(spec.Source)
	if err != nil {
		return 0, err
	}
	target, err := wb.Panel(spec.Target)
	if err != nil {
		return 0, err
	}
	if target.readOnly {
		return 0, fmt.Errorf("%s: %w", spec.Target, errReadOnly)
	}
	return wb.migrator.Migrate(ctx, source, target, spec)
}

// Close releases every engine connection.
func (wb *Workbench) Close() error {
	var errs []error
	for _, eng := range wb.engines {
		if err := eng.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", eng.Name(), err))
		}
	}
	wb.engines = nil
	return errors.Join(errs...)
}

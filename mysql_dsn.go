package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// mysqlDSNWithOptions applies the driver options every MySQL handle needs.
func mysqlDSNWithOptions(baseDSN string) (string, error) {
	cfg, err := mysql.ParseDSN(baseDSN)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.InterpolateParams = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// extractMySQLDBName pulls the database name from a MySQL DSN.
// Expects format: user:pass@tcp(host:port)/dbname[?params]
func extractMySQLDBName(dsn string) (string, error) {
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		dsn = dsn[:i]
	}
	slash := strings.LastIndexByte(dsn, '/')
	if slash < 0 {
		return "", fmt.Errorf("cannot extract database name from DSN: no '/' found")
	}
	name := dsn[slash+1:]
	if name == "" {
		return "", fmt.Errorf("cannot extract database name from DSN: empty name")
	}
	return name, nil
}

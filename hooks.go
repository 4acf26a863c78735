package main

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// hookRunner executes operator-supplied SQL files on a migration target.
type hookRunner struct {
	cfg    *Config
	logger Logger
}

// run reads each file, expands {{table}}, and executes every statement on eng.
// Statements join the engine's open transaction.
func (h *hookRunner) run(ctx context.Context, eng Engine, table string, files []string, phase string) error {
	if h == nil || len(files) == 0 {
		return nil
	}
	logf(h.logger, SeverityInfo, "  running %s hooks (%d files)...", phase, len(files))

	for _, f := range files {
		data, err := os.ReadFile(h.cfg.resolvePath(f))
		if err != nil {
			return fmt.Errorf("hook %s: read %s: %w", phase, f, err)
		}

		stmts := splitStatements(strings.ReplaceAll(string(data), "{{table}}", table))
		logf(h.logger, SeverityInfo, "    %s: %d statements", f, len(stmts))
		for i, stmt := range stmts {
			if _, err := eng.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("hook %s: %s: statement %d: %w", phase, f, i+1, err)
			}
		}
	}
	return nil
}

// splitStatements splits SQL text on semicolons, dropping empty statements. Semicolons
// inside quoted strings and identifiers, comments and dollar-quoted bodies are kept.
func splitStatements(sql string) []string {
	var (
		stmts   []string
		current strings.Builder
		quote   byte   // ', " or ` while inside a quoted token
		dollar  string // closing tag while inside a dollar-quoted body
		line    bool   // inside -- comment
		depth   int    // /* */ nesting
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			stmts = append(stmts, s)
		}
		current.Reset()
	}
	next := func(i int) byte {
		if i+1 < len(sql) {
			return sql[i+1]
		}
		return 0
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case line:
			current.WriteByte(c)
			line = c != '\n'

		case depth > 0:
			current.WriteByte(c)
			if c == '/' && next(i) == '*' {
				current.WriteByte('*')
				i++
				depth++
			} else if c == '*' && next(i) == '/' {
				current.WriteByte('/')
				i++
				depth--
			}

		case quote != 0:
			current.WriteByte(c)
			if c == quote {
				// A doubled quote character is an escaped one.
				if next(i) == quote {
					current.WriteByte(quote)
					i++
				} else {
					quote = 0
				}
			}

		case dollar != "":
			if strings.HasPrefix(sql[i:], dollar) {
				current.WriteString(dollar)
				i += len(dollar) - 1
				dollar = ""
			} else {
				current.WriteByte(c)
			}

		case c == '-' && next(i) == '-':
			current.WriteString("--")
			i++
			line = true

		case c == '/' && next(i) == '*':
			current.WriteString("/*")
			i++
			depth = 1

		case c == '\'' || c == '"' || c == '`':
			current.WriteByte(c)
			quote = c

		case c == '$':
			if tag, ok := parseDollarTag(sql, i); ok {
				current.WriteString(tag)
				i += len(tag) - 1
				dollar = tag
			} else {
				current.WriteByte(c)
			}

		case c == ';':
			flush()

		default:
			current.WriteByte(c)
		}
	}
	flush()

	return stmts
}

// parseDollarTag recognises $$ or $tag$ starting at sql[i].
func parseDollarTag(sql string, i int) (string, bool) {
	if i >= len(sql) || sql[i] != '$' {
		return "", false
	}
	if i+1 < len(sql) && sql[i+1] == '$' {
		return "$$", true
	}

	j := i + 1
	if j >= len(sql) || !isIdentStart(sql[j]) {
		return "", false
	}
	for j < len(sql) && (isIdentStart(sql[j]) || sql[j] >= '0' && sql[j] <= '9') {
		j++
	}
	if j < len(sql) && sql[j] == '$' {
		return sql[i : j+1], true
	}
	return "", false
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

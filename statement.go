package main

import (
	"fmt"
	"strings"
)

// encodeFunc encodes one value with its column's declared type.
type encodeFunc func(val any, declaredType string) string

// encoderFor binds encodeValue to a dialect.
func encoderFor(d Dialect) encodeFunc {
	return func(val any, declaredType string) string {
		return encodeValue(val, declaredType, d)
	}
}

// fieldNameList joins column names, skipping the identity column unless includeIdentity.
func fieldNameList(columns []Column, idIndex int, includeIdentity bool) string {
	names := make([]string, 0, len(columns))
	for i, c := range columns {
		if i == idIndex && !includeIdentity {
			continue
		}
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}

// fieldValueList joins the encoded row values with the same skip rule as fieldNameList.
func fieldValueList(row Row, columns []Column, idIndex int, includeIdentity bool, encode encodeFunc) string {
	values := make([]string, 0, len(columns))
	for i, c := range columns {
		if i == idIndex && !includeIdentity {
			continue
		}
		var v any
		if i < len(row) {
			v = row[i]
		}
		values = append(values, encode(v, c.DeclaredType))
	}
	return strings.Join(values, ", ")
}

// projectedFieldNameList joins an explicit column projection.
func projectedFieldNameList(names []string) string {
	return strings.Join(names, ", ")
}

// projectedFieldValueList encodes the row values at the pre-resolved source indices.
func projectedFieldValueList(row Row, columns []Column, indices []int, encode encodeFunc) string {
	values := make([]string, len(indices))
	for i, idx := range indices {
		values[i] = encode(row[idx], columns[idx].DeclaredType)
	}
	return strings.Join(values, ", ")
}

// resolveProjection maps each projected name to its index in columns, once.
func resolveProjection(columns []Column, names []string) ([]int, error) {
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		pos[c.Name] = i
	}
	seen := make(map[string]bool, len(names))
	indices := make([]int, len(names))
	for i, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("column %q listed more than once", name)
		}
		seen[name] = true
		idx, ok := pos[name]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		indices[i] = idx
	}
	return indices, nil
}

// identityBlank reports whether the row carries no usable identity value, in which case
// the target engine should assign one.
func identityBlank(row Row, idIndex int) bool {
	if idIndex < 0 || idIndex >= len(row) {
		return true
	}
	text, ok := valueText(row[idIndex])
	return !ok || isNullText(strings.TrimSpace(text))
}

func insertStatement(table, names, values string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, names, values)
}

func updateStatement(table, column, value, idValue string) string {
	return fmt.Sprintf("UPDATE %s SET %s=%s WHERE %s=%s", table, column, value, identityColumn, idValue)
}

func deleteStatement(table, idValue string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s=%s", table, identityColumn, idValue)
}

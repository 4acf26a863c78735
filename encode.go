package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// encodeValue converts a row value into a SQL literal for the given dialect.
//
// Rules, in order: empty/nil/"null" → NULL; boolean-ish column on a dialect with boolean
// literals → TRUE/FALSE; numeric text → the trimmed number, unquoted; anything else → a
// quoted string literal. All literal construction goes through here so a parameterised
// implementation can replace it without touching callers.
func encodeValue(val any, declaredType string, d Dialect) string {
	text, ok := valueText(val)
	if !ok || isNullText(text) {
		return d.nullLiteral()
	}
	if d.hasBooleanLiterals() && isBooleanType(declaredType) {
		if f, err := parseNumber(text); err == nil && f == 1 {
			return "TRUE"
		}
		return "FALSE"
	}
	if isNumber(text) {
		return strings.TrimSpace(text)
	}
	return d.quoteString(text)
}

// checkBooleanText rejects text that a boolean column on a dialect with boolean literals
// would otherwise store as FALSE: anything other than NULL or a number.
func checkBooleanText(text, declaredType string, d Dialect) error {
	if !d.hasBooleanLiterals() || !isBooleanType(declaredType) {
		return nil
	}
	if isNullText(text) || isNumber(text) {
		return nil
	}
	return fmt.Errorf("%q is not a boolean value (use 1 or 0)", text)
}

// isNullText reports whether text stands for SQL NULL.
func isNullText(text string) bool {
	return text == "" || strings.EqualFold(text, "null")
}

// isNumber reports whether s is a decimal floating-point number. Surrounding whitespace
// is allowed, as are exponents past float64 range. Spelled-out inf/nan, hex floats and
// digit separators are not.
func isNumber(s string) bool {
	_, err := parseNumber(s)
	return err == nil
}

func parseNumber(s string) (float64, error) {
	t := strings.TrimSpace(s)
	if strings.ContainsAny(t, "xX_pP") {
		return 0, fmt.Errorf("not a decimal number: %q", s)
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		var ne *strconv.NumError
		if errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange) {
			return f, nil
		}
		return 0, err
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return f, nil
}

// valueText renders a driver value as text. ok is false for nil.
func valueText(val any) (string, bool) {
	switch v := val.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	case bool:
		if v {
			return "1", true
		}
		return "0", true
	case int:
		return strconv.Itoa(v), true
	case int8:
		return strconv.FormatInt(int64(v), 10), true
	case int16:
		return strconv.FormatInt(int64(v), 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint8:
		return strconv.FormatUint(uint64(v), 10), true
	case uint16:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case time.Time:
		return v.Format("2006-01-02 15:04:05"), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

// displayText is the grid text for a value; NULL renders as an empty cell so that
// submitting the cell unchanged keeps it NULL.
func displayText(val any) string {
	text, _ := valueText(val)
	return text
}

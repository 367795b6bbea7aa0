package google

import (
	"fmt"
	"strconv"
	"strings"
)

// sheetRange addresses a whole sheet. Names are always quoted so that
// spaces and non-ASCII names work.
func sheetRange(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// cellRange addresses one cell by 0-based grid row and column.
func cellRange(sheet string, row, col int) string {
	return fmt.Sprintf("%s!%s%d", sheetRange(sheet), columnName(col), row+1)
}

// columnName converts a 0-based index to spreadsheet letters: 0 is A, 26 is AA.
func columnName(col int) string {
	var b []byte
	for col >= 0 {
		b = append([]byte{byte('A' + col%26)}, b...)
		col = col/26 - 1
	}
	return string(b)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = cellString(v)
	}
	return out
}

// cellString renders an unformatted cell. JSON numbers arrive as float64
// and are printed without exponent or trailing zeros.
func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// toValues types canonical numbers as numbers so sheet formulas can sum
// them. Everything else, including text that merely looks numeric such as
// "007", stays a string.
func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		vals := make([]interface{}, len(r))
		for j, cell := range r {
			vals[j] = cellValue(cell)
		}
		out[i] = vals
	}
	return out
}

func cellValue(s string) interface{} {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && strconv.FormatFloat(f, 'f', -1, 64) == s {
		return f
	}
	return s
}

package google

import (
	"fmt"
	"strings"
)

// sheetRange quotes a sheet title for A1 notation; the whole sheet is read.
func sheetRange(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// toGrid converts the API value matrix to text. Trailing empty cells are
// omitted by the API; callers pad rows.
func toGrid(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = toStrings(row)
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

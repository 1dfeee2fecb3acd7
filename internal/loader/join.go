package loader

import "analizador/internal/core"

const (
	leftSuffix  = "_x"
	rightSuffix = "_y"
)

// leftJoin keeps every row of left, in order. A left row matching k right
// rows appears k times (one per match, in right order); an unmatched row
// appears once with null right columns. Null keys never match. Column
// names present on both sides get the _x / _y suffixes.
func leftJoin(left, right *core.Table, leftKey, rightKey string) *core.Table {
	lk := left.ColumnIndex(leftKey)
	rk := right.ColumnIndex(rightKey)

	rightNames := make(map[string]bool, len(right.Columns))
	for _, c := range right.Columns {
		rightNames[c] = true
	}
	leftNames := make(map[string]bool, len(left.Columns))
	for _, c := range left.Columns {
		leftNames[c] = true
	}

	columns := make([]string, 0, len(left.Columns)+len(right.Columns))
	for _, c := range left.Columns {
		if rightNames[c] {
			c += leftSuffix
		}
		columns = append(columns, c)
	}
	for _, c := range right.Columns {
		if leftNames[c] {
			c += rightSuffix
		}
		columns = append(columns, c)
	}

	index := make(map[string][]int, len(right.Rows))
	for i, row := range right.Rows {
		key := row[rk]
		if key.IsNull() {
			continue
		}
		index[key.Text] = append(index[key.Text], i)
	}

	out := core.NewTable("Datos Combinados", columns)
	out.Rows = make([][]core.Value, 0, len(left.Rows))
	for _, lrow := range left.Rows {
		var matches []int
		if key := lrow[lk]; !key.IsNull() {
			matches = index[key.Text]
		}
		if len(matches) == 0 {
			row := make([]core.Value, len(columns))
			copy(row, lrow)
			out.Rows = append(out.Rows, row)
			continue
		}
		for _, m := range matches {
			row := make([]core.Value, len(columns))
			copy(row, lrow)
			copy(row[len(left.Columns):], right.Rows[m])
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// setColumn replaces the named column, or appends it when absent.
func setColumn(t *core.Table, name string, values []core.Value) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		t.Columns = append(t.Columns, name)
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], values[i])
		}
		return
	}
	for i := range t.Rows {
		t.Rows[i][idx] = values[i]
	}
}

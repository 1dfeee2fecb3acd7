package loader

import (
	"fmt"
	"strings"

	"analizador/internal/core"
)

// sheetTable is a parsed sheet plus the spreadsheet row number of every
// data row, so errors can point at the cell the user sees.
type sheetTable struct {
	*core.Table
	srcRows []int
}

// buildTable turns a raw grid into a table. The first row is the header,
// fully blank rows are skipped and short rows are padded with nulls.
func buildTable(name string, grid [][]string) (*sheetTable, error) {
	if len(grid) == 0 || blankRow(grid[0]) {
		return nil, fmt.Errorf("sheet has no header row")
	}
	width := len(grid[0])
	for _, row := range grid[1:] {
		if len(row) > width {
			width = len(row)
		}
	}
	t := &sheetTable{Table: core.NewTable(name, headerNames(grid[0], width))}
	for i, raw := range grid[1:] {
		if blankRow(raw) {
			continue
		}
		row := make([]core.Value, width)
		for c, cell := range raw {
			row[c] = core.Cell(cell)
		}
		t.Rows = append(t.Rows, row)
		t.srcRows = append(t.srcRows, i+2)
	}
	return t, nil
}

// headerNames trims header cells, names blank ones "Unnamed: N" and
// disambiguates repeats with ".1", ".2"…
func headerNames(raw []string, width int) []string {
	out := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(raw) {
			name = strings.TrimSpace(raw[i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

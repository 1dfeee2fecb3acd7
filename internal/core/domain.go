package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Column names of the input workbook.
const (
	ColCode      = "codigo"
	ColEntryDate = "fecha_entrada_caja"
	ColPrepDate  = "fecha_preparación_caja"
	ColValue     = "valor"

	ColFamilyCode = "CODIGO"
	ColFamily     = "FAMILIA"
	ColOrigin     = "ORIGEN"
	ColQuality    = "CALIDAD"

	// Derived from ColEntryDate after the join.
	ColMonth = "mes"
	ColYear  = "año"
)

// Default sheet names.
const (
	SheetEntries  = "Entradas"
	SheetFamilies = "Familias"
)

const (
	// EntryDateLayout is the only accepted textual date format (day/month/2-digit year).
	EntryDateLayout = "2/1/06"
	// EntryDateOutputLayout writes dates back in the zero-padded input form.
	EntryDateOutputLayout = "02/01/06"
	// ISODateLayout is how parsed dates are rendered in previews and exports.
	ISODateLayout = "2006-01-02"
	// MonthLayout renders the derived month column.
	MonthLayout = "2006-01"
)

// Kind describes what a cell holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "texto"
	case KindNumber:
		return "número"
	case KindDate:
		return "fecha"
	default:
		return "vacío"
	}
}

type (
	// Value is a single table cell. The zero Value is null.
	Value struct {
		Kind Kind
		Text string
		Num  float64
		Time time.Time
	}

	// Table is an in-memory, column-ordered table.
	Table struct {
		Name    string
		Columns []string
		Rows    [][]Value
	}

	// ColumnInfo summarizes one column for the preview tabs.
	ColumnInfo struct {
		Name    string
		Kind    string
		NonNull int
	}

	// Dataset is the result of one load: both source tables and their join.
	Dataset struct {
		Identity string
		Source   string
		Entries  *Table
		Families *Table
		Joined   *Table
		LoadedAt time.Time
	}
)

var ErrInvalidDate = errors.New("invalid date")

// Null returns the null value.
func Null() Value { return Value{} }

// missingMarkers are the spellings spreadsheet readers conventionally treat
// as an empty cell.
var missingMarkers = map[string]bool{
	"#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true, "-1.#QNAN": true,
	"-NaN": true, "-nan": true, "1.#IND": true, "1.#QNAN": true, "<NA>": true,
	"N/A": true, "NA": true, "NULL": true, "NaN": true, "None": true,
	"n/a": true, "nan": true, "null": true,
}

// Cell builds a value from raw cell text. Blank text and missing markers are
// null; finite numeric text becomes a number keeping its original spelling.
func Cell(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" || missingMarkers[s] {
		return Value{}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return Value{Kind: KindNumber, Text: s, Num: f}
	}
	return Value{Kind: KindText, Text: s}
}

// Text builds a text value; blank strings are null.
func Text(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Value{}
	}
	return Value{Kind: KindText, Text: s}
}

// Number builds a numeric value.
func Number(f float64) Value {
	return Value{Kind: KindNumber, Text: strconv.FormatFloat(f, 'f', -1, 64), Num: f}
}

// Date builds a date value rendered as YYYY-MM-DD.
func Date(t time.Time) Value {
	return Value{Kind: KindDate, Text: t.Format(ISODateLayout), Time: t}
}

// IsNull reports whether the cell is empty.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Float returns the numeric content of the cell, if any.
func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// String returns the cell text; null renders as "".
func (v Value) String() string { return v.Text }

// ParseEntryDate parses a DD/MM/YY date. No other layout is attempted.
func ParseEntryDate(s string) (time.Time, error) {
	t, err := time.Parse(EntryDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q does not match DD/MM/YY", ErrInvalidDate, s)
	}
	return t, nil
}

// NewTable creates an empty table with the given header.
func NewTable(name string, columns []string) *Table {
	return &Table{Name: name, Columns: append([]string(nil), columns...)}
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Append adds a row, padding or truncating it to the header width.
func (t *Table) Append(row []Value) {
	out := make([]Value, len(t.Columns))
	copy(out, row)
	t.Rows = append(t.Rows, out)
}

// Get returns the cell at row i in the named column; missing columns read as null.
func (t *Table) Get(i int, column string) Value {
	idx := t.ColumnIndex(column)
	if idx < 0 || i < 0 || i >= len(t.Rows) || idx >= len(t.Rows[i]) {
		return Value{}
	}
	return t.Rows[i][idx]
}

// Head returns a shallow copy holding at most n rows.
func (t *Table) Head(n int) *Table {
	out := &Table{Name: t.Name, Columns: t.Columns}
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	out.Rows = t.Rows[:n]
	return out
}

// Column returns a copy of the named column's cells, or nil when absent.
func (t *Table) Column(name string) []Value {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}

// ColumnTypes infers a kind per column. Mixed columns report "mixto".
func (t *Table) ColumnTypes() []ColumnInfo {
	out := make([]ColumnInfo, len(t.Columns))
	for c, name := range t.Columns {
		info := ColumnInfo{Name: name, Kind: KindNull.String()}
		var seen Kind
		mixed := false
		for _, row := range t.Rows {
			v := row[c]
			if v.IsNull() {
				continue
			}
			info.NonNull++
			if seen == KindNull {
				seen = v.Kind
			} else if seen != v.Kind {
				mixed = true
			}
		}
		switch {
		case mixed:
			info.Kind = "mixto"
		default:
			info.Kind = seen.String()
		}
		out[c] = info
	}
	return out
}

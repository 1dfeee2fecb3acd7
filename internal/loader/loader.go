// Package loader reads the Entradas and Familias sheets of a workbook,
// converts their dates and joins them into one table.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"analizador/internal/core"
	"analizador/internal/sheets"
)

// Options name the two sheets to read.
type Options struct {
	EntriesSheet  string
	FamiliesSheet string
}

// DefaultOptions reads "Entradas" and "Familias".
func DefaultOptions() Options {
	return Options{EntriesSheet: core.SheetEntries, FamiliesSheet: core.SheetFamilies}
}

var (
	entryRequired  = []string{core.ColCode, core.ColEntryDate, core.ColPrepDate}
	familyRequired = []string{core.ColFamilyCode}
	dateColumns    = []string{core.ColEntryDate, core.ColPrepDate}
)

// Loader turns a workbook source into a Dataset. It holds no state between
// calls; see Cache for memoization.
type Loader struct {
	opts Options
	now  func() time.Time
}

func New(opts Options) *Loader {
	def := DefaultOptions()
	if opts.EntriesSheet == "" {
		opts.EntriesSheet = def.EntriesSheet
	}
	if opts.FamiliesSheet == "" {
		opts.FamiliesSheet = def.FamiliesSheet
	}
	return &Loader{opts: opts, now: time.Now}
}

// Options returns the effective sheet names.
func (l *Loader) Options() Options { return l.opts }

// Load reads, validates and joins both sheets. Every failure is a *core.LoadError.
func (l *Loader) Load(ctx context.Context, src sheets.WorkbookReader) (*core.Dataset, error) {
	id, err := src.Identity(ctx)
	if err != nil {
		return nil, &core.LoadError{Source: src.Name(), Err: err}
	}
	return l.load(ctx, src, id)
}

func (l *Loader) load(ctx context.Context, src sheets.WorkbookReader, identity string) (*core.Dataset, error) {
	name := src.Name()

	entries, err := l.readSheet(ctx, src, l.opts.EntriesSheet, entryRequired)
	if err != nil {
		return nil, err
	}
	for _, col := range dateColumns {
		if err := parseDates(entries, col); err != nil {
			err.Source = name
			return nil, err
		}
	}

	families, err := l.readSheet(ctx, src, l.opts.FamiliesSheet, familyRequired)
	if err != nil {
		return nil, err
	}

	joined := leftJoin(entries.Table, families.Table, core.ColCode, core.ColFamilyCode)
	deriveMonthYear(joined)

	return &core.Dataset{
		Identity: identity,
		Source:   name,
		Entries:  entries.Table,
		Families: families.Table,
		Joined:   joined,
		LoadedAt: l.now(),
	}, nil
}

func (l *Loader) readSheet(ctx context.Context, src sheets.WorkbookReader, sheet string, required []string) (*sheetTable, error) {
	grid, err := src.ReadSheet(ctx, sheet)
	if err != nil {
		return nil, &core.LoadError{Source: src.Name(), Sheet: sheet, Err: err}
	}
	t, err := buildTable(sheet, grid)
	if err != nil {
		return nil, &core.LoadError{Source: src.Name(), Sheet: sheet, Err: err}
	}
	for _, col := range required {
		if !t.HasColumn(col) {
			return nil, &core.LoadError{Source: src.Name(), Sheet: sheet, Column: col, Err: errMissingColumn}
		}
	}
	return t, nil
}

var errMissingColumn = errors.New("required column not found")

// parseDates converts a text column to dates in place. Blank cells stay
// null; any other cell that is not DD/MM/YY fails the whole sheet.
func parseDates(t *sheetTable, col string) *core.LoadError {
	idx := t.ColumnIndex(col)
	for i, row := range t.Rows {
		v := row[idx]
		if v.IsNull() {
			continue
		}
		d, err := core.ParseEntryDate(v.Text)
		if err != nil {
			return &core.LoadError{Sheet: t.Name, Column: col, Row: t.srcRows[i], Err: err}
		}
		row[idx] = core.Date(d)
	}
	return nil
}

// deriveMonthYear adds mes (YYYY-MM) and año from the entry date.
func deriveMonthYear(t *core.Table) {
	idx := t.ColumnIndex(core.ColEntryDate)
	months := make([]core.Value, len(t.Rows))
	years := make([]core.Value, len(t.Rows))
	for i, row := range t.Rows {
		if idx < 0 || row[idx].Kind != core.KindDate {
			continue
		}
		d := row[idx].Time
		months[i] = core.Text(d.Format(core.MonthLayout))
		years[i] = core.Number(float64(d.Year()))
	}
	setColumn(t, core.ColMonth, months)
	setColumn(t, core.ColYear, years)
}

// Summary is a short description of a dataset, used by logs and the CLI.
type Summary struct {
	Source    string
	Identity  string
	Entries   int
	Families  int
	Joined    int
	Unmatched int
	// Columns of the joined table, derived ones included.
	Columns int
}

// Summarize counts rows and entries without a family match.
func Summarize(ds *core.Dataset) Summary {
	s := Summary{
		Source:   ds.Source,
		Identity: ds.Identity,
		Entries:  ds.Entries.Len(),
		Families: ds.Families.Len(),
		Joined:   ds.Joined.Len(),
		Columns:  len(ds.Joined.Columns),
	}
	code := ds.Joined.ColumnIndex(core.ColFamilyCode)
	if code < 0 {
		code = ds.Joined.ColumnIndex(core.ColFamilyCode + rightSuffix)
	}
	if code < 0 {
		return s
	}
	for _, row := range ds.Joined.Rows {
		if row[code].IsNull() {
			s.Unmatched++
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: %d entradas, %d familias, %d combinados (%d sin familia)",
		s.Source, s.Entries, s.Families, s.Joined, s.Unmatched)
}

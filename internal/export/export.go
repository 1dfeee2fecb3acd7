// Package export writes tables as CSV and workbooks.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"analizador/internal/core"

	"github.com/xuri/excelize/v2"
)

// Download names used by the HTTP layer.
const (
	CSVFileName  = "datos_combinados.csv"
	XLSXFileName = "datos_combinados.xlsx"
	JoinedSheet  = "Datos Combinados"
)

// WriteCSV writes the header and one record per row. Nulls become empty
// fields and dates are written as YYYY-MM-DD.
func WriteCSV(w io.Writer, t *core.Table) error {
	if t == nil {
		return core.ErrNoData
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		for c := range record {
			record[c] = ""
			if c < len(row) {
				record[c] = row[c].String()
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file written by WriteCSV. ISO dates come back as dates,
// numbers as numbers and empty fields as nulls.
func ReadCSV(r io.Reader) (*core.Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty csv")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	t := core.NewTable(JoinedSheet, header)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", t.Len()+1, err)
		}
		row := make([]core.Value, len(rec))
		for i, f := range rec {
			row[i] = parseField(f)
		}
		t.Append(row)
	}
	return t, nil
}

func parseField(f string) core.Value {
	if len(f) == len(core.ISODateLayout) {
		if d, err := time.Parse(core.ISODateLayout, f); err == nil {
			return core.Date(d)
		}
	}
	return core.Cell(f)
}

// WriteXLSX writes the joined table followed by both source sheets. Source
// dates are written back as DD/MM/YY text so the file can be uploaded again.
func WriteXLSX(w io.Writer, ds *core.Dataset) error {
	if ds == nil || ds.Joined == nil {
		return core.ErrNoData
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), JoinedSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSheet(f, JoinedSheet, ds.Joined, core.ISODateLayout); err != nil {
		return err
	}
	for _, t := range []*core.Table{ds.Entries, ds.Families} {
		if t == nil {
			continue
		}
		if _, err := f.NewSheet(t.Name); err != nil {
			return fmt.Errorf("new sheet %q: %w", t.Name, err)
		}
		if err := writeSheet(f, t.Name, t, core.EntryDateOutputLayout); err != nil {
			return err
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t *core.Table, dateLayout string) error {
	head := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		head[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	for i, r := range t.Rows {
		row := make([]any, len(t.Columns))
		for j := range row {
			if j < len(r) {
				row[j] = cellValue(r[j], dateLayout)
			}
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

// cellValue keeps numbers numeric unless that would change their spelling.
func cellValue(v core.Value, dateLayout string) any {
	switch v.Kind {
	case core.KindNull:
		return nil
	case core.KindDate:
		return v.Time.Format(dateLayout)
	case core.KindNumber:
		if strconv.FormatFloat(v.Num, 'f', -1, 64) == v.Text {
			return v.Num
		}
	}
	return v.Text
}

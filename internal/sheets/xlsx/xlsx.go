// Package xlsx reads and writes workbooks through excelize.
package xlsx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	ports "analizador/internal/sheets"

	"github.com/xuri/excelize/v2"
)

// Reader serves sheets of one workbook held in memory. The workbook is only
// parsed on the first ReadSheet, so computing the identity stays cheap.
type Reader struct {
	name string
	id   string
	data []byte

	once    sync.Once
	f       *excelize.File
	openErr error
}

var (
	_ ports.WorkbookReader = (*Reader)(nil)
	_ ports.SheetLister    = (*Reader)(nil)
)

// Open reads the workbook at path.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	return FromBytes(filepath.Base(path), data)
}

// FromBytes parses a workbook already in memory; name is used for display only.
func FromBytes(name string, data []byte) (*Reader, error) {
	id, err := ports.Checksum(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &Reader{name: name, id: id, data: data}, nil
}

func (r *Reader) open() (*excelize.File, error) {
	r.once.Do(func() {
		f, err := excelize.OpenReader(bytes.NewReader(r.data))
		if err != nil {
			r.openErr = fmt.Errorf("open workbook %s: %w", r.name, err)
			return
		}
		r.f = f
		r.data = nil
	})
	return r.f, r.openErr
}

func (r *Reader) Name() string { return r.name }

// Identity is the xxhash of the raw workbook bytes.
func (r *Reader) Identity(context.Context) (string, error) { return r.id, nil }

// ReadSheet returns raw cell values; number formats are not applied so dates
// stored as text keep their spelling. Cells Excel stores as dates come back
// as DD/MM/YY.
func (r *Reader) ReadSheet(ctx context.Context, name string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := r.open()
	if err != nil {
		return nil, err
	}
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		var missing excelize.ErrSheetNotExist
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: %q", ports.ErrSheetNotFound, name)
		}
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	if err := formatDates(f, name, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// formatDates rewrites numeric cells whose number format is a date into the
// DD/MM/YY text a typed date would have.
func formatDates(f *excelize.File, sheet string, rows [][]string) error {
	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	isDate := make(map[int]bool)
	for ri, row := range rows {
		for ci, v := range row {
			if v == "" {
				continue
			}
			serial, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(ci+1, ri+1)
			if err != nil {
				return err
			}
			idx, err := f.GetCellStyle(sheet, cell)
			if err != nil {
				return fmt.Errorf("style of %s!%s: %w", sheet, cell, err)
			}
			date, ok := isDate[idx]
			if !ok {
				date = dateStyle(f, idx)
				isDate[idx] = date
			}
			if !date {
				continue
			}
			t, err := excelize.ExcelDateToTime(serial, date1904)
			if err != nil {
				continue
			}
			rows[ri][ci] = t.Format(textDateLayout)
		}
	}
	return nil
}

const textDateLayout = "02/01/06"

// dateStyle reports whether style idx formats numbers as a calendar date.
func dateStyle(f *excelize.File, idx int) bool {
	st, err := f.GetStyle(idx)
	if err != nil || st == nil {
		return false
	}
	if st.CustomNumFmt != nil {
		return isDateFormat(*st.CustomNumFmt)
	}
	switch n := st.NumFmt; {
	case n >= 14 && n <= 17, n == 22, n >= 27 && n <= 36, n >= 50 && n <= 58:
		return true
	}
	return false
}

// isDateFormat looks for day or year tokens outside quoted text and
// bracketed sections such as colors and locales.
func isDateFormat(code string) bool {
	var quoted, bracket, escaped bool
	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case quoted:
			quoted = r != '"'
		case bracket:
			bracket = r != ']'
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = true
		case r == '[':
			bracket = true
		case r == 'd' || r == 'y':
			return true
		}
	}
	return false
}

// Sheets lists the sheet names in workbook order.
func (r *Reader) Sheets(context.Context) ([]string, error) {
	f, err := r.open()
	if err != nil {
		return nil, err
	}
	return f.GetSheetList(), nil
}

func (r *Reader) Close() error {
	if r.f == nil {
		return nil
	}
	return r.f.Close()
}

// Sheet is one named grid to be written by Encode.
type Sheet struct {
	Name string
	Rows [][]string
}

// Encode builds a workbook holding the given sheets in order. Cells are
// written as text.
func Encode(w io.Writer, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return errors.New("no sheets to write")
	}
	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.Name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return fmt.Errorf("new sheet %q: %w", sh.Name, err)
		}
		for r, row := range sh.Rows {
			cells := make([]any, len(row))
			for c, v := range row {
				cells[c] = v
			}
			axis, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sh.Name, axis, &cells); err != nil {
				return fmt.Errorf("write %s row %d: %w", sh.Name, r+1, err)
			}
		}
	}
	_, err := f.WriteTo(w)
	return err
}

// EncodeBytes is Encode into a byte slice.
func EncodeBytes(sheets ...Sheet) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, sheets...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

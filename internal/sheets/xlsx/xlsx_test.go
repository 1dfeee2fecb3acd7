package xlsx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	ports "analizador/internal/sheets"

	"github.com/xuri/excelize/v2"
)

func fixture(t *testing.T) []byte {
	t.Helper()
	data, err := EncodeBytes(
		Sheet{Name: "Entradas", Rows: [][]string{
			{"codigo", "fecha_entrada_caja", "valor"},
			{"A1", "05/03/24", "100"},
			{"A2", "06/03/24", ""},
		}},
		Sheet{Name: "Familias", Rows: [][]string{
			{"CODIGO", "FAMILIA"},
			{"A1", "F1"},
		}},
	)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func TestReaderRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, err := FromBytes("data.xlsx", fixture(t))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	names, _ := r.Sheets(ctx)
	if len(names) != 2 || names[0] != "Entradas" || names[1] != "Familias" {
		t.Fatalf("unexpected sheets %v", names)
	}
	rows, err := r.ReadSheet(ctx, "Entradas")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 || rows[1][1] != "05/03/24" || rows[1][2] != "100" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if r.Name() != "data.xlsx" {
		t.Fatalf("unexpected name %q", r.Name())
	}
}

func TestReaderMissingSheet(t *testing.T) {
	r, err := FromBytes("x.xlsx", fixture(t))
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.ReadSheet(context.Background(), "Nope")
	if !errors.Is(err, ports.ErrSheetNotFound) {
		t.Fatalf("expected ErrSheetNotFound, got %v", err)
	}
}

func TestIdentityFollowsContent(t *testing.T) {
	ctx := context.Background()
	data := fixture(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "a.xlsx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := FromBytes("other-name.xlsx", data)
	ida, _ := a.Identity(ctx)
	idb, _ := b.Identity(ctx)
	if ida != idb {
		t.Fatalf("same bytes should share identity: %s vs %s", ida, idb)
	}
	want, _ := ports.FileChecksum(path)
	if ida != want {
		t.Fatalf("identity should be the file checksum")
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	r, err := FromBytes("bad.xlsx", []byte("not a zip"))
	if err != nil {
		t.Fatalf("identity should not need a valid workbook: %v", err)
	}
	if _, err := r.ReadSheet(context.Background(), "Entradas"); err == nil {
		t.Fatal("expected error for invalid workbook")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.xlsx")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReadSheetFormatsDateCells(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	_ = f.SetCellValue(sheet, "A1", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	_ = f.SetCellValue(sheet, "B1", 45356)
	_ = f.SetCellValue(sheet, "C1", time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC))
	custom := "[$-es-ES]dd/mm/yyyy;@"
	dmy, err := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
	if err != nil {
		t.Fatal(err)
	}
	_ = f.SetCellStyle(sheet, "A1", "A1", dmy)
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	r, err := FromBytes("fechas.xlsx", buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	rows, err := r.ReadSheet(context.Background(), sheet)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"05/03/24", "45356", "31/12/99"}
	for i, w := range want {
		if rows[0][i] != w {
			t.Errorf("cell %d = %q, want %q", i, rows[0][i], w)
		}
	}
}

func TestIsDateFormat(t *testing.T) {
	cases := map[string]bool{
		"dd/mm/yy":          true,
		"yyyy-mm-dd":        true,
		"[$-409]d-mmm-yy;@": true,
		"0.00":              false,
		"#,##0 \"días\"":    false,
		"[Red]0.0":          false,
		"hh:mm:ss":          false,
		"General":           false,
		"\\d0":              false,
	}
	for code, want := range cases {
		if got := isDateFormat(code); got != want {
			t.Errorf("isDateFormat(%q) = %v, want %v", code, got, want)
		}
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"analizador/internal/aggregate"
	"analizador/internal/core"
	"analizador/internal/export"
	"analizador/internal/sheets/xlsx"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	data, err := xlsx.EncodeBytes(
		xlsx.Sheet{Name: core.SheetEntries, Rows: [][]string{
			{"codigo", "fecha_entrada_caja", "fecha_preparación_caja", "valor"},
			{"A1", "05/01/24", "04/01/24", "10"},
			{"A2", "07/02/24", "06/02/24", "25"},
			{"Q7", "09/02/24", "", "5"},
		}},
		xlsx.Sheet{Name: core.SheetFamilies, Rows: [][]string{
			{"CODIGO", "FAMILIA", "ORIGEN", "CALIDAD"},
			{"A1", "Frutas", "Norte", "Extra"},
			{"A2", "Frutas", "Sur", "Primera"},
		}},
	)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "libro.xlsx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSummary(t *testing.T) {
	path := writeWorkbook(t)
	out, err := run(t, "summary", "--columns", path)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	for _, want := range []string{"3 entradas", "2 familias", "(1 sin familia)", "mes", "año"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestChartJSON(t *testing.T) {
	path := writeWorkbook(t)
	out, err := run(t, "chart", path, "--mode", "valor-mes")
	if err != nil {
		t.Fatalf("chart: %v", err)
	}
	var cd aggregate.ChartData
	if err := json.Unmarshal([]byte(out), &cd); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if cd.Mode != aggregate.ValueByMonth || len(cd.Monthly) != 2 {
		t.Fatalf("unexpected chart %+v", cd)
	}
	if cd.Monthly[1].Month != "2024-02" || cd.Monthly[1].Sum != 30 {
		t.Errorf("february = %+v", cd.Monthly[1])
	}
}

func TestChartPNG(t *testing.T) {
	path := writeWorkbook(t)
	png := filepath.Join(t.TempDir(), "c.png")
	if _, err := run(t, "chart", path, "-m", "2", "--png", png, "--width", "300", "--height", "200"); err != nil {
		t.Fatalf("chart: %v", err)
	}
	data, err := os.ReadFile(png)
	if err != nil || !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("png not written: %v", err)
	}
}

func TestChartErrors(t *testing.T) {
	path := writeWorkbook(t)
	if _, err := run(t, "chart", path, "--mode", "pastel"); err == nil {
		t.Error("unknown mode should fail")
	}
	_, err := run(t, "chart", filepath.Join(t.TempDir(), "missing.xlsx"))
	if err == nil || !strings.Contains(err.Error(), "Error al cargar el archivo Excel") {
		t.Errorf("missing file error = %v", err)
	}
}

func TestExport(t *testing.T) {
	path := writeWorkbook(t)
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "out.csv")
	out, err := run(t, "export", path, "-o", csvPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "3 filas") {
		t.Errorf("output = %q", out)
	}
	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	tb, err := export.ReadCSV(f)
	if err != nil {
		t.Fatal(err)
	}
	if tb.Len() != 3 || !tb.HasColumn(core.ColMonth) {
		t.Errorf("csv table: %d rows, columns %v", tb.Len(), tb.Columns)
	}

	if _, err := run(t, "export", path, "-f", "xlsx", "-o", filepath.Join(dir, "out.xlsx")); err != nil {
		t.Fatalf("xlsx export: %v", err)
	}
	if _, err := run(t, "export", path, "-f", "ods"); err == nil {
		t.Error("unknown format should fail")
	}

	out, err = run(t, "export", path, "-o", "-")
	if err != nil || !strings.HasPrefix(strings.TrimPrefix(out, "\ufeff"), "codigo,") {
		t.Errorf("stdout export = %q, %v", out, err)
	}
}

func TestModes(t *testing.T) {
	out, err := run(t, "modes")
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range aggregate.Modes() {
		if !strings.Contains(out, m.Slug()) || !strings.Contains(out, m.Label()) {
			t.Errorf("modes output missing %s", m.Slug())
		}
	}
}

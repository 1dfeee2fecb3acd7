package render

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"analizador/internal/aggregate"
	"analizador/internal/core"
)

func sampleTable() *core.Table {
	t := core.NewTable("x", []string{core.ColValue, core.ColFamily, core.ColOrigin, core.ColQuality, core.ColMonth})
	rows := [][]string{
		{"100", "Frutas", "Chile", "Alta", "2024-01"},
		{"200", "Verduras", "Perú", "Baja", "2024-01"},
		{"150", "Frutas", "Chile", "Baja", "2024-02"},
		{"900", "Frutas", "Perú", "Alta", "2024-02"},
		{"120", "Verduras", "Chile", "Alta", "2024-03"},
	}
	for _, r := range rows {
		vals := make([]core.Value, len(r))
		for i, c := range r {
			vals[i] = core.Cell(c)
		}
		t.Append(vals)
	}
	return t
}

func TestPNGEveryMode(t *testing.T) {
	tb := sampleTable()
	for _, mode := range aggregate.Modes() {
		cd, err := aggregate.Aggregate(tb, mode)
		if err != nil {
			t.Fatalf("%v: %v", mode, err)
		}
		var buf bytes.Buffer
		if err := PNG(&buf, cd, 640, 320); err != nil {
			t.Fatalf("%v: render: %v", mode, err)
		}
		img, err := png.Decode(&buf)
		if err != nil {
			t.Fatalf("%v: output is not a PNG: %v", mode, err)
		}
		if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 320 {
			t.Fatalf("%v: unexpected size %v", mode, b)
		}
	}
}

func TestPNGEmpty(t *testing.T) {
	empty := core.NewTable("x", []string{core.ColValue, core.ColOrigin, core.ColQuality, core.ColMonth, core.ColFamily})
	for _, mode := range aggregate.Modes() {
		cd, err := aggregate.Aggregate(empty, mode)
		if err != nil {
			t.Fatal(err)
		}
		if err := PNG(&bytes.Buffer{}, cd, 0, 0); !errors.Is(err, ErrNoSeries) {
			t.Fatalf("%v: expected ErrNoSeries, got %v", mode, err)
		}
	}
	if err := PNG(&bytes.Buffer{}, nil, 0, 0); !errors.Is(err, ErrNoSeries) {
		t.Fatal("nil chart data")
	}
}

func TestBarWidth(t *testing.T) {
	if barWidth(1024, 1) != 80 || barWidth(200, 50) != 8 {
		t.Fatal("bar width should be clamped")
	}
}

func TestFlatRange(t *testing.T) {
	if flatRange([]float64{1, 2}) != nil {
		t.Fatal("spread data should use automatic range")
	}
	r := flatRange([]float64{10, 10})
	if r == nil || r.Min != 5 || r.Max != 15 {
		t.Fatalf("unexpected range %+v", r)
	}
	if z := flatRange([]float64{0}); z.Min != -1 || z.Max != 1 {
		t.Fatalf("zero should pad by one, got %+v", z)
	}
}

func TestPNGSingleMonth(t *testing.T) {
	cd := &aggregate.ChartData{
		Mode:    aggregate.ValueByMonth,
		Title:   "Valor por Mes",
		Monthly: []aggregate.MonthValue{{Month: "2024-01", Mean: 150, Sum: 300, Count: 2}},
	}
	if err := PNG(&bytes.Buffer{}, cd, 400, 300); err != nil {
		t.Fatalf("single month should render: %v", err)
	}
}

package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"analizador/internal/aggregate"
	"analizador/internal/core"
)

func TestParseChartParams(t *testing.T) {
	tests := []struct {
		name       string
		query      url.Values
		wantFile   string
		wantMode   aggregate.Mode
		wantWidth  int
		wantHeight int
		wantErr    bool
	}{
		{
			name:     "defaults",
			query:    url.Values{},
			wantMode: aggregate.QualityByMonth,
		},
		{
			name:     "slug and file",
			query:    url.Values{"file": {" ventas.xlsx "}, "mode": {"valor-mes"}},
			wantFile: "ventas.xlsx",
			wantMode: aggregate.ValueByMonth,
		},
		{
			name:     "spanish label",
			query:    url.Values{"mode": {"Distribución de Calidad por Familia"}},
			wantMode: aggregate.QualityByFamily,
		},
		{
			name:     "index",
			query:    url.Values{"mode": {"6"}},
			wantMode: aggregate.MeanValueByOriginQuality,
		},
		{
			name:       "dimensions are clamped",
			query:      url.Values{"w": {"10"}, "h": {"99999"}},
			wantMode:   aggregate.QualityByMonth,
			wantWidth:  minChartSide,
			wantHeight: maxChartSide,
		},
		{
			name:     "invalid dimensions fall back to default",
			query:    url.Values{"w": {"abc"}, "h": {"-3"}},
			wantMode: aggregate.QualityByMonth,
		},
		{
			name:    "unknown mode",
			query:   url.Values{"mode": {"pastel"}},
			wantErr: true,
		},
		{
			name:    "index out of range",
			query:   url.Values{"mode": {"7"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChartParams(tt.query)
			if tt.wantErr {
				if !errors.Is(err, core.ErrUnknownMode) {
					t.Fatalf("error = %v, want ErrUnknownMode", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.File != tt.wantFile || got.Mode != tt.wantMode || got.Width != tt.wantWidth || got.Height != tt.wantHeight {
				t.Errorf("ParseChartParams() = %+v", got)
			}
		})
	}
}

func TestChartQueryRoundTrip(t *testing.T) {
	p := ChartParams{File: "a b.xlsx", Mode: aggregate.ValueByQuality, Width: 800}
	q, err := url.ParseQuery(chartQuery(p))
	if err != nil {
		t.Fatal(err)
	}
	got, err := ParseChartParams(q)
	if err != nil {
		t.Fatal(err)
	}
	if got != p {
		t.Errorf("round trip = %+v, want %+v", got, p)
	}
}

func TestParseTable(t *testing.T) {
	tests := map[string]string{
		"":           TableJoined,
		"entradas":   TableEntries,
		"FAMILIAS":   TableFamilies,
		"combinados": TableJoined,
		"otra":       TableJoined,
	}
	for in, want := range tests {
		if got := ParseTable(url.Values{"table": {in}}); got != want {
			t.Errorf("ParseTable(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  hola  ", "hola"},
		{"a\x00b\x07c", "abc"},
		{"línea\tcon tab", "línea\tcon tab"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.input); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRequireMethod(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		allowed []string
		wantNil bool
	}{
		{"GET allowed", http.MethodGet, []string{http.MethodGet}, true},
		{"POST allowed", http.MethodPost, []string{http.MethodGet, http.MethodPost}, true},
		{"DELETE not allowed", http.MethodDelete, []string{http.MethodGet, http.MethodPost}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			result := RequireMethod(req, tt.allowed...)
			if (result == nil) != tt.wantNil {
				t.Errorf("RequireMethod() returned nil=%v, want nil=%v", result == nil, tt.wantNil)
			}
		})
	}

	if RequireGET(httptest.NewRequest(http.MethodHead, "/", nil)) != nil {
		t.Error("HEAD should pass RequireGET")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		512:     "512 B",
		2048:    "2.0 KB",
		3 << 20: "3.0 MB",
	}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

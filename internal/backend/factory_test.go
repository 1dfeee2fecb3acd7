package backend

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"analizador/internal/config"
	"analizador/internal/core"
	"analizador/internal/sheets/xlsx"
	"analizador/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("nil config should fail")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sqlite"}); err == nil {
		t.Fatal("unknown backend should fail")
	}
	got, err := FromAppConfig(&config.Config{
		DataBackend:   "memory",
		DataDir:       "seed",
		EntriesSheet:  "E",
		FamiliesSheet: "F",
	})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if got.Type != MemoryBackend || got.DataDirectory != "seed" || got.EntriesSheet != "E" || got.FamiliesSheet != "F" {
		t.Fatalf("unexpected config %+v", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"file", Config{Type: FileBackend}, false},
		{"memory", Config{Type: MemoryBackend}, false},
		{"sheets without id", Config{Type: SheetsBackend}, true},
		{"sheets with id", Config{Type: SheetsBackend, GoogleSpreadsheetID: "abc"}, false},
		{"sheets oauth client without token", Config{Type: SheetsBackend, GoogleSpreadsheetID: "abc", GoogleOAuthClientJSON: "{}"}, true},
		{"sheets oauth pair", Config{Type: SheetsBackend, GoogleSpreadsheetID: "abc", GoogleOAuthClientJSON: "{}", GoogleOAuthTokenFile: "token.json"}, false},
		{"unknown", Config{Type: "sqlite"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	if got := GetBackendTypeStrings(); len(got) != 3 || got[0] != "file" {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
}

func TestFileBackend(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "data", "data.xlsx")
	files := storage.NewFileStore(filepath.Join(dir, "up"), filepath.Join(dir, "data"), def, 1<<20)
	if err := files.EnsureDirs(); err != nil {
		t.Fatal(err)
	}

	res, err := NewFactory(nil, files).CreateBackend(context.Background(), Config{Type: FileBackend})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if _, err := res.Source.Open(context.Background()); !errors.Is(err, core.ErrNoData) {
		t.Fatalf("expected ErrNoData without a default workbook, got %v", err)
	}

	data, err := xlsx.EncodeBytes(
		xlsx.Sheet{Name: core.SheetEntries, Rows: [][]string{{"codigo"}}},
		xlsx.Sheet{Name: core.SheetFamilies, Rows: [][]string{{"CODIGO"}}},
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(def, data, 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := res.Source.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}
	if src.Name() != "data.xlsx" {
		t.Fatalf("unexpected name %q", src.Name())
	}
	if res.Source.Key() == "" {
		t.Fatal("key should not be empty")
	}
}

func TestFileBackendRequiresStore(t *testing.T) {
	if _, err := NewFactory(nil, nil).CreateBackend(context.Background(), Config{Type: FileBackend}); err == nil {
		t.Fatal("expected error without file store")
	}
}

func TestMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	res, err := NewFactory(nil, nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if _, err := res.Source.Open(context.Background()); !errors.Is(err, core.ErrNoData) {
		t.Fatalf("empty seed dir should mean no data, got %v", err)
	}

	csv := "codigo,fecha_entrada_caja\nA1,01/01/24\n"
	if err := os.WriteFile(filepath.Join(dir, "Entradas.csv"), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err = NewFactory(nil, nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	src, err := res.Source.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rows, err := src.ReadSheet(context.Background(), core.SheetEntries)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ReadSheet rows=%v err=%v", rows, err)
	}
}

func TestSheetsBackendNeedsID(t *testing.T) {
	_, err := NewFactory(nil, nil).CreateBackend(context.Background(), Config{Type: SheetsBackend})
	if err == nil {
		t.Fatal("expected error")
	}
}

package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	ports "analizador/internal/sheets"
)

func TestStoreReadAndIdentity(t *testing.T) {
	ctx := context.Background()
	s := New("test")
	s.Set("Entradas", [][]string{{"codigo"}, {"A1"}})

	rows, err := s.ReadSheet(ctx, "Entradas")
	if err != nil || len(rows) != 2 || rows[1][0] != "A1" {
		t.Fatalf("unexpected read: rows=%v err=%v", rows, err)
	}
	rows[1][0] = "mutated"
	again, _ := s.ReadSheet(ctx, "Entradas")
	if again[1][0] != "A1" {
		t.Fatalf("reads must not alias the stored grid")
	}

	id1, _ := s.Identity(ctx)
	s.Set("Entradas", [][]string{{"codigo"}, {"A2"}})
	id2, _ := s.Identity(ctx)
	if id1 == id2 {
		t.Fatalf("identity should change with content")
	}

	if _, err := s.ReadSheet(ctx, "Familias"); !errors.Is(err, ports.ErrSheetNotFound) {
		t.Fatalf("expected ErrSheetNotFound, got %v", err)
	}
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()
	content := "\ufeffcodigo,valor\nA1,100\nA2,200\n"
	if err := os.WriteFile(filepath.Join(dir, "Entradas.csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := NewFromFiles(dir, "Entradas", "Familias")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	names, _ := s.Sheets(context.Background())
	if len(names) != 1 || names[0] != "Entradas" {
		t.Fatalf("expected only Entradas, got %v", names)
	}
	rows, _ := s.ReadSheet(context.Background(), "Entradas")
	if rows[0][0] != "codigo" || len(rows) != 3 {
		t.Fatalf("unexpected rows %v", rows)
	}
}

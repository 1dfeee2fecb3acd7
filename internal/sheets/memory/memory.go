package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	ports "analizador/internal/sheets"
)

// Store is an in-memory workbook: named grids of text cells.
type Store struct {
	mu     sync.Mutex
	name   string
	sheets map[string][][]string
	order  []string
}

var (
	_ ports.WorkbookReader = (*Store)(nil)
	_ ports.SheetLister    = (*Store)(nil)
)

func New(name string) *Store {
	return &Store{name: name, sheets: map[string][][]string{}}
}

// NewFromFiles seeds one sheet per name from base/<name>.csv. Missing files
// leave the sheet absent.
func NewFromFiles(base string, names ...string) (*Store, error) {
	s := New("memory:" + filepath.Base(base))
	for _, n := range names {
		rows, err := readCSV(filepath.Join(base, n+".csv"))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("seed sheet %s: %w", n, err)
		}
		s.Set(n, rows)
	}
	return s, nil
}

// Set replaces (or adds) a sheet.
func (s *Store) Set(sheet string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sheets[sheet]; !ok {
		s.order = append(s.order, sheet)
	}
	s.sheets[sheet] = cloneGrid(rows)
}

func (s *Store) Name() string { return s.name }

func (s *Store) ReadSheet(_ context.Context, sheet string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ports.ErrSheetNotFound, sheet)
	}
	return cloneGrid(rows), nil
}

// Identity hashes every sheet in name order, so it changes whenever Set does.
func (s *Store) Identity(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := append([]string(nil), s.order...)
	sort.Strings(names)
	grids := make([][][]string, 0, len(names)*2)
	for _, n := range names {
		grids = append(grids, [][]string{{n}}, s.sheets[n])
	}
	return "mem:" + ports.GridChecksum(grids...), nil
}

func (s *Store) Sheets(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...), nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	// Strip a UTF-8 BOM left by spreadsheet exports.
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func cloneGrid(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// Package storage keeps uploaded workbooks as flat files.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const workbookExt = ".xlsx"

var (
	ErrInvalidName = errors.New("invalid file name")
	ErrNotWorkbook = errors.New("only .xlsx files are accepted")
	ErrNotFound    = errors.New("file not found")
	ErrTooLarge    = errors.New("file too large")
)

// FileInfo describes one stored workbook.
type FileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// FileStore saves uploads verbatim under UploadDir and knows the default
// workbook in DataDir.
type FileStore struct {
	UploadDir   string
	DataDir     string
	DefaultPath string
	// MaxBytes limits Save; zero means unlimited.
	MaxBytes int64
}

func NewFileStore(uploadDir, dataDir, defaultPath string, maxBytes int64) *FileStore {
	return &FileStore{UploadDir: uploadDir, DataDir: dataDir, DefaultPath: defaultPath, MaxBytes: maxBytes}
}

// EnsureDirs creates the upload and data directories.
func (s *FileStore) EnsureDirs() error {
	for _, dir := range []string{s.UploadDir, s.DataDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// CleanName reduces a client-supplied name to a safe base name ending in .xlsx.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	base := filepath.Base(name)
	if base == "." || base == "/" || base == ".." || base == "" || strings.HasPrefix(base, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !strings.EqualFold(filepath.Ext(base), workbookExt) {
		return "", fmt.Errorf("%w: %q", ErrNotWorkbook, base)
	}
	return base, nil
}

// Save writes r under the cleaned name, replacing any file with the same
// name. The content is written to a temporary file first so readers never
// see a partial workbook.
func (s *FileStore) Save(name string, r io.Reader) (string, int64, error) {
	base, err := CleanName(name)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(s.UploadDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create upload dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.UploadDir, ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	src := r
	if s.MaxBytes > 0 {
		src = io.LimitReader(r, s.MaxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("write upload: %w", err)
	}
	if s.MaxBytes > 0 && n > s.MaxBytes {
		return "", 0, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.MaxBytes)
	}

	dst := filepath.Join(s.UploadDir, base)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", 0, fmt.Errorf("store upload: %w", err)
	}
	return dst, n, nil
}

// List returns the stored workbooks sorted by name.
func (s *FileStore) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.UploadDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	var out []FileInfo
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(e.Name()), workbookExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, FileInfo{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Path resolves a stored upload by name.
func (s *FileStore) Path(name string) (string, error) {
	base, err := CleanName(name)
	if err != nil {
		return "", err
	}
	if base != strings.TrimSpace(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	p := filepath.Join(s.UploadDir, base)
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrNotFound, base)
	}
	return p, nil
}

// DefaultFile returns the default workbook path when it exists.
func (s *FileStore) DefaultFile() (string, bool) {
	if s.DefaultPath == "" {
		return "", false
	}
	info, err := os.Stat(s.DefaultPath)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return s.DefaultPath, true
}

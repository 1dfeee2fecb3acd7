package backend

import (
	"context"

	"analizador/internal/sheets"
)

// Source yields the workbook analysed when a request names no uploaded file.
type Source interface {
	// Open returns the default workbook. core.ErrNoData means there is none yet.
	// Callers close the reader when it implements io.Closer.
	Open(ctx context.Context) (sheets.WorkbookReader, error)
	// Key identifies the default workbook for cache invalidation.
	Key() string
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the default source and optional cleanup function
type BackendResult struct {
	Type    BackendType
	Source  Source
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Sheet names read from every source
	EntriesSheet  string
	FamiliesSheet string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenJSON     string
	GoogleOAuthTokenFile     string

	// Memory backend specific: directory holding <sheet>.csv seeds
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	FileBackend   BackendType = "file"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case FileBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

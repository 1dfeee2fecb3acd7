package backend

import (
	"context"
	"fmt"

	"analizador/internal/core"
	"analizador/internal/log"
	"analizador/internal/sheets"
	gsheet "analizador/internal/sheets/google"
	"analizador/internal/sheets/memory"
	"analizador/internal/sheets/xlsx"
	"analizador/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	files  *storage.FileStore
}

// NewFactory creates a new backend factory. files is required by the file backend.
func NewFactory(logger *log.Logger, files *storage.FileStore) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		files:  files,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case FileBackend:
		return f.createFileBackend()
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createFileBackend() (*BackendResult, error) {
	if f.files == nil {
		return nil, fmt.Errorf("file backend requires a file store")
	}
	path, ok := f.files.DefaultFile()
	f.logger.Info("Initialized file backend", "default_file", f.files.DefaultPath, "present", ok, "path", path)
	return &BackendResult{Type: FileBackend, Source: &fileSource{files: f.files}}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
		OAuthClientJSON: config.GoogleOAuthClientJSON,
		OAuthClientFile: config.GoogleOAuthClientFile,
		OAuthTokenJSON:  config.GoogleOAuthTokenJSON,
		OAuthTokenFile:  config.GoogleOAuthTokenFile,
		Sheets:          sheetNames(config),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)

	return &BackendResult{Type: SheetsBackend, Source: staticSource{src: cli}}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromFiles(dataDir, sheetNames(config)...)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{Type: MemoryBackend, Source: &memorySource{store: store}}, nil
}

func sheetNames(c Config) []string {
	entries, families := c.EntriesSheet, c.FamiliesSheet
	if entries == "" {
		entries = core.SheetEntries
	}
	if families == "" {
		families = core.SheetFamilies
	}
	return []string{entries, families}
}

// fileSource opens the default workbook from disk on every call; the
// loader cache keeps repeated opens cheap.
type fileSource struct {
	files *storage.FileStore
}

func (s *fileSource) Open(context.Context) (sheets.WorkbookReader, error) {
	path, ok := s.files.DefaultFile()
	if !ok {
		return nil, core.ErrNoData
	}
	r, err := xlsx.Open(path)
	if err != nil {
		return nil, &core.LoadError{Source: path, Err: err}
	}
	return r, nil
}

func (s *fileSource) Key() string { return "default:" + s.files.DefaultPath }

type staticSource struct {
	src sheets.WorkbookReader
}

func (s staticSource) Open(context.Context) (sheets.WorkbookReader, error) { return s.src, nil }

func (s staticSource) Key() string { return s.src.Name() }

// memorySource reports no data until at least one sheet was seeded.
type memorySource struct {
	store *memory.Store
}

func (s *memorySource) Open(ctx context.Context) (sheets.WorkbookReader, error) {
	names, err := s.store.Sheets(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, core.ErrNoData
	}
	return s.store, nil
}

func (s *memorySource) Key() string { return s.store.Name() }

// Static wraps an already built reader as a Source.
func Static(src sheets.WorkbookReader) Source { return staticSource{src: src} }

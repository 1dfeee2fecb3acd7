package sheets

import (
	"context"
	"errors"
)

// ErrSheetNotFound is returned by readers when the workbook lacks the requested sheet.
var ErrSheetNotFound = errors.New("sheet not found")

// Ports for inbound workbook sources.
type (
	// WorkbookReader reads raw cell grids from a workbook-like source.
	WorkbookReader interface {
		// ReadSheet returns every row of the named sheet as text, header included.
		ReadSheet(ctx context.Context, name string) ([][]string, error)
		// Identity returns a stable key for the current content of the source.
		Identity(ctx context.Context) (string, error)
		// Name is the display name of the source (file name, spreadsheet id).
		Name() string
	}

	// SheetLister is implemented by sources that can enumerate their sheets.
	SheetLister interface {
		Sheets(ctx context.Context) ([]string, error)
	}
)

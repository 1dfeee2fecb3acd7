package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	ports "analizador/internal/sheets"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Options configure a Sheets-backed workbook.
type Options struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	// User credentials, used when no service account is given. The token
	// comes from `analizar auth`.
	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
	// Sheets fetched together by Identity; normally Entradas and Familias.
	Sheets []string
}

// Client reads a Google spreadsheet as a workbook.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheets        []string

	mu sync.Mutex
	// Grids fetched by the last Identity call, consumed by ReadSheet.
	snapshot map[string][][]string
}

// Ensure interface conformance
var (
	_ ports.WorkbookReader = (*Client)(nil)
	_ ports.SheetLister    = (*Client)(nil)
)

// New creates a read-only Sheets client.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, opts.SpreadsheetID, opts.Sheets...), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test endpoint.
func NewWithService(svc *gsheet.Service, spreadsheetID string, sheets ...string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheets: sheets}
}

// newSheetsService initializes a read-only Sheets service. Service account
// credentials win; user OAuth credentials are tried next, then
// GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	credentialsJSON, err := ReadCredential(opts.CredentialsJSON, opts.CredentialsFile)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "Using service account credentials")
		return newService(ctx, goption.WithCredentialsJSON(credentialsJSON))
	case !errors.Is(err, ErrNoCredential):
		return nil, fmt.Errorf("service account: %w", err)
	}

	ts, err := userTokenSource(ctx, opts)
	if err != nil {
		return nil, err
	}
	if ts != nil {
		slog.InfoContext(ctx, "Using OAuth user credentials")
		return newService(ctx, goption.WithTokenSource(ts))
	}

	credentialsJSON, err = ReadCredential("", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	if err != nil {
		if errors.Is(err, ErrNoCredential) {
			return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_OAUTH_CLIENT_* with GOOGLE_OAUTH_TOKEN_*, or GOOGLE_APPLICATION_CREDENTIALS)")
		}
		return nil, fmt.Errorf("application credentials: %w", err)
	}
	return newService(ctx, goption.WithCredentialsJSON(credentialsJSON))
}

func newService(ctx context.Context, auth goption.ClientOption) (*gsheet.Service, error) {
	service, err := gsheet.NewService(ctx, auth, goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) Name() string { return "sheets:" + c.spreadsheetID }

// Identity fetches the configured sheets in one call and hashes their values.
// The fetched grids are kept so the ReadSheet calls of the same load do not
// hit the API again.
func (c *Client) Identity(ctx context.Context) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(c.sheets) == 0 {
		return "", errors.New("no sheets configured")
	}
	ranges := make([]string, len(c.sheets))
	for i, s := range c.sheets {
		ranges[i] = sheetRange(s)
	}
	resp, err := c.svc.Spreadsheets.Values.BatchGet(c.spreadsheetID).Ranges(ranges...).Context(ctx).Do()
	if err != nil {
		return "", c.mapErr(err, strings.Join(c.sheets, ","))
	}

	snap := make(map[string][][]string, len(c.sheets))
	grids := make([][][]string, 0, len(c.sheets))
	for i, vr := range resp.ValueRanges {
		if i >= len(c.sheets) {
			break
		}
		grid := toGrid(vr.Values)
		snap[c.sheets[i]] = grid
		grids = append(grids, grid)
	}

	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()
	return c.spreadsheetID + ":" + ports.GridChecksum(grids...), nil
}

func (c *Client) ReadSheet(ctx context.Context, name string) ([][]string, error) {
	c.mu.Lock()
	if grid, ok := c.snapshot[name]; ok {
		delete(c.snapshot, name)
		c.mu.Unlock()
		return grid, nil
	}
	c.mu.Unlock()

	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheetRange(name)).Context(ctx).Do()
	if err != nil {
		return nil, c.mapErr(err, name)
	}
	return toGrid(resp.Values), nil
}

// Sheets lists the tab titles of the spreadsheet.
func (c *Client) Sheets(ctx context.Context) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	out := make([]string, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			out = append(out, s.Properties.Title)
		}
	}
	return out, nil
}

// mapErr turns the API's "Unable to parse range" answer into ErrSheetNotFound.
func (c *Client) mapErr(err error, sheet string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == 400 && strings.Contains(gerr.Message, "Unable to parse range") {
		return fmt.Errorf("%w: %q", ports.ErrSheetNotFound, sheet)
	}
	return fmt.Errorf("read sheet %s: %w", sheet, err)
}

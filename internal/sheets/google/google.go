package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"tiffin/internal/core"
	ports "tiffin/internal/sheets"
)

const defaultBaseName = "Tiffin"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base tab name; each month goes to "<base> YYYY-MM".
	baseName string
}

// Ensure interface conformance
var _ ports.SummaryWriter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Tiffin").
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, os.Getenv("GOOGLE_SPREADSHEET_ID"), os.Getenv("GOOGLE_SHEET_NAME"))
}

// New creates a client for spreadsheetID writing tabs named after baseName.
func New(ctx context.Context, spreadsheetID, baseName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	baseName = strings.TrimSpace(baseName)
	if baseName == "" {
		baseName = defaultBaseName
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		baseName:      baseName,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := serviceAccountCredentials()
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func serviceAccountCredentials() ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// WriteMonthSummary replaces the month's tab with summary.
func (c *Client) WriteMonthSummary(ctx context.Context, summary core.MonthSummary) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	tab := monthTabName(c.baseName, summary.Month)
	if err := c.ensureTab(ctx, tab); err != nil {
		return err
	}

	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quoteRange(tab, "A:Z"), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear sheet %s: %w", tab, err)
	}

	vr := &gsheet.ValueRange{Values: summaryRows(summary)}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, quoteRange(tab, "A1"), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write sheet %s: %w", tab, err)
	}

	slog.InfoContext(ctx, "Month summary written to Google Sheets",
		"sheet", tab,
		"orders", summary.TotalOrders,
		"members", len(summary.Members))
	return nil
}

func (c *Client) ensureTab(ctx context.Context, tab string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == tab {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: tab},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", tab, err)
	}
	slog.InfoContext(ctx, "Created month sheet", "sheet", tab)
	return nil
}

// monthTabName returns "<base> YYYY-MM".
func monthTabName(base string, month core.Month) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = defaultBaseName
	}
	return fmt.Sprintf("%s %s", base, month)
}

// quoteRange builds an A1 range for a tab whose name may contain spaces.
func quoteRange(tab, cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(tab, "'", "''"), cells)
}

// summaryRows lays out the totals block, the per-member table and the
// order list.
func summaryRows(s core.MonthSummary) [][]any {
	rows := [][]any{
		{"Month", s.Month.String()},
		{"Orders", s.TotalOrders},
		{"Total", core.FormatAmount(s.TotalAmount)},
		{"Average per order", core.FormatAmount(s.AverageAmount)},
		{},
		{"Member", "Quantity", "Amount", "Average per unit"},
	}
	names := make(map[string]string, len(s.Members))
	for _, m := range s.Members {
		names[m.MemberID] = m.Name
		rows = append(rows, []any{m.Name, m.TotalQuantity, core.FormatAmount(m.TotalAmount), core.FormatAmount(m.AveragePerOrder)})
	}

	rows = append(rows, []any{}, []any{"Date", "Members", "Total", "Per person", "Notes"})
	for _, o := range s.Orders {
		parts := make([]string, 0, len(o.Members))
		for _, mq := range o.Quantities() {
			name, ok := names[mq.MemberID]
			if !ok {
				name = core.UnknownMemberName
			}
			if mq.Quantity > 1 {
				name = fmt.Sprintf("%s x%d", name, mq.Quantity)
			}
			parts = append(parts, name)
		}
		rows = append(rows, []any{o.Date, strings.Join(parts, ", "), optionalAmount(o.TotalAmount), optionalAmount(o.PerPersonAmount), o.Notes})
	}
	return rows
}

func optionalAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return core.FormatAmount(*v)
}

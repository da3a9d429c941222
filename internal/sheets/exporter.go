// Package sheets mirrors ledger transactions into a Google Sheet, one row per
// transaction keyed by its id in column A.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"saldo/internal/core"
	"saldo/internal/log"
)

const DefaultSheetName = "Transactions"

// Header is written to row 1 of a sheet the exporter creates.
var Header = []any{"ID", "Date", "Kind", "Description", "Amount", "Category", "Recurrence", "Owner", "Updated"}

// Config selects the spreadsheet and the credentials of the service account.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Exporter writes transactions to one sheet of a spreadsheet.
type Exporter struct {
	api    spreadsheetAPI
	sheet  string
	logger *log.Logger

	mu      sync.Mutex
	sheetID *int64
}

// New creates an Exporter backed by the Sheets API.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newExporter(&googleAPI{svc: svc, spreadsheetID: cfg.SpreadsheetID}, cfg.SheetName, logger), nil
}

func newExporter(api spreadsheetAPI, sheet string, logger *log.Logger) *Exporter {
	if strings.TrimSpace(sheet) == "" {
		sheet = DefaultSheetName
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Exporter{api: api, sheet: sheet, logger: logger.WithComponent(log.ComponentSheets)}
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
	}
}

// Upsert writes t over its existing row, or appends a new row. It returns
// the A1 range written.
func (e *Exporter) Upsert(ctx context.Context, t core.Transaction, label core.CategoryLabel) (string, error) {
	if _, err := e.ensureSheet(ctx); err != nil {
		return "", err
	}
	idx, err := e.rowIndex(ctx, t.ID)
	if err != nil {
		return "", err
	}
	row := transactionRow(t, label)
	if idx >= 0 {
		rng := fmt.Sprintf("%s!A%d:I%d", quoteSheet(e.sheet), idx+1, idx+1)
		if err := e.api.Update(ctx, rng, row); err != nil {
			return "", err
		}
		return rng, nil
	}
	return e.api.Append(ctx, quoteSheet(e.sheet)+"!A:I", row)
}

// Delete removes the row of transaction id. A missing row is not an error.
func (e *Exporter) Delete(ctx context.Context, id string) error {
	sheetID, err := e.ensureSheet(ctx)
	if err != nil {
		return err
	}
	idx, err := e.rowIndex(ctx, id)
	if err != nil {
		return err
	}
	if idx < 0 {
		e.logger.DebugContext(ctx, "Row already absent", log.FieldTransactionID, id)
		return nil
	}
	return e.api.DeleteRow(ctx, sheetID, idx)
}

// rowIndex returns the zero-based row holding id, or -1.
func (e *Exporter) rowIndex(ctx context.Context, id string) (int, error) {
	values, err := e.api.Get(ctx, quoteSheet(e.sheet)+"!A:A")
	if err != nil {
		return -1, err
	}
	for i, row := range values {
		if i == 0 || len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i, nil
		}
	}
	return -1, nil
}

// ensureSheet creates the sheet with its header on first use and returns
// its numeric id.
func (e *Exporter) ensureSheet(ctx context.Context) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sheetID != nil {
		return *e.sheetID, nil
	}

	ids, err := e.api.SheetIDs(ctx)
	if err != nil {
		return 0, err
	}
	id, ok := ids[e.sheet]
	if !ok {
		if id, err = e.api.AddSheet(ctx, e.sheet); err != nil {
			return 0, err
		}
		if err := e.api.Update(ctx, quoteSheet(e.sheet)+"!A1:I1", Header); err != nil {
			return 0, fmt.Errorf("write header: %w", err)
		}
		e.logger.InfoContext(ctx, "Sheet created", "sheet", e.sheet)
	}
	e.sheetID = &id
	return id, nil
}

func transactionRow(t core.Transaction, label core.CategoryLabel) []any {
	return []any{
		t.ID,
		t.OccurredOn.String(),
		t.Kind.String(),
		t.Description,
		t.Amount.String(),
		label.Name,
		string(t.RecurrenceFrequency),
		t.OwnerID,
		t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// quoteSheet quotes a sheet title for use in an A1 range.
func quoteSheet(name string) string {
	for _, r := range name {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return "'" + strings.ReplaceAll(name, "'", "''") + "'"
		}
	}
	return name
}

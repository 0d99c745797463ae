// Package themes reads and appends the used-theme column of the spreadsheet.
package themes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"linkedin-autopilot-go/internal/config"
	"linkedin-autopilot-go/internal/logger"
	"linkedin-autopilot-go/internal/services"
)

// ValuesClient is the part of the Sheets API the history needs.
type ValuesClient interface {
	ReadRange(ctx context.Context, spreadsheetID, rangeStr string) ([][]interface{}, error)
	AppendRow(ctx context.Context, spreadsheetID, rangeStr string, values []interface{}) (int64, error)
}

// Opener creates the client on first use so a missing credential only
// surfaces when the sheet is actually touched.
type Opener func(ctx context.Context) (ValuesClient, error)

type History struct {
	spreadsheetID string
	rangeStr      string
	open          Opener
}

func NewHistory(cfg *config.Config) *History {
	return NewHistoryWithOpener(cfg.SheetsConfig, func(ctx context.Context) (ValuesClient, error) {
		return services.NewGoogleSheetsService(ctx, cfg)
	})
}

func NewHistoryWithOpener(cfg config.SheetsConfig, open Opener) *History {
	return &History{
		spreadsheetID: cfg.SpreadsheetID,
		rangeStr:      fmt.Sprintf("%s!%s:%s", cfg.SheetName, cfg.Column, cfg.Column),
		open:          open,
	}
}

func (h *History) client(ctx context.Context) (ValuesClient, error) {
	if h.spreadsheetID == "" {
		return nil, fmt.Errorf("%w: SPREADSHEET_ID not set", config.ErrMissingConfig)
	}
	if h.open == nil {
		return nil, errors.New("no sheets client configured")
	}
	return h.open(ctx)
}

// FetchRecent returns the last limit themes in sheet order, header row
// excluded. Every failure is logged and yields an empty slice.
func (h *History) FetchRecent(ctx context.Context, limit int) []string {
	op := logger.Get().StartOperation("fetch_recent_themes")
	op.WithSheets(h.spreadsheetID, 0)
	op.WithContext("limit", limit)

	if limit <= 0 {
		op.Complete("Non-positive limit, nothing to fetch")
		return []string{}
	}

	client, err := h.client(ctx)
	if err != nil {
		op.Fail("Error fetching themes from Google Sheets", err)
		return []string{}
	}

	rows, err := client.ReadRange(ctx, h.spreadsheetID, h.rangeStr)
	if err != nil {
		op.Fail("Error fetching themes from Google Sheets", err)
		return []string{}
	}

	themes := make([]string, 0, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		theme := strings.TrimSpace(fmt.Sprint(row[0]))
		if theme == "" {
			continue
		}
		themes = append(themes, theme)
	}

	if len(themes) > limit {
		themes = themes[len(themes)-limit:]
	}

	op.WithSheets(h.spreadsheetID, len(themes))
	op.Complete(fmt.Sprintf("Retrieved %d themes from Google Sheets", len(themes)))
	return themes
}

// Append adds theme as a new row. Failures are logged and reported as false.
func (h *History) Append(ctx context.Context, theme string) bool {
	op := logger.Get().StartOperation("append_theme")
	op.WithSheets(h.spreadsheetID, 1)
	op.WithPost(theme, 0)

	theme = strings.TrimSpace(theme)
	if theme == "" {
		op.Fail("Refusing to append an empty theme", errors.New("empty theme"))
		return false
	}

	client, err := h.client(ctx)
	if err != nil {
		op.Fail("Error adding theme to Google Sheets", err)
		return false
	}

	updated, err := client.AppendRow(ctx, h.spreadsheetID, h.rangeStr, []interface{}{theme})
	if err != nil {
		op.Fail("Error adding theme to Google Sheets", err)
		return false
	}

	op.WithContext("updated_cells", updated)
	op.Complete(fmt.Sprintf("Theme added to Google Sheets: %s", theme))
	return true
}

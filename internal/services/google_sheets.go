package services

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"linkedin-autopilot-go/internal/config"
)

type GoogleSheetsService struct {
	service *sheets.Service
}

func NewGoogleSheetsService(ctx context.Context, cfg *config.Config) (*GoogleSheetsService, error) {
	credentials, err := googleCredentials(ctx, cfg, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, err
	}

	service, err := sheets.NewService(ctx, option.WithCredentials(credentials))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &GoogleSheetsService{
		service: service,
	}, nil
}

// NewGoogleSheetsServiceWithOptions builds the service from explicit client
// options (endpoint, HTTP client), bypassing credential discovery.
func NewGoogleSheetsServiceWithOptions(ctx context.Context, opts ...option.ClientOption) (*GoogleSheetsService, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &GoogleSheetsService{service: service}, nil
}

func (s *GoogleSheetsService) ReadRange(ctx context.Context, spreadsheetID, rangeStr string) ([][]interface{}, error) {
	resp, err := s.service.Spreadsheets.Values.Get(spreadsheetID, rangeStr).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read range: %w", err)
	}

	return resp.Values, nil
}

// AppendRow appends one row and returns the number of cells the API reports as updated.
func (s *GoogleSheetsService) AppendRow(ctx context.Context, spreadsheetID, rangeStr string, values []interface{}) (int64, error) {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{values},
	}

	resp, err := s.service.Spreadsheets.Values.Append(spreadsheetID, rangeStr, valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("failed to append row: %w", err)
	}

	if resp.Updates == nil {
		return 0, nil
	}
	return resp.Updates.UpdatedCells, nil
}

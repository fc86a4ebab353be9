package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// valuesAPI is the slice of the Sheets API the store needs.
type valuesAPI interface {
	Get(ctx context.Context, rng string) ([][]any, error)
	Update(ctx context.Context, rng string, rows [][]any) error
	Append(ctx context.Context, rng string, rows [][]any) error
	SheetTitles(ctx context.Context) ([]string, error)
	AddSheet(ctx context.Context, title string) error
}

// serviceAPI adapts *sheets.Service for one spreadsheet.
type serviceAPI struct {
	svc *gsheets.Service
	id  string
}

func newServiceAPI(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*serviceAPI, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	opts = append([]option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}, opts...)
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &serviceAPI{svc: svc, id: spreadsheetID}, nil
}

func (a *serviceAPI) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(a.id, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (a *serviceAPI) Update(ctx context.Context, rng string, rows [][]any) error {
	_, err := a.svc.Spreadsheets.Values.Update(a.id, rng, &gsheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (a *serviceAPI) Append(ctx context.Context, rng string, rows [][]any) error {
	_, err := a.svc.Spreadsheets.Values.Append(a.id, rng, &gsheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (a *serviceAPI) SheetTitles(ctx context.Context) ([]string, error) {
	ss, err := a.svc.Spreadsheets.Get(a.id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}
	return titles, nil
}

func (a *serviceAPI) AddSheet(ctx context.Context, title string) error {
	req := &gsheets.BatchUpdateSpreadsheetRequest{Requests: []*gsheets.Request{{
		AddSheet: &gsheets.AddSheetRequest{Properties: &gsheets.SheetProperties{Title: title}},
	}}}
	_, err := a.svc.Spreadsheets.BatchUpdate(a.id, req).Context(ctx).Do()
	return err
}

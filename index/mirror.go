package index

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Mirror receives a copy of every row appended to the index.
type Mirror interface {
	Append(ctx context.Context, row Row) error
}

// SheetsMirror appends index rows to a Google Sheets range, e.g. Log!A1:G.
type SheetsMirror struct {
	google        *sheets.Service
	spreadsheetID string
	area          string
}

// SpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
func SpreadsheetID(url string) (string, error) {
	match := regexp.MustCompile(`^https://docs.google.com/spreadsheets/d/(.*?)(?:/.*)?$`).FindStringSubmatch(strings.TrimSpace(url))
	if len(match) < 2 || match[1] == "" {
		return "", fmt.Errorf("invalid spreadsheet URL '%v'", url)
	}

	return match[1], nil
}

func NewSheetsMirror(ctx context.Context, client *http.Client, url, area string, opts ...option.ClientOption) (*SheetsMirror, error) {
	spreadsheet, err := SpreadsheetID(url)
	if err != nil {
		return nil, err
	}

	if match := regexp.MustCompile(`(.+?)!.*`).FindStringSubmatch(strings.TrimSpace(area)); len(match) < 2 {
		return nil, fmt.Errorf("invalid range '%s' - expected something like 'Log!A1:G'", area)
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)

	google, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Google Sheets client (%w)", err)
	}

	return &SheetsMirror{
		google:        google,
		spreadsheetID: spreadsheet,
		area:          strings.TrimSpace(area),
	}, nil
}

func (m *SheetsMirror) Append(ctx context.Context, row Row) error {
	values := row.Values()
	if values[4] == nil {
		values[4] = ""
	}

	rq := sheets.ValueRange{
		Values: [][]interface{}{values},
	}

	if _, err := m.google.Spreadsheets.Values.Append(m.spreadsheetID, m.area, &rq).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("error appending to log sheet (%w)", err)
	}

	return nil
}

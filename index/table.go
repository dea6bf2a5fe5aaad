// Package index maintains the monthly spreadsheet of archived recordings, stored as an
// xlsx workbook alongside the recordings and optionally mirrored to a Google Sheet.
package index

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	errs "github.com/leo-automation/leo-ring/errors"
	"github.com/leo-automation/leo-ring/log"
	"github.com/leo-automation/leo-ring/storage"
)

const (
	ColumnID       = "ID"
	ColumnDate     = "Date"
	ColumnTime     = "Time"
	ColumnKind     = "Kind"
	ColumnAnswered = "Answered"
	ColumnPath     = "Path"
	ColumnURL      = "URL"
)

var Header = []string{ColumnID, ColumnDate, ColumnTime, ColumnKind, ColumnAnswered, ColumnPath, ColumnURL}

// Row is one archived event.
type Row struct {
	ID       string
	Date     string
	Time     string
	Kind     string
	Answered *bool
	Path     string
	URL      string
}

// Values returns the row cells in header order. An unknown 'answered' is an empty cell.
func (r Row) Values() []any {
	var answered any
	if r.Answered != nil {
		answered = *r.Answered
	}

	return []any{r.ID, r.Date, r.Time, r.Kind, answered, r.Path, r.URL}
}

// Table is an in-memory workbook. Rows are appended in the column order of the
// workbook header, which need not be the default order.
type Table struct {
	file  *excelize.File
	sheet string
	xref  map[int]int
	ids   map[string]bool
	rows  int
}

// New returns an empty table with just the header row.
func New() (*Table, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	return &Table{
		file:  f,
		sheet: sheet,
		xref:  identity(),
		ids:   map[string]bool{},
		rows:  1,
	}, nil
}

// Parse reads a workbook. The first row of the active sheet is the header and must
// include an ID column.
func Parse(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid workbook (%w)", err)
	}

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	t := Table{
		file:  f,
		sheet: sheet,
		xref:  identity(),
		ids:   map[string]bool{},
		rows:  len(rows),
	}

	if len(rows) == 0 {
		header := make([]any, len(Header))
		for i, h := range Header {
			header[i] = h
		}

		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return nil, err
		}

		t.rows = 1

		return &t, nil
	}

	// ... build column index
	index := map[string]int{}
	for i, v := range rows[0] {
		k := normalise(v)
		if _, ok := index[k]; ok && k != "" {
			return nil, fmt.Errorf("duplicate column name '%s'", v)
		}

		index[k] = i
	}

	if _, ok := index[normalise(ColumnID)]; !ok {
		return nil, fmt.Errorf("missing '%s' column", ColumnID)
	}

	next := len(rows[0])
	for i, h := range Header {
		if ix, ok := index[normalise(h)]; ok {
			t.xref[i] = ix
		} else {
			cell, err := excelize.CoordinatesToCellName(next+1, 1)
			if err != nil {
				return nil, err
			}

			if err := f.SetCellValue(sheet, cell, h); err != nil {
				return nil, err
			}

			t.xref[i] = next
			next++
		}
	}

	// ... event IDs
	id := t.xref[0]
	for _, row := range rows[1:] {
		if id < len(row) {
			if v := clean(row[id]); v != "" {
				t.ids[v] = true
			}
		}
	}

	return &t, nil
}

// OpenOrCreate downloads the index at path, or starts a new one if it does not exist.
func OpenOrCreate(ctx context.Context, store storage.Store, path string) (*Table, error) {
	var b bytes.Buffer

	if err := store.Download(ctx, path, &b); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			log.Infof("index: %v not found, creating new index", path)
			return New()
		}

		return nil, err
	}

	return Parse(&b)
}

// Contains returns true if the table has a row for the event ID.
func (t *Table) Contains(id string) bool {
	return t.ids[clean(id)]
}

// Len is the number of rows excluding the header.
func (t *Table) Len() int {
	return t.rows - 1
}

func (t *Table) Append(row Row) error {
	values := row.Values()

	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(t.xref[i]+1, t.rows+1)
		if err != nil {
			return err
		}

		if err := t.file.SetCellValue(t.sheet, cell, v); err != nil {
			return err
		}
	}

	t.rows++
	t.ids[clean(row.ID)] = true

	return nil
}

// Records returns the table as strings, header first.
func (t *Table) Records() ([][]string, error) {
	return t.file.GetRows(t.sheet)
}

func (t *Table) Write(w io.Writer) error {
	return t.file.Write(w)
}

// Persist writes the table to the store. The pipeline persists with storage.Replace
// since the table was loaded from the existing index.
func (t *Table) Persist(ctx context.Context, store storage.Store, path string, policy storage.ConflictPolicy) (*storage.Item, error) {
	var b bytes.Buffer

	if err := t.Write(&b); err != nil {
		return nil, err
	}

	return store.Upload(ctx, bytes.NewReader(b.Bytes()), int64(b.Len()), path, policy)
}

func (t *Table) Close() error {
	return t.file.Close()
}

func identity() map[int]int {
	xref := map[int]int{}
	for i := range Header {
		xref[i] = i
	}

	return xref
}

func clean(v string) string {
	return strings.TrimSpace(v)
}

func normalise(v string) string {
	return strings.ToLower(strings.ReplaceAll(v, " ", ""))
}

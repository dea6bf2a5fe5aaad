package index

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	errs "github.com/leo-automation/leo-ring/errors"
	"github.com/leo-automation/leo-ring/storage"
)

// memstore is an in-memory storage.Store.
type memstore struct {
	files     map[string][]byte
	downloads int
	uploads   []storage.ConflictPolicy
	fail      error
}

func (m *memstore) Resolve(ctx context.Context, p string) (storage.Location, error) {
	return storage.Location{Rest: p}, nil
}

func (m *memstore) Info(ctx context.Context, p string) (*storage.Item, error) {
	if b, ok := m.files[p]; ok {
		return &storage.Item{Name: p, Size: int64(len(b))}, nil
	}

	return nil, storage.NotFound(p)
}

func (m *memstore) Download(ctx context.Context, p string, w io.Writer) error {
	m.downloads++

	if m.fail != nil {
		return m.fail
	}

	b, ok := m.files[p]
	if !ok {
		return storage.NotFound(p)
	}

	_, err := w.Write(b)

	return err
}

func (m *memstore) Upload(ctx context.Context, src io.Reader, size int64, dest string, policy storage.ConflictPolicy) (*storage.Item, error) {
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}

	m.uploads = append(m.uploads, policy)

	if _, ok := m.files[dest]; ok {
		switch policy {
		case storage.Skip:
			return &storage.Item{Name: dest, Size: int64(len(m.files[dest]))}, nil
		case storage.Fail:
			return nil, storage.AlreadyExists(dest)
		}
	}

	m.files[dest] = b

	return &storage.Item{Name: dest, Size: size}, nil
}

func answered(b bool) *bool {
	return &b
}

func TestNewTable(t *testing.T) {
	table, err := New()
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	records, err := table.Records()
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	if !reflect.DeepEqual(records, [][]string{Header}) {
		t.Errorf("Incorrect new table\n   expected: %v\n   got:      %v", [][]string{Header}, records)
	}

	if table.Len() != 0 {
		t.Errorf("Expected empty table, got %v rows", table.Len())
	}
}

func TestAppendAndContains(t *testing.T) {
	table, _ := New()

	if table.Contains("123") {
		t.Errorf("Empty table should not contain '123'")
	}

	row := Row{ID: "123", Date: "20240501", Time: "10:00:00", Kind: "motion", Path: "/drive/root:/Ring/2024/x.mp4", URL: "https://example.com/x"}
	if err := table.Append(row); err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	if !table.Contains("123") {
		t.Errorf("Expected table to contain '123'")
	}

	if table.Contains("1234") || table.Contains("12") {
		t.Errorf("Contains should match whole event IDs only")
	}

	if table.Len() != 1 {
		t.Errorf("Incorrect row count - expected:%v, got:%v", 1, table.Len())
	}
}

func TestRoundTrip(t *testing.T) {
	table, _ := New()

	table.Append(Row{ID: "7364531298745612345", Date: "20240501", Time: "10:00:00", Kind: "motion", Path: "/p/1.mp4", URL: "u1"})
	table.Append(Row{ID: "7364531298745612346", Date: "20240501", Time: "11:30:15", Kind: "ding", Answered: answered(true), Path: "/p/2.mp4", URL: "u2"})

	var b bytes.Buffer
	if err := table.Write(&b); err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	parsed, err := Parse(&b)
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	expected := [][]string{
		Header,
		{"7364531298745612345", "20240501", "10:00:00", "motion", "", "/p/1.mp4", "u1"},
		{"7364531298745612346", "20240501", "11:30:15", "ding", "TRUE", "/p/2.mp4", "u2"},
	}

	records, _ := parsed.Records()
	if !reflect.DeepEqual(records, expected) {
		t.Errorf("Incorrect records\n   expected: %v\n   got:      %v", expected, records)
	}

	if !parsed.Contains("7364531298745612346") || parsed.Len() != 2 {
		t.Errorf("Incorrect parsed table - contains:%v, rows:%v", parsed.Contains("7364531298745612346"), parsed.Len())
	}
}

func TestParseReorderedColumns(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []any{"url", "event id", "Date"}
	f.SetSheetRow(sheet, "A1", &header)

	row := []any{"u0", "99", "20240430"}
	f.SetSheetRow(sheet, "A2", &row)

	var b bytes.Buffer
	f.Write(&b)

	// 'event id' does not match 'ID' so the workbook is rejected
	if _, err := Parse(bytes.NewReader(b.Bytes())); err == nil {
		t.Fatalf("Expected error for workbook without an ID column")
	}

	f.SetCellValue(sheet, "B1", "id")
	b.Reset()
	f.Write(&b)

	table, err := Parse(&b)
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	if !table.Contains("99") {
		t.Errorf("Expected existing ID '99'")
	}

	if err := table.Append(Row{ID: "100", Date: "20240501", Time: "10:00:00", Kind: "motion", Path: "/p", URL: "u1"}); err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	records, _ := table.Records()
	expected := [][]string{
		{"url", "id", "Date", "Time", "Kind", "Answered", "Path"},
		{"u0", "99", "20240430"},
		{"u1", "100", "20240501", "10:00:00", "motion", "", "/p"},
	}

	if !reflect.DeepEqual(records, expected) {
		t.Errorf("Incorrect records\n   expected: %v\n   got:      %v", expected, records)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse(strings.NewReader("not a workbook")); err == nil {
		t.Errorf("Expected error parsing invalid workbook")
	}
}

func TestOpenOrCreateNotFound(t *testing.T) {
	store := memstore{files: map[string][]byte{}}

	table, err := OpenOrCreate(context.Background(), &store, "/Ring/Sheets/202405.xlsx")
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	if table.Len() != 0 {
		t.Errorf("Expected fresh table, got %v rows", table.Len())
	}
}

func TestOpenOrCreateError(t *testing.T) {
	store := memstore{files: map[string][]byte{}, fail: errs.New(errs.KindAuthentication, "expired")}

	if _, err := OpenOrCreate(context.Background(), &store, "/Ring/Sheets/202405.xlsx"); !errors.Is(err, errs.ErrAuthentication) {
		t.Errorf("Expected authentication error, got %v", err)
	}
}

func TestPersist(t *testing.T) {
	store := memstore{files: map[string][]byte{}}

	table, _ := OpenOrCreate(context.Background(), &store, "/Ring/Sheets/202405.xlsx")
	table.Append(Row{ID: "123", Date: "20240501", Time: "10:00:00", Kind: "motion"})

	if _, err := table.Persist(context.Background(), &store, "/Ring/Sheets/202405.xlsx", storage.Replace); err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	if !reflect.DeepEqual(store.uploads, []storage.ConflictPolicy{storage.Replace}) {
		t.Errorf("Expected index to be persisted with 'replace', got %v", store.uploads)
	}

	reopened, err := OpenOrCreate(context.Background(), &store, "/Ring/Sheets/202405.xlsx")
	if err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	if !reopened.Contains("123") {
		t.Errorf("Expected persisted index to contain '123'")
	}
}

func TestPersistWithConflictPolicy(t *testing.T) {
	store := memstore{files: map[string][]byte{"/Ring/Sheets/202405.xlsx": []byte("existing")}}

	table, _ := New()
	table.Append(Row{ID: "123", Date: "20240501", Time: "10:00:00", Kind: "motion"})

	if _, err := table.Persist(context.Background(), &store, "/Ring/Sheets/202405.xlsx", storage.Fail); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Errorf("Expected 'already exists' error, got %v", err)
	}

	if _, err := table.Persist(context.Background(), &store, "/Ring/Sheets/202405.xlsx", storage.Skip); err != nil {
		t.Errorf("Unexpected error (%v)", err)
	}

	if string(store.files["/Ring/Sheets/202405.xlsx"]) != "existing" {
		t.Errorf("Expected existing index to be left unchanged")
	}

	expected := []storage.ConflictPolicy{storage.Fail, storage.Skip}
	if !reflect.DeepEqual(store.uploads, expected) {
		t.Errorf("Incorrect upload policies - expected:%v, got:%v", expected, store.uploads)
	}
}

func TestMakeTSV(t *testing.T) {
	table, _ := New()
	table.Append(Row{ID: "42", Date: "20240501", Time: "10:00:00", Kind: "motion", Answered: answered(false), Path: "/Ring/2024/x.mp4", URL: "https://example.com/x"})

	var b bytes.Buffer
	if err := MakeTSV(&b, table); err != nil {
		t.Fatalf("Unexpected error (%v)", err)
	}

	expected := "ID\tDate\tTime\tKind\tAnswered\tPath\tURL\n" +
		"42\t20240501\t10:00:00\tmotion\tFALSE\t/Ring/2024/x.mp4\thttps://example.com/x\n"

	if b.String() != expected {
		t.Errorf("Incorrect TSV\n   expected: %q\n   got:      %q", expected, b.String())
	}
}

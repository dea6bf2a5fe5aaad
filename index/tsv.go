package index

import (
	"encoding/csv"
	"fmt"
	"io"
)

// MakeTSV writes the table as tab separated values, header first. Rows without an
// event ID are omitted.
func MakeTSV(f io.Writer, t *Table) error {
	rows, err := t.Records()
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return fmt.Errorf("empty index")
	}

	// ... header
	header := make([]string, len(rows[0]))
	for i, v := range rows[0] {
		header[i] = clean(v)
	}

	// ... records
	id := t.xref[0]
	records := [][]string{}
	for _, row := range rows[1:] {
		if id >= len(row) || clean(row[id]) == "" {
			continue
		}

		record := make([]string, len(header))
		for i := range record {
			if i < len(row) {
				record[i] = clean(row[i])
			}
		}

		records = append(records, record)
	}

	// ... write to file
	w := csv.NewWriter(f)
	w.Comma = '\t'

	if err := w.Write(header); err != nil {
		return err
	}

	if err := w.WriteAll(records); err != nil {
		return err
	}

	return w.Error()
}

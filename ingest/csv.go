package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// FromCSV decodes a header row followed by one record row. Columns are matched by name
// (title, author, year), in any order and case; further rows are ignored.
func FromCSV(data []byte) (BookRecord, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return BookRecord{}, fmt.Errorf("%w: reading header: %w", ErrParse, err)
	}

	row, err := reader.Read()
	if err != nil {
		return BookRecord{}, fmt.Errorf("%w: reading record: %w", ErrParse, err)
	}

	fields := make(map[string]string, len(header))
	for i, column := range header {
		fields[strings.ToLower(strings.TrimSpace(column))] = row[i]
	}

	return normalize(fields["title"], fields["author"], fields["year"])
}

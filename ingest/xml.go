package ingest

import (
	"encoding/xml"
	"fmt"
)

type xmlRecord struct {
	XMLName xml.Name `xml:"book"`
	Title   string   `xml:"title"`
	Author  string   `xml:"author"`
	Year    string   `xml:"year"`
}

// FromXML decodes a <book> element with <title>, <author> and <year> children.
func FromXML(data []byte) (BookRecord, error) {
	var raw xmlRecord
	if err := xml.Unmarshal(data, &raw); err != nil {
		return BookRecord{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	return normalize(raw.Title, raw.Author, raw.Year)
}

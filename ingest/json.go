package ingest

import (
	"fmt"
	"math"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

type jsonRecord struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   any    `json:"year"`
}

// FromJSON decodes an object such as {"title": "Dune", "author": "Frank Herbert", "year": 1965}.
// The year may be a number or a numeric string.
func FromJSON(data []byte) (BookRecord, error) {
	var raw jsonRecord
	if err := jsoniter.ConfigFastest.Unmarshal(data, &raw); err != nil {
		return BookRecord{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	var year string
	switch y := raw.Year.(type) {
	case float64:
		if y != math.Trunc(y) {
			return BookRecord{}, fmt.Errorf("%w: year %v is not an integer", ErrParse, y)
		}
		year = strconv.FormatFloat(y, 'f', 0, 64)
	case string:
		year = y
	case nil:
		return BookRecord{}, fmt.Errorf("%w: missing year", ErrParse)
	default:
		return BookRecord{}, fmt.Errorf("%w: year has type %T", ErrParse, y)
	}

	return normalize(raw.Title, raw.Author, year)
}

// Package ingest decodes book records delivered by external systems as JSON, CSV or XML.
package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrParse is returned for input that is malformed or lacks a required field.
	ErrParse = errors.New("cannot parse book record")

	// ErrUnsupportedFormat is returned by ParseFormat and Decode for an unknown format.
	ErrUnsupportedFormat = errors.New("unsupported book record format")
)

// BookRecord is a book description in normalized form.
type BookRecord struct {
	Title  string
	Author string
	Year   int
}

// Format identifies an input encoding.
type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
	XML  Format = "xml"
)

// ParseFormat maps "json", "csv" or "xml", in any case and with an optional leading dot, to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))); f {
	case JSON, CSV, XML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Decode decodes data in the given format.
func Decode(format Format, data []byte) (BookRecord, error) {
	switch format {
	case JSON:
		return FromJSON(data)
	case CSV:
		return FromCSV(data)
	case XML:
		return FromXML(data)
	default:
		return BookRecord{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func normalize(title, author, year string) (BookRecord, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return BookRecord{}, fmt.Errorf("%w: missing title", ErrParse)
	}

	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return BookRecord{}, fmt.Errorf("%w: year %q is not an integer", ErrParse, year)
	}

	return BookRecord{Title: title, Author: strings.TrimSpace(author), Year: y}, nil
}

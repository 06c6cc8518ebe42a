// Package export renders tabular datasets as downloadable files.
package export

import (
	"fmt"
	"strings"
)

// Format names a supported file type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat normalises raw and defaults to CSV when blank.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Extension returns the file suffix without the dot.
func (f Format) Extension() string {
	return string(f)
}

// Dataset defines tabular export content. Rows are keyed by header.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("dataset requires at least one header")
	}
	return nil
}

func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		out[i] = row[header]
	}
	return out
}

// Renderer turns a dataset into bytes of one format.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
}

// Render dispatches to the renderer registered for format.
func Render(format Format, data Dataset) ([]byte, error) {
	switch format {
	case FormatCSV:
		return NewCSVExporter().Render(data)
	case FormatPDF:
		return NewPDFExporter().Render(data)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

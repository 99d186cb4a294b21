// Package ingest reads URL lists for batch extraction from CSV and XLSX
// files. A "url" column is located by header when one exists; otherwise
// the first column is taken.
package ingest

import (
	"encoding/csv"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// ReadURLs loads URLs from a file, dispatching on extension. Rows that
// do not parse as absolute http(s) URLs are skipped with a warning.
func ReadURLs(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(f)
	case ".xlsx":
		return ReadXLSX(path)
	case ".txt", "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read %s", path)
		}
		return filterURLs(strings.Split(string(data), "\n")), nil
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadCSV extracts URLs from CSV content.
func ReadCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: parse csv")
	}
	return urlsFromRows(records), nil
}

// ReadXLSX extracts URLs from the first sheet of an XLSX file.
func ReadXLSX(path string) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("ingest: xlsx has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return urlsFromRows(rows), nil
}

// urlsFromRows finds the url column from the header row when present,
// then collects valid URLs from that column.
func urlsFromRows(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}

	col := 0
	start := 0
	for j, h := range rows[0] {
		name := strings.ToLower(strings.TrimSpace(h))
		if name == "url" || name == "link" || name == "product_url" {
			col = j
			start = 1
			break
		}
	}

	var raw []string
	for _, row := range rows[start:] {
		if col < len(row) {
			raw = append(raw, row[col])
		}
	}
	return filterURLs(raw)
}

func filterURLs(candidates []string) []string {
	var urls []string
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		u, err := url.Parse(c)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			zap.L().Warn("ingest: skipping invalid url", zap.String("value", c))
			continue
		}
		urls = append(urls, c)
	}
	return urls
}

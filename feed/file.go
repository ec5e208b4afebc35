package feed

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// File reads headlines from a local file on every Fetch. Supported formats,
// chosen by extension:
//
//	.txt   one headline per line, optionally "<title>\t<link>"
//	.xlsx  first sheet, column A title, column B link
//
// A first row whose title cell reads "title" or "headline" is a header and
// is skipped. Blank lines and "#" comments in text files are ignored.
type File struct {
	Path string
}

// NewFile returns a File source for path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Fetch implements Source. The query is ignored.
func (f *File) Fetch(ctx context.Context, _ string, limit int) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		items []Item
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(f.Path)); ext {
	case ".xlsx":
		items, err = readXLSX(f.Path)
	case ".txt", "":
		items, err = readText(f.Path)
	default:
		return nil, fmt.Errorf("no headline reader for format: %s", strings.TrimPrefix(ext, "."))
	}
	if err != nil {
		return nil, err
	}
	return Static(items).Fetch(ctx, "", limit)
}

func readText(path string) ([]Item, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading headline file: %w", err)
	}
	defer fh.Close()

	var items []Item
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		title, link, _ := strings.Cut(line, "\t")
		items = appendRow(items, title, link)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading headline file: %w", err)
	}
	return items, nil
}

func readXLSX(path string) ([]Item, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("reading XLSX rows: %w", err)
	}

	var items []Item
	for _, row := range rows {
		var title, link string
		if len(row) > 0 {
			title = row[0]
		}
		if len(row) > 1 {
			link = row[1]
		}
		items = appendRow(items, title, link)
	}
	return items, nil
}

// appendRow adds a row unless it is blank or a leading header.
func appendRow(items []Item, title, link string) []Item {
	title = strings.TrimSpace(title)
	if title == "" {
		return items
	}
	if len(items) == 0 {
		switch strings.ToLower(title) {
		case "title", "headline":
			return items
		}
	}
	return append(items, Item{Title: title, Link: strings.TrimSpace(link)})
}

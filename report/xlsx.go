package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/brunobiangulo/georisk/store"
)

// Sheet names of the workbook export.
const (
	SheetArticles = "Articles"
	SheetHype     = "Hype"
)

var (
	articleHeader = []any{"ID", "Date", "Timestamp", "Country", "Mineral", "Risk", "Hype", "Title", "Link", "History"}
	hypeHeader    = []any{"Date", "Mineral", "Articles", "Max Hype", "Avg Risk"}
)

// WriteXLSX writes a workbook with one row per Article and one row per
// mineral-day hype summary.
func WriteXLSX(w io.Writer, articles []store.Article, hype []store.MineralHype) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetArticles); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetHype); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	rows := make([][]any, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, []any{
			a.ID, a.Date, a.Timestamp.Format(time.RFC3339), a.Country, a.Mineral,
			a.Risk, a.Hype, a.Title, a.Link, a.History,
		})
	}
	if err := writeSheet(f, SheetArticles, articleHeader, rows); err != nil {
		return err
	}

	rows = rows[:0]
	for _, h := range hype {
		rows = append(rows, []any{h.Date, h.Mineral, h.Articles, h.MaxHype, h.AvgRisk})
	}
	if err := writeSheet(f, SheetHype, hypeHeader, rows); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(header) > 0 {
		last, _ := excelize.ColumnNumberToName(len(header))
		if err := f.AutoFilter(sheet, "A1:"+last+"1", nil); err != nil {
			return fmt.Errorf("filtering %s: %w", sheet, err)
		}
	}
	return nil
}

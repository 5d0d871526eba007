package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/octobees/directory-leads/internal/entity"
)

const (
	columnWidth   = 28
	maxSheetName  = 31
	invalidSheet  = `:\/?*[]`
	fallbackSheet = "Sheet"
)

// Sheet is one named table in a workbook.
type Sheet struct {
	Name  string
	Table *entity.Table
}

// WriteXLSX renders each sheet into a workbook and streams it to w.
func WriteXLSX(w io.Writer, sheets []Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	used := make(map[string]struct{}, len(sheets))
	for i, sheet := range sheets {
		name := uniqueSheetName(sheetName(sheet.Name), used)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, sheet.Table); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, table *entity.Table) error {
	if table == nil {
		return nil
	}
	for i, header := range table.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("set header %s: %w", cell, err)
		}
	}
	for r, row := range table.Rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellStr(sheet, cell, value); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}
	if len(table.Columns) > 0 {
		last, _ := excelize.ColumnNumberToName(len(table.Columns))
		_ = f.SetColWidth(sheet, "A", last, columnWidth)
	}
	return nil
}

func sheetName(raw string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidSheet, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(raw))
	name = strings.Trim(name, "'")
	if name == "" {
		name = fallbackSheet
	}
	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	return name
}

func uniqueSheetName(name string, used map[string]struct{}) string {
	candidate := name
	for n := 2; ; n++ {
		key := strings.ToLower(candidate)
		if _, taken := used[key]; !taken {
			used[key] = struct{}{}
			return candidate
		}
		suffix := fmt.Sprintf(" (%d)", n)
		base := []rune(name)
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		candidate = string(base) + suffix
	}
}

package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// maxXlsRows bounds the rows read from a legacy workbook.
const maxXlsRows = 1 << 20

// extractXlsx returns every sheet's rows, non-empty cells joined by spaces.
func extractXlsx(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		lines = appendRows(lines, rows)
	}
	return strings.Join(lines, "\n"), nil
}

// extractXls reads a legacy BIFF workbook with the same layout as extractXlsx.
func extractXls(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	return strings.Join(appendRows(nil, wb.ReadAllCells(maxXlsRows)), "\n"), nil
}

// appendRows appends one line per row that has at least one non-empty cell.
func appendRows(lines []string, rows [][]string) []string {
	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			if cell = strings.TrimSpace(cell); cell != "" {
				cells = append(cells, cell)
			}
		}
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, " "))
		}
	}
	return lines
}

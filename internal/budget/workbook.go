package budget

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"obra/internal"
)

type Sheet struct {
	Name string
	Rows [][]string
}

// ReadWorkbook returns raw cell values per sheet. Rows are padded to a common
// width, at least minWidth, since excelize drops trailing empty cells.
// An empty names list reads every sheet in workbook order.
func ReadWorkbook(r io.Reader, names []string, minWidth int) ([]Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	available := f.GetSheetList()
	if len(names) == 0 {
		names = available
	} else {
		known := map[string]struct{}{}
		for _, s := range available {
			known[s] = struct{}{}
		}
		for _, n := range names {
			if _, ok := known[n]; !ok {
				return nil, fmt.Errorf("sheet %q not found (have %v)", n, available)
			}
		}
	}

	out := make([]Sheet, 0, len(names))
	for _, name := range names {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		out = append(out, Sheet{Name: name, Rows: padRows(rows, minWidth)})
	}
	return out, nil
}

func padRows(rows [][]string, minWidth int) [][]string {
	width := minWidth
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) == width {
			out[i] = row
			continue
		}
		padded := make([]string, width)
		copy(padded, row)
		out[i] = padded
	}
	return out
}

type ImportResult struct {
	Lines    []internal.BudgetLine
	Mappings []internal.ControlCodeMapping
	Stats    Stats
}

// ImportWorkbook reads the profile's sheets and normalizes them into budget lines
// together with the project's control-code mapping set.
func ImportWorkbook(r io.Reader, profile Profile) (ImportResult, error) {
	params, err := profile.Params()
	if err != nil {
		return ImportResult{}, err
	}
	sheets, err := ReadWorkbook(r, profile.Sheets, params.Columns.Width())
	if err != nil {
		return ImportResult{}, err
	}
	lines, stats, err := NormalizeSheets(sheets, params)
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Lines: lines, Mappings: profile.Mappings(), Stats: stats}, nil
}

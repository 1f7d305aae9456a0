package dataset

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(path string) bool { return hasExt(path, ".xlsx", ".xls") }

func (xlsxLoader) Load(path string, opt Options) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if hasExt(path, ".xls") {
			return nil, fmt.Errorf("open workbook: legacy .xls workbooks are not supported, re-save as .xlsx: %w", err)
		}
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := opt.SheetName
	if sheet == "" {
		sheets := f.GetSheetList()
		idx := opt.SheetIndex
		if idx <= 0 {
			idx = 1
		}
		if idx > len(sheets) {
			return nil, fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", idx, len(sheets))
		}
		sheet = sheets[idx-1]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return FromRecords(filepath.Base(path), rows)
}

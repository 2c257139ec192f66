package export

import (
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/spherical/disclosure-extractor/internal/domain"
)

const sheetName = "Metrics"

// XLSXWriter writes records to a single-sheet workbook. A workbook cannot be
// appended to, so every Write produces the whole file: it is meant to be
// called once.
type XLSXWriter struct {
	w io.Writer
}

// NewXLSXWriter creates an XLSXWriter.
func NewXLSXWriter(w io.Writer) *XLSXWriter {
	return &XLSXWriter{w: w}
}

// Write renders records into a workbook and writes it out.
func (x *XLSXWriter) Write(records []domain.ExtractedRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return domain.IOError("create sheet", err)
	}

	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	for r, rec := range records {
		values := row(rec)
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if c == 0 {
				_ = f.SetCellValue(sheetName, cell, rec.Index)
				continue
			}
			_ = f.SetCellValue(sheetName, cell, v)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 8)  // index
	_ = f.SetColWidth(sheetName, "B", "B", 40) // title
	_ = f.SetColWidth(sheetName, "C", "G", 16) // value..category
	_ = f.SetColWidth(sheetName, "H", "H", 80) // reference

	if _, err := f.WriteTo(x.w); err != nil {
		return domain.IOError("write xlsx", err)
	}
	return nil
}

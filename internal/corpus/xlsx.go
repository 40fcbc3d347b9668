package corpus

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Corpus"

// XLSXWriter renders a corpus into a single-sheet workbook with a styled,
// frozen and filterable header row.
type XLSXWriter struct {
	file *excelize.File
	rows int
}

// NewXLSXWriter creates a workbook and writes the header row.
func NewXLSXWriter() (*XLSXWriter, error) {
	file := excelize.NewFile()
	if err := file.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, col := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := file.SetCellValue(sheetName, cell, col); err != nil {
			return nil, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
	if err := file.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return nil, err
	}

	if err := file.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(Columns))
	if err := file.SetColWidth(sheetName, "A", lastCol, 18); err != nil {
		return nil, err
	}

	return &XLSXWriter{file: file}, nil
}

// Write appends samples below the rows already written.
func (x *XLSXWriter) Write(samples []LabeledSample) error {
	for _, s := range samples {
		x.rows++
		cell, _ := excelize.CoordinatesToCellName(1, x.rows+1)
		values := []interface{}{
			s.Nitrogen, s.Phosphorus, s.Potassium, s.PH, s.Moisture, s.Temperature,
			string(s.Crop), string(s.FertilizerType), s.Quantity, s.HealthScore,
		}
		if err := x.file.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", x.rows, err)
		}
	}
	return nil
}

// Rows returns the number of data rows written.
func (x *XLSXWriter) Rows() int {
	return x.rows
}

func (x *XLSXWriter) applyFilter() error {
	lastCol, _ := excelize.ColumnNumberToName(len(Columns))
	if err := x.file.AutoFilter(sheetName, fmt.Sprintf("A1:%s%d", lastCol, x.rows+1), nil); err != nil {
		return fmt.Errorf("failed to apply auto filter: %w", err)
	}
	return nil
}

// WriteTo applies the auto filter and serializes the workbook.
func (x *XLSXWriter) WriteTo(w io.Writer) (int64, error) {
	if err := x.applyFilter(); err != nil {
		return 0, err
	}
	return x.file.WriteTo(w)
}

// SaveAs writes the workbook to path.
func (x *XLSXWriter) SaveAs(path string) error {
	if err := x.applyFilter(); err != nil {
		return err
	}
	return x.file.SaveAs(path)
}

// Close releases workbook resources.
func (x *XLSXWriter) Close() error {
	return x.file.Close()
}

package reporting

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// RenderPDF renders report as a one-table PDF.
func RenderPDF(r *Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, fmt.Sprintf("Index Statement %s", r.Month))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", r.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Timezone: %s", r.Location))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Series: %d (%d original, %d derived)",
		r.Series.Total, r.Series.Original, r.Series.Derived))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Source", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Name", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Origin", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Value", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, v := range r.Values {
		pdf.CellFormat(40, 6, v.Source, "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, v.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, v.Origin.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.4f", v.Value), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if !r.Complete() {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Missing")
		pdf.Ln(5)
		pdf.SetFont("Arial", "", 10)
		for _, m := range r.Missing {
			pdf.Cell(0, 6, m)
			pdf.Ln(5)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderXLSX renders report as a workbook with a summary and a values sheet.
func RenderXLSX(r *Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summary := "summary"
	values := "values"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(values); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summary, "A1", "Index Statement")
	_ = f.SetCellValue(summary, "A3", "Month")
	_ = f.SetCellValue(summary, "B3", r.Month)
	_ = f.SetCellValue(summary, "A4", "Generated")
	_ = f.SetCellValue(summary, "B4", r.GeneratedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summary, "A5", "Timezone")
	_ = f.SetCellValue(summary, "B5", r.Location)
	_ = f.SetCellValue(summary, "A6", "Series")
	_ = f.SetCellValue(summary, "B6", r.Series.Total)
	_ = f.SetCellValue(summary, "A7", "Original")
	_ = f.SetCellValue(summary, "B7", r.Series.Original)
	_ = f.SetCellValue(summary, "A8", "Derived")
	_ = f.SetCellValue(summary, "B8", r.Series.Derived)
	_ = f.SetCellValue(summary, "A9", "Missing")
	_ = f.SetCellValue(summary, "B9", len(r.Missing))

	_ = f.SetCellValue(values, "A1", "Source")
	_ = f.SetCellValue(values, "B1", "Name")
	_ = f.SetCellValue(values, "C1", "Origin")
	_ = f.SetCellValue(values, "D1", "Date")
	_ = f.SetCellValue(values, "E1", "Value")
	for i, v := range r.Values {
		row := i + 2
		_ = f.SetCellValue(values, fmt.Sprintf("A%d", row), v.Source)
		_ = f.SetCellValue(values, fmt.Sprintf("B%d", row), v.Name)
		_ = f.SetCellValue(values, fmt.Sprintf("C%d", row), v.Origin.String())
		_ = f.SetCellValue(values, fmt.Sprintf("D%d", row), v.Date.Format("2006-01-02"))
		_ = f.SetCellValue(values, fmt.Sprintf("E%d", row), v.Value)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

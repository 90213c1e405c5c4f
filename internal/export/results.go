// Package export renders exam results as spreadsheets.
package export

import (
	"fmt"
	"time"

	"github.com/stemsi/exam-portal/internal/model"
	"github.com/xuri/excelize/v2"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Headers names the sheet and its six columns:
// student, exam, score, max score, date, violations.
type Headers struct {
	Sheet   string
	Columns []string
}

// ResultsWorkbook writes one row per result and returns the .xlsx bytes.
func ResultsWorkbook(h Headers, rows []model.ResultSummary) ([]byte, error) {
	if h.Sheet == "" {
		h.Sheet = "Results"
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", h.Sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	for i, header := range h.Columns {
		cell := fmt.Sprintf("%c1", 'A'+i)
		if err := f.SetCellValue(h.Sheet, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for rowIndex, r := range rows {
		values := []interface{}{
			r.StudentName,
			r.ExamTitle,
			r.TotalScore,
			r.MaxScore,
			r.SubmittedAt.UTC().Format(time.DateTime),
			r.ViolationCount,
		}
		for colIndex, v := range values {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			if err := f.SetCellValue(h.Sheet, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", rowIndex+2, err)
			}
		}
	}

	_ = f.SetColWidth(h.Sheet, "A", "B", 28)
	_ = f.SetColWidth(h.Sheet, "E", "E", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName is the download name for an exam's export.
func FileName(examID string, at time.Time) string {
	return fmt.Sprintf("results-%s-%s.xlsx", examID, at.UTC().Format("20060102-150405"))
}

// Package importer converts QCM spreadsheets to and from content.Qcm.
//
// The first sheet holds one question per row under a header row:
//
//	question | option_a | option_b | ... | correct
//
// The correct column takes a letter (A for the first option) or a 1-based
// number. Rows with problems are still imported and reported; the content
// validator repairs them.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Ethan041028/audacieuses-content/internal/content"
)

var (
	// ErrMissingColumn is returned when the header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
	// ErrNoRows is returned for a sheet without any question row.
	ErrNoRows = errors.New("no data rows found")
)

const (
	colQuestion     = "question"
	colCorrect      = "correct"
	colOptionPrefix = "option"
)

// RowWarning describes a problem found on one spreadsheet row. Row is the
// 1-based row number as shown by spreadsheet software.
type RowWarning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Report summarises an import.
type Report struct {
	TotalRows    int          `json:"total_rows"`
	ImportedRows int          `json:"imported_rows"`
	SkippedRows  int          `json:"skipped_rows"`
	Warnings     []RowWarning `json:"warnings"`
	Repairs      []string     `json:"repairs"`
}

func (r *Report) warn(row int, format string, args ...any) {
	r.Warnings = append(r.Warnings, RowWarning{Row: row, Message: fmt.Sprintf(format, args...)})
}

// ImportQcm reads a QCM from the first sheet of an xlsx workbook. Blank rows
// are skipped. The returned Qcm is already validated.
func ImportQcm(r io.Reader) (content.Qcm, Report, error) {
	report := Report{Warnings: []RowWarning{}, Repairs: []string{}}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return content.Qcm{}, report, fmt.Errorf("open excel: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return content.Qcm{}, report, errors.New("excel sheet is empty")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return content.Qcm{}, report, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return content.Qcm{}, report, fmt.Errorf("%w: %s", ErrMissingColumn, colQuestion)
	}

	questionCol, correctCol := -1, -1
	var optionCols []int
	for i, h := range rows[0] {
		switch name := strings.ToLower(strings.TrimSpace(h)); {
		case name == colQuestion:
			questionCol = i
		case name == colCorrect:
			correctCol = i
		case strings.HasPrefix(name, colOptionPrefix):
			optionCols = append(optionCols, i)
		}
	}
	if questionCol < 0 {
		return content.Qcm{}, report, fmt.Errorf("%w: %s", ErrMissingColumn, colQuestion)
	}
	if len(optionCols) == 0 {
		return content.Qcm{}, report, fmt.Errorf("%w: %s_*", ErrMissingColumn, colOptionPrefix)
	}

	var questions []content.Question
	for i := 1; i < len(rows); i++ {
		rowNo := i + 1
		row := rows[i]
		report.TotalRows++

		get := func(idx int) string {
			if idx < 0 || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		if isBlankRow(row) {
			report.SkippedRows++
			continue
		}

		q := content.Question{Text: get(questionCol), Options: []string{}}
		if q.Text == "" {
			report.warn(rowNo, "question text is empty")
		}
		for _, col := range optionCols {
			if opt := get(col); opt != "" {
				q.Options = append(q.Options, opt)
			}
		}
		if len(q.Options) < 2 {
			report.warn(rowNo, "%d option(s), at least 2 expected", len(q.Options))
		}

		idx, err := parseCorrect(get(correctCol))
		if err != nil {
			report.warn(rowNo, "%v", err)
		} else if idx >= len(q.Options) {
			report.warn(rowNo, "correct answer %d is past the last option", idx+1)
		}
		q.CorrectIndex = idx

		questions = append(questions, q)
		report.ImportedRows++
	}
	if len(questions) == 0 {
		return content.Qcm{}, report, ErrNoRows
	}

	repaired, notes := content.Repair(content.Qcm{Questions: questions})
	report.Repairs = append(report.Repairs, notes...)
	return repaired.(content.Qcm), report, nil
}

// parseCorrect reads a letter (A = first option) or a 1-based number and
// returns a 0-based index, or -1 with an error.
func parseCorrect(s string) (int, error) {
	if s == "" {
		return -1, errors.New("correct answer is empty")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 {
			return -1, fmt.Errorf("correct answer %d is not a 1-based option number", n)
		}
		return n - 1, nil
	}
	if len(s) == 1 {
		c := s[0] | 0x20 // ASCII lower-case
		if c >= 'a' && c <= 'z' {
			return int(c - 'a'), nil
		}
	}
	return -1, fmt.Errorf("correct answer %q is neither a letter nor a number", s)
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ExportQcm writes q, validated, as an xlsx workbook in the layout ImportQcm
// reads.
func ExportQcm(q content.Qcm) ([]byte, error) {
	valid := content.Validate(q).(content.Qcm)

	width := 0
	for _, item := range valid.Questions {
		width = max(width, len(item.Options))
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)

	headers := []string{colQuestion}
	for i := 0; i < width; i++ {
		headers = append(headers, optionHeader(i))
	}
	headers = append(headers, colCorrect)
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, item := range valid.Questions {
		row := i + 2
		values := make([]any, 0, len(headers))
		values = append(values, item.Text)
		for j := 0; j < width; j++ {
			if j < len(item.Options) {
				values = append(values, item.Options[j])
			} else {
				values = append(values, "")
			}
		}
		values = append(values, correctLabel(item.CorrectIndex))

		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(sheet, "A", lastCol, 28)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func optionHeader(i int) string {
	if i < 26 {
		return colOptionPrefix + "_" + string(rune('a'+i))
	}
	return colOptionPrefix + "_" + strconv.Itoa(i+1)
}

func correctLabel(idx int) string {
	if idx < 26 {
		return string(rune('A' + idx))
	}
	return strconv.Itoa(idx + 1)
}

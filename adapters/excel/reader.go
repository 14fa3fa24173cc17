package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/meta"
)

// StudyReader reads study tables from Excel or CSV files.
// Expected header columns (case-insensitive, any order):
//
//	label, measure, m1, m2, sd1, sd2, n1, n2, a, b, c, d
//
// Cells belonging to the measure kind a row does not use may be blank.
type StudyReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewStudyReader creates a reader that handles both Excel and CSV files
func NewStudyReader(filePath string) *StudyReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	return &StudyReader{filePath: filePath, fileType: fileType}
}

// ReadStudies reads the ordered study records from the table source
func (r *StudyReader) ReadStudies(ctx context.Context) ([]meta.StudyRecord, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("study file not found: %s", r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("study file must have a header row and at least one data row")
	}

	return r.processRows(rows)
}

// readExcelRows reads raw rows from Sheet1
func (r *StudyReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("failed to read Sheet1: %w", err)
	}
	return rows, nil
}

// readCSVRows reads raw rows from a CSV file
func (r *StudyReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// processRows converts raw string rows into ordered StudyRecords
func (r *StudyReader) processRows(rows [][]string) ([]meta.StudyRecord, error) {
	cols := make(map[string]int)
	for i, header := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, required := range []string{"label", "measure"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("study file missing required column %q", required)
		}
	}

	studies := make([]meta.StudyRecord, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}

		study, err := r.parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		studies = append(studies, study)
	}

	return studies, nil
}

func (r *StudyReader) parseRow(row []string, cols map[string]int) (meta.StudyRecord, error) {
	cell := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	study := meta.StudyRecord{
		Label:   cell("label"),
		Measure: meta.MeasureKind(strings.ToUpper(cell("measure"))),
	}
	if study.Label == "" {
		return meta.StudyRecord{}, fmt.Errorf("empty study label")
	}

	var err error
	parseFloat := func(name string) float64 {
		s := cell(name)
		if s == "" || err != nil {
			return 0
		}
		v, parseErr := strconv.ParseFloat(s, 64)
		if parseErr != nil {
			err = fmt.Errorf("study %q: invalid %s value %q", study.Label, name, s)
		}
		return v
	}
	parseInt := func(name string) int {
		s := cell(name)
		if s == "" || err != nil {
			return 0
		}
		v, parseErr := strconv.Atoi(s)
		if parseErr != nil {
			err = fmt.Errorf("study %q: invalid %s value %q", study.Label, name, s)
		}
		return v
	}

	study.Mean1 = parseFloat("m1")
	study.Mean2 = parseFloat("m2")
	study.SD1 = parseFloat("sd1")
	study.SD2 = parseFloat("sd2")
	study.N1 = parseInt("n1")
	study.N2 = parseInt("n2")
	study.A = parseInt("a")
	study.B = parseInt("b")
	study.C = parseInt("c")
	study.D = parseInt("d")
	if err != nil {
		return meta.StudyRecord{}, err
	}

	return study, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// RowSource supplies the full cell matrix of a QC report, header row
// included. The header is domain data; the extractor finds it by
// scanning.
type RowSource interface {
	Rows() ([][]string, error)
}

// XLSXSource reads rows from a spreadsheet file. An empty Sheet selects
// the first sheet.
type XLSXSource struct {
	Path  string
	Sheet string
}

func (s XLSXSource) Rows() ([][]string, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open report %s: %w", s.Path, err)
	}
	defer f.Close()
	sheet := s.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// CSVSource reads rows from CSV data. Ragged rows are accepted; the
// extractor treats missing trailing cells as empty.
type CSVSource struct {
	Reader io.Reader
}

func (s CSVSource) Rows() ([][]string, error) {
	r := csv.NewReader(s.Reader)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv report: %w", err)
	}
	return rows, nil
}

// Open picks a RowSource by file extension (.xlsx/.xlsm or .csv).
func Open(path string) (RowSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return XLSXSource{Path: path}, nil
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		return CSVSource{Reader: strings.NewReader(string(data))}, nil
	default:
		return nil, fmt.Errorf("report: unsupported file type %q", filepath.Ext(path))
	}
}

// Package importer lee exports de hojas de cálculo (CSV o XLSX) y los convierte
// en registros crudos con las cabeceras como claves.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/AngelCh415/LEADS_GO/internal/models"
)

var ErrEmptySheet = errors.New("worksheet is empty")

// ReadFile elige el lector por extensión. sheet vacío = primera hoja.
func ReadFile(path, sheet string) ([]models.RawRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx", ".xlsm":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadXLSX(f, sheet)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

func ReadCSV(r io.Reader) ([]models.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return fromRows(rows)
}

func ReadXLSX(r io.Reader, sheet string) ([]models.RawRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("no worksheet found")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) ([]models.RawRecord, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		if i == 0 {
			// "CSV UTF-8" de Excel antepone un BOM
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}
	out := make([]models.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := models.RawRecord{}
		blank := true
		for i, h := range header {
			if h == "" {
				continue
			}
			v := cellValue(row, i)
			if v != "" {
				blank = false
			}
			if isDateHeader(h) {
				v = excelSerialToDay(v)
			}
			rec[h] = v
		}
		if !blank {
			out = append(out, rec)
		}
	}
	return out, nil
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isDateHeader(h string) bool { return strings.EqualFold(h, "date") }

// excelSerialToDay convierte un serial de fecha de Excel (ej. "45714") a
// YYYY-MM-DD; cualquier otro texto queda igual.
func excelSerialToDay(v string) string {
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil || serial < 20000 || serial > 80000 {
		return v
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return v
	}
	return t.Format("2006-01-02")
}

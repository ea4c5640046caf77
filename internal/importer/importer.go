// Package importer reads cut lists from CSV and Excel files. It detects the
// CSV delimiter and maps columns by case-insensitive header names.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/BarCut/internal/model"
)

// ImportResult holds the pieces read from a file. Rows that cannot be read
// are reported in Errors and skipped.
type ImportResult struct {
	Pieces   []model.Piece
	Errors   []string
	Warnings []string
}

// ColumnMapping maps column roles to their indices in the data.
type ColumnMapping struct {
	WorkOrder int
	Profile   int
	Length    int
	Quantity  int
}

// headerAliases maps column roles to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"order":    {"order", "work order", "workorder", "work order id", "workorderid", "wo", "job"},
	"profile":  {"profile", "profile type", "profiletype", "section", "material", "type"},
	"length":   {"length", "len", "l", "size", "cut length"},
	"quantity": {"quantity", "qty", "count", "num", "amount", "pcs", "pieces"},
}

// DetectCSVDelimiter returns the delimiter among comma, semicolon, tab and
// pipe that splits the data into the most consistent multi-column rows.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping and true.
// Without a recognizable header it returns the positional mapping
// order, profile, length, quantity and false.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{WorkOrder: -1, Profile: -1, Length: -1, Quantity: -1}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized != alias {
					continue
				}
				isHeader = true
				switch role {
				case "order":
					if mapping.WorkOrder == -1 {
						mapping.WorkOrder = i
					}
				case "profile":
					if mapping.Profile == -1 {
						mapping.Profile = i
					}
				case "length":
					if mapping.Length == -1 {
						mapping.Length = i
					}
				case "quantity":
					if mapping.Quantity == -1 {
						mapping.Quantity = i
					}
				}
			}
		}
	}

	if !isHeader {
		return ColumnMapping{WorkOrder: 0, Profile: 1, Length: 2, Quantity: 3}, false
	}
	return mapping, true
}

func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseNumber accepts a decimal comma as well as a decimal point.
func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// parseRow extracts a piece from a row. It returns the piece, an error
// message and a warning message.
func parseRow(row []string, mapping ColumnMapping, rowLabel string) (model.Piece, string, string) {
	var warning string

	order := getCell(row, mapping.WorkOrder)
	if order == "" && mapping.WorkOrder >= 0 {
		warning = fmt.Sprintf("%s: Missing work order", rowLabel)
	}

	profile := getCell(row, mapping.Profile)
	if profile == "" {
		return model.Piece{}, fmt.Sprintf("%s: Missing profile", rowLabel), ""
	}

	lengthStr := getCell(row, mapping.Length)
	if lengthStr == "" {
		return model.Piece{}, fmt.Sprintf("%s: Missing length value", rowLabel), ""
	}
	length, err := parseNumber(lengthStr)
	if err != nil {
		return model.Piece{}, fmt.Sprintf("%s: Invalid length '%s'", rowLabel, lengthStr), ""
	}

	qty := 1
	if qtyStr := getCell(row, mapping.Quantity); qtyStr != "" {
		qty, err = strconv.Atoi(qtyStr)
		if err != nil {
			return model.Piece{}, fmt.Sprintf("%s: Invalid quantity '%s'", rowLabel, qtyStr), ""
		}
	} else if warning == "" {
		warning = fmt.Sprintf("%s: Missing quantity, defaulting to 1", rowLabel)
	}

	if length <= 0 || qty <= 0 {
		return model.Piece{}, fmt.Sprintf("%s: Length and quantity must be positive", rowLabel), ""
	}

	return model.Piece{
		WorkOrderID: order,
		ProfileType: profile,
		Length:      length,
		Quantity:    qty,
	}, "", warning
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ImportFile imports a cut list, choosing the reader by file extension.
func ImportFile(path string) ImportResult {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return ImportExcel(path)
	default:
		return ImportCSV(path)
	}
}

// ImportCSV imports pieces from a CSV file with an auto-detected delimiter.
func ImportCSV(path string) ImportResult {
	result := ImportResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return result
	}

	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	var warnings []string
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		warnings = append(warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	return importFromRows(records, "Line", warnings)
}

// ImportCSVFromReader imports pieces from a CSV reader with a known delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	result := ImportResult{}

	csvReader := csv.NewReader(reader)
	csvReader.Comma = delimiter
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	return importFromRows(records, "Line", nil)
}

// ImportExcel imports pieces from the first sheet of an Excel file.
func ImportExcel(path string) ImportResult {
	result := ImportResult{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}

	return importFromRows(rows, "Row", nil)
}

// importFromRows is the shared import logic for CSV and Excel data.
func importFromRows(rows [][]string, rowPrefix string, initialWarnings []string) ImportResult {
	result := ImportResult{Warnings: initialWarnings}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")

		var missing []string
		if mapping.Profile == -1 {
			missing = append(missing, "Profile")
		}
		if mapping.Length == -1 {
			missing = append(missing, "Length")
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if len(rows[0]) >= 3 {
		// A non-numeric length cell means an unrecognized header
		if _, err := parseNumber(strings.TrimSpace(rows[0][mapping.Length])); err != nil {
			startRow = 1
			result.Warnings = append(result.Warnings, "Detected header row, skipping")
		}
	}

	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		piece, errMsg, warning := parseRow(row, mapping, rowLabel)
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		result.Pieces = append(result.Pieces, piece)
	}

	return result
}

package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/xuri/excelize/v2"
)

const (
	CustomerStatusLead     = "lead"
	CustomerStatusCustomer = "customer"
)

var phonePattern = regexp.MustCompile(`^[0-9+().\-\s]{7,20}$`)

// Customer is a contractor's lead or customer.
type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Status  string `json:"status"`
	Notes   string `json:"notes"`
}

func (c Customer) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&c.Email, is.EmailFormat),
		validation.Field(&c.Phone, validation.Match(phonePattern).Error("must be a valid phone number")),
		validation.Field(&c.Status, validation.In(CustomerStatusLead, CustomerStatusCustomer)),
		validation.Field(&c.Notes, validation.Length(0, 2000)),
	)
}

// Normalize trims every field and defaults the status to lead.
func (c Customer) Normalize() Customer {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	c.Status = strings.ToLower(strings.TrimSpace(c.Status))
	c.Notes = strings.TrimSpace(c.Notes)
	if c.Status == "" {
		c.Status = CustomerStatusLead
	}
	return c
}

// ImportField is one recognised column of the customer upload.
type ImportField struct {
	Key      string
	Label    string
	Required bool
}

// CustomerImportFields lists the upload columns in template order.
func CustomerImportFields() []ImportField {
	return []ImportField{
		{Key: "name", Label: "Name", Required: true},
		{Key: "email", Label: "Email"},
		{Key: "phone", Label: "Phone"},
		{Key: "address", Label: "Address"},
		{Key: "status", Label: "Status"},
		{Key: "notes", Label: "Notes"},
	}
}

// ValidationError represents a single field-level error on one row.
type ValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult is returned after parsing and validating an uploaded file.
type ValidationResult struct {
	TotalRows int               `json:"total_rows"`
	ValidRows int               `json:"valid_rows"`
	ErrorRows int               `json:"error_rows"`
	Errors    []ValidationError `json:"errors"`
	Customers []Customer        `json:"-"`
	FileName  string            `json:"-"`
}

// parseCSV reads a CSV file and returns headers + data rows.
func parseCSV(file io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(allRows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}

	return allRows[0], allRows[1:], nil
}

// parseExcel reads an xlsx file and returns headers + data rows from the first sheet.
func parseExcel(file io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}

	return rows[0], rows[1:], nil
}

// mapHeadersToFields maps uploaded column headers to field keys. Returns one
// key per column ("" when unrecognised) and the unrecognised headers.
func mapHeadersToFields(headers []string, fields []ImportField) ([]string, []string) {
	labelToKey := make(map[string]string, len(fields)*2)
	for _, f := range fields {
		labelToKey[strings.ToLower(f.Label)] = f.Key
		labelToKey[f.Key] = f.Key
	}

	mapped := make([]string, len(headers))
	var unrecognized []string

	for i, h := range headers {
		norm := strings.ToLower(strings.TrimSpace(h))
		norm = strings.TrimSpace(strings.TrimSuffix(norm, "*"))
		if key, ok := labelToKey[norm]; ok {
			mapped[i] = key
		} else {
			unrecognized = append(unrecognized, h)
		}
	}
	return mapped, unrecognized
}

// ParseCustomerFile parses and validates an uploaded .csv or .xlsx customer
// list. Row numbers in errors are 1-indexed and count the header row.
func ParseCustomerFile(file io.Reader, fileName string) (*ValidationResult, error) {
	var headers []string
	var dataRows [][]string
	var err error

	lowerName := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lowerName, ".csv"):
		headers, dataRows, err = parseCSV(file)
	case strings.HasSuffix(lowerName, ".xlsx"):
		headers, dataRows, err = parseExcel(file)
	default:
		return nil, fmt.Errorf("unsupported file format: must be .csv or .xlsx")
	}
	if err != nil {
		return nil, err
	}

	fields := CustomerImportFields()
	columnKeys, _ := mapHeadersToFields(headers, fields)
	hasName := false
	for _, k := range columnKeys {
		if k == "name" {
			hasName = true
		}
	}
	if !hasName {
		return nil, fmt.Errorf("missing required column: Name")
	}

	keyToLabel := make(map[string]string, len(fields))
	for _, f := range fields {
		keyToLabel[f.Key] = f.Label
	}

	result := &ValidationResult{FileName: fileName}
	seenEmails := map[string]int{}
	errorRows := map[int]bool{}

	for rowIdx, row := range dataRows {
		rowNum := rowIdx + 2
		data := map[string]string{}
		blank := true
		for colIdx, key := range columnKeys {
			if key == "" || colIdx >= len(row) {
				continue
			}
			data[key] = row[colIdx]
			if strings.TrimSpace(row[colIdx]) != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		result.TotalRows++

		c := Customer{
			Name:    data["name"],
			Email:   data["email"],
			Phone:   data["phone"],
			Address: data["address"],
			Status:  data["status"],
			Notes:   data["notes"],
		}.Normalize()

		var rowErrors []ValidationError
		if err := c.Validate(); err != nil {
			var fieldErrs validation.Errors
			if errors.As(err, &fieldErrs) {
				for _, f := range fields {
					if fe, ok := fieldErrs[f.Key]; ok {
						rowErrors = append(rowErrors, ValidationError{
							Row:     rowNum,
							Field:   keyToLabel[f.Key],
							Message: fmt.Sprintf("%s %s", keyToLabel[f.Key], fe.Error()),
						})
					}
				}
			} else {
				rowErrors = append(rowErrors, ValidationError{Row: rowNum, Message: err.Error()})
			}
		}
		if c.Email != "" {
			if first, dup := seenEmails[c.Email]; dup {
				rowErrors = append(rowErrors, ValidationError{
					Row:     rowNum,
					Field:   "Email",
					Message: fmt.Sprintf("Email duplicates row %d", first),
				})
			} else {
				seenEmails[c.Email] = rowNum
			}
		}

		if len(rowErrors) > 0 {
			errorRows[rowNum] = true
			result.Errors = append(result.Errors, rowErrors...)
			continue
		}
		result.Customers = append(result.Customers, c)
	}

	if result.TotalRows == 0 {
		return nil, fmt.Errorf("file must contain a header row and at least one data row")
	}
	result.ErrorRows = len(errorRows)
	result.ValidRows = result.TotalRows - result.ErrorRows
	return result, nil
}

// GenerateErrorReport creates a downloadable .xlsx file from validation errors.
func GenerateErrorReport(errs []ValidationError) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Errors"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DC2626"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    thinBorders(),
	})

	f.SetCellValue(sheet, "A1", "Row #")
	f.SetCellValue(sheet, "B1", "Field")
	f.SetCellValue(sheet, "C1", "Error")
	f.SetCellStyle(sheet, "A1", "C1", headerStyle)
	f.SetColWidth(sheet, "A", "A", 8)
	f.SetColWidth(sheet, "B", "B", 22)
	f.SetColWidth(sheet, "C", "C", 55)

	for i, e := range errs {
		row := fmt.Sprintf("%d", i+2)
		f.SetCellValue(sheet, "A"+row, e.Row)
		f.SetCellValue(sheet, "B"+row, e.Field)
		f.SetCellValue(sheet, "C"+row, sanitizeExcelCell(e.Message))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write error report: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateCustomerTemplate creates an empty upload template with the column
// headers. Required columns are marked with an asterisk.
func GenerateCustomerTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Customers"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, field := range CustomerImportFields() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		label := field.Label
		if field.Required {
			label += " *"
		}
		f.SetCellValue(sheet, cell, label)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, 24)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	return buf.Bytes(), nil
}

package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/citydata/salarydb/internal/salaries"
)

// The source CSV marks missing values either with an empty cell or with the
// literal string "Not Provided". Both load as the zero value, matching the
// schema's lack of non-null constraints.
const notProvided = "Not Provided"

// header is the expected CSV column order, identical to the table schema
var header = salaries.Columns()

// missing reports whether a cell carries no usable value
func missing(cell string) bool {
	cell = strings.TrimSpace(cell)
	return cell == "" || strings.EqualFold(cell, notProvided)
}

// parseFloat coerces a monetary cell to float64; missing or malformed cells
// become 0, as the source pipeline coerced them to NULL
func parseFloat(cell string) float64 {
	if missing(cell) {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0
	}
	return v
}

// parseText returns the trimmed cell, with missing markers mapped to empty
func parseText(cell string) string {
	if missing(cell) {
		return ""
	}
	return strings.TrimSpace(cell)
}

// ParseRecord converts one CSV row into a salary record.
// The row must have exactly the thirteen schema columns. Id and Year must be
// parseable integers; everything else degrades to a zero value.
func ParseRecord(row []string) (salaries.Record, error) {
	if len(row) != len(header) {
		return salaries.Record{}, fmt.Errorf("expected %d columns, got %d", len(header), len(row))
	}

	id, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
	if err != nil {
		return salaries.Record{}, &salaries.ConstraintError{
			Table:      salaries.TableName,
			Column:     "Id",
			Value:      row[0],
			Constraint: "type_mismatch",
			Reason:     "primary key must be an integer",
		}
	}

	year, err := strconv.Atoi(strings.TrimSpace(row[9]))
	if err != nil {
		return salaries.Record{}, &salaries.ConstraintError{
			Table:      salaries.TableName,
			Column:     "Year",
			Value:      row[9],
			Constraint: "type_mismatch",
			Reason:     "year must be an integer",
		}
	}

	return salaries.Record{
		ID:               id,
		EmployeeName:     parseText(row[1]),
		JobTitle:         parseText(row[2]),
		BasePay:          parseFloat(row[3]),
		OvertimePay:      parseFloat(row[4]),
		OtherPay:         parseFloat(row[5]),
		Benefits:         parseFloat(row[6]),
		TotalPay:         parseFloat(row[7]),
		TotalPayBenefits: parseFloat(row[8]),
		Year:             year,
		Notes:            parseText(row[10]),
		Agency:           parseText(row[11]),
		Status:           parseText(row[12]),
	}, nil
}

// IsHeaderRow reports whether a CSV row is the column header line
func IsHeaderRow(row []string) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "Id")
}

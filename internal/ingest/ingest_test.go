package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/citydata/salarydb/internal/salaries"
	"github.com/citydata/salarydb/internal/store"
)

func TestParseRecordFullRow(t *testing.T) {
	row := []string{
		"1", "Jane Doe", "Clerk", "50000", "0", "0", "10000",
		"50000", "60000", "2013", "", "City", "FT",
	}

	rec, err := ParseRecord(row)
	assert.NilError(t, err)

	assert.DeepEqual(t, salaries.Record{
		ID:               1,
		EmployeeName:     "Jane Doe",
		JobTitle:         "Clerk",
		BasePay:          50000,
		Benefits:         10000,
		TotalPay:         50000,
		TotalPayBenefits: 60000,
		Year:             2013,
		Agency:           "City",
		Status:           "FT",
	}, rec)
}

func TestParseRecordCleansMissingValues(t *testing.T) {
	row := []string{
		"7", "Not Provided", "Not Provided", "Not Provided", "", "not provided", "",
		"", "", "2014", "Not Provided", "", "",
	}

	rec, err := ParseRecord(row)
	assert.NilError(t, err)

	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, "", rec.EmployeeName)
	assert.Equal(t, "", rec.JobTitle)
	assert.Equal(t, float64(0), rec.BasePay)
	assert.Equal(t, float64(0), rec.OtherPay)
	assert.Equal(t, "", rec.Notes)
	assert.Equal(t, 2014, rec.Year)
}

func TestParseRecordRejectsBadID(t *testing.T) {
	row := []string{
		"abc", "Jane Doe", "Clerk", "50000", "0", "0", "10000",
		"50000", "60000", "2013", "", "City", "FT",
	}

	_, err := ParseRecord(row)

	var cerr *salaries.ConstraintError
	assert.Assert(t, errors.As(err, &cerr))
	assert.Equal(t, "Id", cerr.Column)
	assert.Equal(t, "type_mismatch", cerr.Constraint)
}

func TestParseRecordRejectsWrongColumnCount(t *testing.T) {
	_, err := ParseRecord([]string{"1", "Jane Doe"})
	assert.ErrorContains(t, err, "expected 13 columns")
}

const testCSV = `Id,EmployeeName,JobTitle,BasePay,OvertimePay,OtherPay,Benefits,TotalPay,TotalPayBenefits,Year,Notes,Agency,Status
1,Jane Doe,Clerk,50000,0,0,10000,50000,60000,2013,,City,FT
2,John Roe,Engineer,82000.25,1200.50,0,16000,83200.75,99200.75,2013,,City,FT
bogus,Bad Row,Clerk,1,2,3,4,5,6,2013,,City,FT
2,Duplicate Id,Clerk,1,2,3,4,5,6,2014,,City,PT
3,Ann Poe,Analyst,61000,0,500,Not Provided,61500,61500,2014,Not Provided,City,PT
`

func writeTestCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "salaries.csv")
	if err := os.WriteFile(path, []byte(testCSV), 0644); err != nil {
		t.Fatalf("failed to write test CSV: %v", err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	s := store.New(nil)

	result, err := LoadCSV(context.Background(), writeTestCSV(t), s, nil)
	assert.NilError(t, err)

	assert.Equal(t, 3, result.Loaded)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Duplicates)
	assert.Assert(t, result.BatchID != "")
	assert.Equal(t, 3, s.Count())

	// Cleaned values made it into the store
	rec, err := s.Get(3)
	assert.NilError(t, err)
	assert.Equal(t, float64(0), rec.Benefits)
	assert.Equal(t, "", rec.Notes)

	// The duplicate row did not overwrite the first insert
	rec, err = s.Get(2)
	assert.NilError(t, err)
	assert.Equal(t, "John Roe", rec.EmployeeName)
}

func TestLoadCSVMissingFile(t *testing.T) {
	s := store.New(nil)
	_, err := LoadCSV(context.Background(), "/nonexistent/salaries.csv", s, nil)
	assert.Assert(t, err != nil)
}

func TestLoadCSVCancelled(t *testing.T) {
	s := store.New(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadCSV(ctx, writeTestCSV(t), s, nil)
	assert.Assert(t, errors.Is(err, context.Canceled), "got %v", err)
}

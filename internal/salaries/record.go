package salaries

// TableName is the canonical name of the salaries table, both in snapshots
// and in the Postgres export target.
const TableName = "Salaries"

// Record is one employee-year salary row.
//
// Only ID carries an enforced constraint (uniqueness). The source data
// declares every other column nullable; missing values load as zero values.
// TotalPay and TotalPayBenefits are stored as reported by the agency and are
// not recomputed from the pay components.
type Record struct {
	ID               int64   `json:"id"`
	EmployeeName     string  `json:"employee_name"`
	JobTitle         string  `json:"job_title"`
	BasePay          float64 `json:"base_pay"`
	OvertimePay      float64 `json:"overtime_pay"`
	OtherPay         float64 `json:"other_pay"`
	Benefits         float64 `json:"benefits"`
	TotalPay         float64 `json:"total_pay"`
	TotalPayBenefits float64 `json:"total_pay_benefits"`
	Year             int     `json:"year"`
	Notes            string  `json:"notes,omitempty"`
	Agency           string  `json:"agency"`
	Status           string  `json:"status"`
}

// Validate checks the record against the schema's declared constraints.
// The primary key must be present; nothing else is enforced.
func (r Record) Validate() error {
	if r.ID <= 0 {
		return &ConstraintError{
			Table:      TableName,
			Column:     "Id",
			Value:      r.ID,
			Constraint: "primary_key",
			Reason:     "primary key value required",
		}
	}
	return nil
}

// Columns lists the table's column names in schema order. Shared by the
// snapshot metadata and the Postgres exporter.
func Columns() []string {
	return []string{
		"Id",
		"EmployeeName",
		"JobTitle",
		"BasePay",
		"OvertimePay",
		"OtherPay",
		"Benefits",
		"TotalPay",
		"TotalPayBenefits",
		"Year",
		"Notes",
		"Agency",
		"Status",
	}
}

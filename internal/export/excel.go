package export

import (
	"fmt"

	"github.com/hireflow/hireflow/internal/models"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Applicants"

// column defines one cell of the export's fixed wide schema.
type column struct {
	Header string
	Width  float64
	Value  func(r models.ApplicantRecord) string
}

var exportColumns = []column{
	{"ID", 26, func(r models.ApplicantRecord) string { return r.SourceID }},
	{"Source", 12, func(r models.ApplicantRecord) string { return r.Source }},
	{"Full Name", 24, func(r models.ApplicantRecord) string { return r.FullName }},
	{"Email", 28, func(r models.ApplicantRecord) string { return r.Email }},
	{"Phone", 16, func(r models.ApplicantRecord) string { return r.Phone }},
	{"Gender", 10, func(r models.ApplicantRecord) string { return r.Gender }},
	{"Date of Birth", 14, func(r models.ApplicantRecord) string { return r.DateOfBirth }},
	{"Address", 32, func(r models.ApplicantRecord) string { return r.Address }},
	{"City", 14, func(r models.ApplicantRecord) string { return r.City }},
	{"State", 14, func(r models.ApplicantRecord) string { return r.State }},
	{"Country", 14, func(r models.ApplicantRecord) string { return r.Country }},
	{"Pincode", 10, func(r models.ApplicantRecord) string { return r.Pincode }},
	{"Qualification", 18, func(r models.ApplicantRecord) string { return r.Qualification }},
	{"Specialization", 18, func(r models.ApplicantRecord) string { return r.Specialization }},
	{"University", 24, func(r models.ApplicantRecord) string { return r.University }},
	{"Graduation Year", 14, func(r models.ApplicantRecord) string { return r.GraduationYear }},
	{"Experience (Years)", 14, func(r models.ApplicantRecord) string { return r.ExperienceYrs }},
	{"Current Company", 20, func(r models.ApplicantRecord) string { return r.CurrentCompany }},
	{"Current Role", 20, func(r models.ApplicantRecord) string { return r.CurrentRole }},
	{"Expected Salary", 14, func(r models.ApplicantRecord) string { return r.ExpectedSalary }},
	{"Notice Period", 14, func(r models.ApplicantRecord) string { return r.NoticePeriod }},
	{"Skills", 36, func(r models.ApplicantRecord) string { return r.Skills }},
	{"Resume URL", 36, func(r models.ApplicantRecord) string { return r.ResumeURL }},
	{"ID Proof URL", 36, func(r models.ApplicantRecord) string { return r.IDProofURL }},
	{"Photo URL", 36, func(r models.ApplicantRecord) string { return r.PhotoURL }},
	{"Applied At", 20, func(r models.ApplicantRecord) string {
		if r.AppliedAt.IsZero() {
			return ""
		}
		return r.AppliedAt.Format("2006-01-02 15:04")
	}},
}

// BuildWorkbook renders the canonical records into the export workbook.
func BuildWorkbook(records []models.ApplicantRecord) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	headers := make([]interface{}, len(exportColumns))
	for i, col := range exportColumns {
		headers[i] = col.Header

		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve column name: %w", err)
		}
		if err := f.SetColWidth(sheetName, name, name, col.Width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(exportColumns))
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header row: %w", err)
	}

	for i, record := range records {
		row := make([]interface{}, len(exportColumns))
		for j, col := range exportColumns {
			row[j] = col.Value(record)
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve row cell: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	return f, nil
}

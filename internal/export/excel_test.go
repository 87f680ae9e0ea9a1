package export

import (
	"testing"
	"time"

	"github.com/hireflow/hireflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildWorkbook(t *testing.T) {
	records := []models.ApplicantRecord{
		{
			SourceID:  "cand-1",
			Source:    "candidates",
			FullName:  "Asha Verma",
			Email:     "asha@example.com",
			Skills:    "Go, Redis",
			AppliedAt: time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		},
		{
			SourceID: "stu-1",
			Source:   "students",
			FullName: "Meera Nair",
			Email:    "meera@example.com",
		},
	}

	f, err := BuildWorkbook(records)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "Source", rows[0][1])
	assert.Equal(t, "Full Name", rows[0][2])
	assert.Equal(t, "Email", rows[0][3])

	assert.Equal(t, "cand-1", rows[1][0])
	assert.Equal(t, "candidates", rows[1][1])
	assert.Equal(t, "Asha Verma", rows[1][2])

	assert.Equal(t, "stu-1", rows[2][0])
	assert.Equal(t, "students", rows[2][1])
	assert.Equal(t, "Meera Nair", rows[2][2])

	// Applied At formats as a plain datetime string.
	appliedAt, err := f.GetCellValue(sheetName, "Z2")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14 10:30", appliedAt)
}

func TestBuildWorkbookEmptyRecords(t *testing.T) {
	f, err := BuildWorkbook(nil)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only
}

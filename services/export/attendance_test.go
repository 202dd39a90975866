package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/attendance"
)

func TestClassWorkbook(t *testing.T) {
	ada := attendance.StudentRef{ID: 1, FirstName: "Ada", LastName: "Lovelace"}
	records := []attendance.Record{
		{
			Attendance: attendance.Attendance{ID: 1, StudentID: 1, Status: attendance.StatusLate, UpdatedAt: time.Date(2024, 10, 7, 10, 5, 0, 0, time.UTC)},
			Student:    ada,
			Session:    &attendance.SessionRef{ID: 3, Date: "2024-10-07", Subject: core.Ref{ID: 2, Name: "History"}},
		},
	}
	summaries := []attendance.StudentSummary{{Student: ada, Late: 1, Total: 1}}

	var buf bytes.Buffer
	require.NoError(t, ClassWorkbook(&buf, records, summaries))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{recordsSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(recordsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Date", "Subject", "Student", "Status", "Updated at"}, rows[0])
	assert.Equal(t, []string{"2024-10-07", "History", "Lovelace Ada", "LATE", "2024-10-07 10:05"}, rows[1])

	rows, err = f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Lovelace Ada", "0", "0", "1", "0", "1"}, rows[1])
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "attendance_6A_2024_25.xlsx", Filename("6A 2024/25"))
	assert.Equal(t, "attendance_class.xlsx", Filename("  "))
}

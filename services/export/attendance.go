package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/presence/core/attendance"
)

const (
	recordsSheet = "Records"
	summarySheet = "Summary"
)

// ContentType is the media type of the produced workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sheetSpec struct {
	title  string
	header []string
	rows   [][]interface{}
}

// ClassWorkbook writes the attendance of a class as an XLSX workbook:
// one row per record on the "Records" sheet and per-student counts on the "Summary" sheet.
func ClassWorkbook(w io.Writer, records []attendance.Record, summaries []attendance.StudentSummary) error {
	recs := sheetSpec{
		title:  recordsSheet,
		header: []string{"Date", "Subject", "Student", "Status", "Updated at"},
		rows:   make([][]interface{}, 0, len(records)),
	}
	for _, rec := range records {
		var date, subject string
		if rec.Session != nil {
			date, subject = rec.Session.Date, rec.Session.Subject.Name
		}
		recs.rows = append(recs.rows, []interface{}{
			date,
			subject,
			fullName(rec.Student),
			string(rec.Status),
			rec.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}

	summ := sheetSpec{
		title:  summarySheet,
		header: []string{"Student", "Present", "Absent", "Late", "Excused", "Total"},
		rows:   make([][]interface{}, 0, len(summaries)),
	}
	for _, s := range summaries {
		summ.rows = append(summ.rows, []interface{}{fullName(s.Student), s.Present, s.Absent, s.Late, s.Excused, s.Total})
	}

	f, err := newWorkbook(recs, summ)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err = f.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}

func newWorkbook(sheets ...sheetSpec) (*excelize.File, error) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, errors.Wrap(err, "creating header style")
	}

	for i, s := range sheets {
		if i == 0 {
			if err = f.SetSheetName("Sheet1", s.title); err != nil {
				return nil, errors.Wrap(err, "renaming sheet")
			}
		} else if _, err = f.NewSheet(s.title); err != nil {
			return nil, errors.Wrap(err, "adding sheet")
		}

		header := make([]interface{}, 0, len(s.header))
		for _, h := range s.header {
			header = append(header, h)
		}
		if err = f.SetSheetRow(s.title, "A1", &header); err != nil {
			return nil, errors.Wrap(err, "writing header")
		}
		for r, row := range s.rows {
			row := row
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			if err = f.SetSheetRow(s.title, cell, &row); err != nil {
				return nil, errors.Wrapf(err, "writing row %d", r+2)
			}
		}

		last, _ := excelize.CoordinatesToCellName(len(s.header), 1)
		_ = f.SetCellStyle(s.title, "A1", last, bold)
		_ = f.AutoFilter(s.title, "A1:"+last, nil)
		setWidths(f, s)
	}
	return f, nil
}

// setWidths sizes columns after their longest value, within bounds.
func setWidths(f *excelize.File, s sheetSpec) {
	for c, h := range s.header {
		width := len(h)
		for _, row := range s.rows {
			if c < len(row) {
				if l := len(fmt.Sprint(row[c])); l > width {
					width = l
				}
			}
		}
		w := float64(width) * 1.1
		if w < 10 {
			w = 10
		}
		if w > 40 {
			w = 40
		}
		col, _ := excelize.ColumnNumberToName(c + 1)
		_ = f.SetColWidth(s.title, col, col, w)
	}
}

func fullName(std attendance.StudentRef) string {
	return strings.TrimSpace(std.LastName + " " + std.FirstName)
}

// Filename returns the download name of a class workbook.
func Filename(className string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(className))
	if name == "" {
		name = "class"
	}
	return fmt.Sprintf("attendance_%s.xlsx", strings.ReplaceAll(name, " ", "_"))
}

package attendance

import (
	"fmt"
	"time"

	"github.com/trezcool/presence/core"
)

type Status string

// Statuses
const (
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
	StatusLate    Status = "LATE"
	StatusExcused Status = "EXCUSED"
)

// AllStatuses is the canonical status enumeration, shared by writes and reads.
var AllStatuses = []Status{StatusPresent, StatusAbsent, StatusLate, StatusExcused}

func (s Status) Valid() bool {
	for _, status := range AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Attendance struct {
	ID        int       `json:"id"`
	SessionID int       `json:"sessionId"`
	StudentID int       `json:"studentId"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Mark is the status submitted for one student.
type Mark struct {
	StudentID int    `json:"studentId"`
	Status    Status `json:"status"`
}

// NewBatch is a set of marks for one session, applied all at once.
type NewBatch struct {
	SessionID   int    `json:"sessionId"`
	Attendances []Mark `json:"attendances"`
}

// validate checks the marks of the batch and stops at the first malformed one.
func (nb *NewBatch) validate() error {
	if len(nb.Attendances) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "attendances", Error: "at least one attendance is required"})
	}

	seen := make(map[int]int, len(nb.Attendances))
	for i := range nb.Attendances {
		mark := &nb.Attendances[i]
		mark.Status = Status(core.CleanString(string(mark.Status)))
		fld := func(name string) string { return fmt.Sprintf("attendances[%d].%s", i, name) }

		if mark.StudentID <= 0 {
			return core.NewValidationError(nil, core.FieldError{Field: fld("studentId"), Error: "this field is required"})
		}
		if !mark.Status.Valid() {
			return core.NewValidationError(nil, core.FieldError{
				Field: fld("status"),
				Error: "status must be one of PRESENT, ABSENT, LATE, EXCUSED",
			})
		}
		if j, dup := seen[mark.StudentID]; dup {
			return core.NewValidationError(nil, core.FieldError{
				Field: fld("studentId"),
				Error: fmt.Sprintf("student %d already appears at attendances[%d]", mark.StudentID, j),
			})
		}
		seen[mark.StudentID] = i
	}
	return nil
}

type StudentRef struct {
	ID        int    `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type SessionRef struct {
	ID      int      `json:"id"`
	Date    string   `json:"date"`
	Class   core.Ref `json:"class"`
	Subject core.Ref `json:"subject"`
}

// Record is an Attendance joined with its student and, outside of session reads, its session.
type Record struct {
	Attendance
	Student StudentRef  `json:"student"`
	Session *SessionRef `json:"session,omitempty"`
}

// StudentSummary counts the statuses recorded for one student.
type StudentSummary struct {
	Student StudentRef `json:"student"`
	Present int        `json:"present"`
	Absent  int        `json:"absent"`
	Late    int        `json:"late"`
	Excused int        `json:"excused"`
	Total   int        `json:"total"`
}

// Add counts one more status.
func (ss *StudentSummary) Add(status Status) {
	switch status {
	case StatusPresent:
		ss.Present++
	case StatusAbsent:
		ss.Absent++
	case StatusLate:
		ss.Late++
	case StatusExcused:
		ss.Excused++
	}
	ss.Total++
}

// Period is an inclusive range of session dates.
type Period struct {
	Start time.Time
	End   time.Time
}

// ParsePeriod parses YYYY-MM-DD bounds. Both are required and start must not be after end.
func ParsePeriod(start, end string) (Period, error) {
	var (
		p   Period
		err error
	)
	if start = core.CleanString(start); start == "" {
		return p, core.NewValidationError(nil, core.FieldError{Field: "start", Error: "this field is required"})
	}
	if end = core.CleanString(end); end == "" {
		return p, core.NewValidationError(nil, core.FieldError{Field: "end", Error: "this field is required"})
	}
	if p.Start, err = core.ParseDate(start); err != nil {
		return p, core.NewValidationError(nil, core.FieldError{Field: "start", Error: "start must be formatted as YYYY-MM-DD"})
	}
	if p.End, err = core.ParseDate(end); err != nil {
		return p, core.NewValidationError(nil, core.FieldError{Field: "end", Error: "end must be formatted as YYYY-MM-DD"})
	}
	if p.Start.After(p.End) {
		return p, core.NewValidationError(nil, core.FieldError{Field: "start", Error: "start must not be after end"})
	}
	return p, nil
}

// Contains tells whether the YYYY-MM-DD date falls within the period.
func (p Period) Contains(date string) bool {
	return date >= p.StartDate() && date <= p.EndDate()
}

func (p Period) StartDate() string { return p.Start.Format(core.DateLayout) }

func (p Period) EndDate() string { return p.End.Format(core.DateLayout) }

package session

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/presence/core"
)

// TimeLayout is the layout of session start and end times.
const TimeLayout = "15:04"

type Session struct {
	ID        int       `json:"id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	ClassID   int       `json:"classId"`
	SubjectID int       `json:"subjectId"`
	TeacherID int       `json:"teacherId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Detail is a Session joined with the identity of its class, subject and teacher.
type Detail struct {
	Session
	Class   core.Ref `json:"class"`
	Subject core.Ref `json:"subject"`
	Teacher core.Ref `json:"teacher"`
}

// NewSession contains information needed to create a new Session.
type NewSession struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	ClassID   int    `json:"classId" validate:"required,gt=0"`
	SubjectID int    `json:"subjectId" validate:"required,gt=0"`
	TeacherID int    `json:"teacherId" validate:"required,gt=0"`
}

// Validate checks the shape of the new session.
func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.Date = core.CleanString(ns.Date)
	ns.StartTime = core.CleanString(ns.StartTime)
	ns.EndTime = core.CleanString(ns.EndTime)
	if err := validate.Struct(ns); err != nil {
		return err
	}

	_, _, _, err := ns.Times()
	return err
}

// Times parses the date of the session and combines its start and end times with it (UTC).
func (ns NewSession) Times() (date, start, end time.Time, err error) {
	if date, err = core.ParseDate(ns.Date); err != nil {
		err = core.NewValidationError(nil, core.FieldError{Field: "date", Error: "date must be formatted as YYYY-MM-DD"})
		return
	}
	if start, err = combine(date, ns.StartTime); err != nil {
		err = core.NewValidationError(nil, core.FieldError{Field: "startTime", Error: "startTime must be formatted as HH:MM"})
		return
	}
	if end, err = combine(date, ns.EndTime); err != nil {
		err = core.NewValidationError(nil, core.FieldError{Field: "endTime", Error: "endTime must be formatted as HH:MM"})
		return
	}
	if !end.After(start) {
		err = core.NewValidationError(nil, core.FieldError{Field: "endTime", Error: "endTime must be after startTime"})
	}
	return
}

func combine(date time.Time, clock string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, clock, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return date.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute), nil
}

type QueryFilter struct {
	ClassID   int    `query:"classId"`
	SubjectID int    `query:"subjectId"`
	TeacherID int    `query:"teacherId"`
	From      string `query:"from"` // YYYY-MM-DD, inclusive
	To        string `query:"to"`   // YYYY-MM-DD, inclusive
}

// Clean checks the date bounds of the filter.
func (qf *QueryFilter) Clean() error {
	qf.From = core.CleanString(qf.From)
	qf.To = core.CleanString(qf.To)
	for _, bound := range [...]struct{ fld, val string }{{"from", qf.From}, {"to", qf.To}} {
		if bound.val == "" {
			continue
		}
		if _, err := core.ParseDate(bound.val); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: bound.fld, Error: bound.fld + " must be formatted as YYYY-MM-DD"})
		}
	}
	if qf.From != "" && qf.To != "" && qf.From > qf.To {
		return core.NewValidationError(nil, core.FieldError{Field: "from", Error: "from must not be after to"})
	}
	return nil
}

var OrderingFields = map[string]string{
	"id":        "s.id",
	"date":      "s.date",
	"startTime": "s.start_time",
	"createdAt": "s.created_at",
}

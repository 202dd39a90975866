package class

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/presence/core"
)

type Class struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Level        string    `json:"level"`
	AcademicYear string    `json:"academicYear"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name         string `json:"name" validate:"required,notblank"`
	Level        string `json:"level" validate:"required,notblank"`
	AcademicYear string `json:"academicYear" validate:"required,notblank"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Level = core.CleanString(nc.Level)
	nc.AcademicYear = core.CleanString(nc.AcademicYear)
	return validate.Struct(nc)
}

// UpdateClass defines what information may be provided to modify an existing Class.
// Empty fields are left unchanged.
type UpdateClass struct {
	Name         string `json:"name"`
	Level        string `json:"level"`
	AcademicYear string `json:"academicYear"`
}

func (uc *UpdateClass) Clean(orig Class) {
	if uc.Name = core.CleanString(uc.Name); uc.Name == "" {
		uc.Name = orig.Name
	}
	if uc.Level = core.CleanString(uc.Level); uc.Level == "" {
		uc.Level = orig.Level
	}
	if uc.AcademicYear = core.CleanString(uc.AcademicYear); uc.AcademicYear == "" {
		uc.AcademicYear = orig.AcademicYear
	}
}

type QueryFilter struct {
	Search       string `query:"search"`
	Level        string `query:"level"`
	AcademicYear string `query:"academicYear"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Level = core.CleanString(qf.Level)
	qf.AcademicYear = core.CleanString(qf.AcademicYear)
}

var OrderingFields = map[string]string{
	"id":           "id",
	"name":         "name",
	"level":        "level",
	"academicYear": "academic_year",
	"createdAt":    "created_at",
}

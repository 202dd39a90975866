package student

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/presence/core"
)

type Student struct {
	ID        int         `json:"id"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     null.String `json:"email"`
	ClassID   int         `json:"classId"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	FirstName string `json:"firstName" validate:"required,notblank"`
	LastName  string `json:"lastName" validate:"required,notblank"`
	Email     string `json:"email" validate:"omitempty,email"`
	ClassID   int    `json:"classId" validate:"required,gt=0"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Missing fields are left unchanged; an empty email string clears the email.
type UpdateStudent struct {
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     null.String `json:"email" validate:"omitempty,email"`
	ClassID   int         `json:"classId" validate:"gte=0"`
}

func (us *UpdateStudent) Validate(orig Student, validate *validator.Validate) error {
	if us.FirstName = core.CleanString(us.FirstName); us.FirstName == "" {
		us.FirstName = orig.FirstName
	}
	if us.LastName = core.CleanString(us.LastName); us.LastName == "" {
		us.LastName = orig.LastName
	}
	if us.ClassID == 0 {
		us.ClassID = orig.ClassID
	}
	switch email := core.CleanString(us.Email.String, true /* lower */); {
	case !us.Email.Valid:
		us.Email = orig.Email
	case email == "":
		us.Email = null.String{}
	default:
		us.Email = null.StringFrom(email)
	}
	return validate.Struct(us)
}

type QueryFilter struct {
	Search  string `query:"search"`
	ClassID int    `query:"classId"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

var OrderingFields = map[string]string{
	"id":        "id",
	"firstName": "first_name",
	"lastName":  "last_name",
	"email":     "email",
	"classId":   "class_id",
	"createdAt": "created_at",
}

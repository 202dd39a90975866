package subject

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/presence/core"
)

type Subject struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Name string `json:"name" validate:"required,notblank"`
	Code string `json:"code" validate:"required,notblank,max=32"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = cleanCode(ns.Code)
	return validate.Struct(ns)
}

// UpdateSubject defines what information may be provided to modify an existing Subject.
// Empty fields are left unchanged.
type UpdateSubject struct {
	Name string `json:"name"`
	Code string `json:"code" validate:"max=32"`
}

func (us *UpdateSubject) Validate(orig Subject, validate *validator.Validate) error {
	if us.Name = core.CleanString(us.Name); us.Name == "" {
		us.Name = orig.Name
	}
	if us.Code = cleanCode(us.Code); us.Code == "" {
		us.Code = orig.Code
	}
	return validate.Struct(us)
}

// codes are compared case-insensitively, they are stored upper-cased
func cleanCode(code string) string {
	return strings.ToUpper(core.CleanString(code))
}

type QueryFilter struct {
	Search string `query:"search"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

var OrderingFields = map[string]string{
	"id":        "id",
	"name":      "name",
	"code":      "code",
	"createdAt": "created_at",
}

package subject

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
)

var (
	ErrNotFound   = core.NewNotFoundError("Subject")
	ErrCodeExists = core.NewConflictError("a subject with this code already exists")
	ErrReferenced = core.NewConflictError("subject is used by existing sessions")
)

type (
	Repository interface {
		// CheckCodeUniqueness returns ErrCodeExists if another subject (not in excludedIDs) has this code.
		CheckCodeUniqueness(ctx context.Context, code string, excludedIDs ...int) error
		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		// QuerySubjects orders by creation date, newest first, unless ordering is given.
		// QueryFilter.Search does a case-insensitive match on one of Subject.Name or Subject.Code.
		QuerySubjects(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Subject, error)
		GetSubjectByID(ctx context.Context, id int) (Subject, error)
		UpdateSubject(ctx context.Context, sub Subject) (Subject, error)
		// DeleteSubject returns ErrReferenced if sessions use the subject.
		DeleteSubject(ctx context.Context, id int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, code string, excludedIDs ...int) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code, excludedIDs...); err != nil {
		if err == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return errors.Wrap(err, "checking code uniqueness")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	if err := svc.checkUniqueness(ctx, ns.Code); err != nil {
		return Subject{}, err
	}
	now := core.Now()
	return svc.repo.CreateSubject(ctx, Subject{
		Name:      ns.Name,
		Code:      ns.Code,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Subject, error) {
	ordering, err := core.CleanOrderings(ordering, OrderingFields)
	if err != nil {
		return nil, err
	}
	return svc.repo.QuerySubjects(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, orig Subject, us UpdateSubject) (Subject, error) {
	if us.Code != orig.Code {
		if err := svc.checkUniqueness(ctx, us.Code, orig.ID); err != nil {
			return Subject{}, err
		}
	}
	sub := orig
	sub.Name = us.Name
	sub.Code = us.Code
	sub.UpdatedAt = core.Now()
	return svc.repo.UpdateSubject(ctx, sub)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteSubject(ctx, id)
}

package class

import (
	"context"

	"github.com/trezcool/presence/core"
)

var ErrNotFound = core.NewNotFoundError("Class")

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		// QueryClasses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Class.Name.
		// Classes are ordered by creation date, newest first, unless ordering is given.
		QueryClasses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error)
		GetClassByID(ctx context.Context, id int) (Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		// DeleteClass deletes the class along with its students and sessions.
		DeleteClass(ctx context.Context, id int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewClass) (Class, error) {
	now := core.Now()
	return svc.repo.CreateClass(ctx, Class{
		Name:         nc.Name,
		Level:        nc.Level,
		AcademicYear: nc.AcademicYear,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error) {
	ordering, err := core.CleanOrderings(ordering, OrderingFields)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryClasses(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, orig Class, uc UpdateClass) (Class, error) {
	uc.Clean(orig)
	cls := orig
	cls.Name = uc.Name
	cls.Level = uc.Level
	cls.AcademicYear = uc.AcademicYear
	cls.UpdatedAt = core.Now()
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteClass(ctx, id)
}

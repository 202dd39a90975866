package student

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
)

var (
	ErrNotFound      = core.NewNotFoundError("Student")
	ErrClassNotExist = core.NewValidationError(
		errors.New("class does not exist"),
		core.FieldError{Field: "classId", Error: "class does not exist"},
	)
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, std Student) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Student.FirstName, Student.LastName or Student.Email.
		// Students are ordered by last name then first name unless ordering is given.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		GetStudentByID(ctx context.Context, id int) (Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		// DeleteStudent deletes the student along with its attendance records.
		DeleteStudent(ctx context.Context, id int) error
	}

	// ClassChecker tells whether a class exists.
	ClassChecker interface {
		ClassExists(ctx context.Context, id int) (bool, error)
	}

	Service struct {
		repo    Repository
		classes ClassChecker
	}
)

func NewService(repo Repository, classes ClassChecker) *Service {
	return &Service{repo: repo, classes: classes}
}

func (svc *Service) checkClass(ctx context.Context, classID int) error {
	ok, err := svc.classes.ClassExists(ctx, classID)
	if err != nil {
		return errors.Wrap(err, "checking class existence")
	}
	if !ok {
		return ErrClassNotExist
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := svc.checkClass(ctx, ns.ClassID); err != nil {
		return Student{}, err
	}

	now := core.Now()
	std := Student{
		FirstName: ns.FirstName,
		LastName:  ns.LastName,
		ClassID:   ns.ClassID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ns.Email != "" {
		std.Email.SetValid(ns.Email)
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	ordering, err := core.CleanOrderings(ordering, OrderingFields)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, orig Student, us UpdateStudent) (Student, error) {
	if us.ClassID != orig.ClassID {
		if err := svc.checkClass(ctx, us.ClassID); err != nil {
			return Student{}, err
		}
	}

	std := orig
	std.FirstName = us.FirstName
	std.LastName = us.LastName
	std.Email = us.Email
	std.ClassID = us.ClassID
	std.UpdatedAt = core.Now()
	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteStudent(ctx, id)
}

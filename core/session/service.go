package session

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
)

var (
	ErrNotFound        = core.NewNotFoundError("Session")
	ErrClassNotFound   = core.NewNotFoundError("Class")
	ErrSubjectNotFound = core.NewNotFoundError("Subject")
	ErrTeacherNotFound = core.NewNotFoundError("Teacher")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, sess Session) (Session, error)
		// QuerySessions applies AND operation on available QueryFilter fields.
		// Sessions are ordered by date then start time, newest first, unless ordering is given.
		QuerySessions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Detail, error)
		GetSessionByID(ctx context.Context, id int) (Session, error)
		GetSessionDetail(ctx context.Context, id int) (Detail, error)
	}

	// References tells whether the entities a session points to exist.
	References interface {
		ClassExists(ctx context.Context, id int) (bool, error)
		SubjectExists(ctx context.Context, id int) (bool, error)
		UserExists(ctx context.Context, id int) (bool, error)
	}

	Service struct {
		repo Repository
		refs References
	}
)

func NewService(repo Repository, refs References) *Service {
	return &Service{repo: repo, refs: refs}
}

// Create stores a validated NewSession.
// References are checked in order (class, subject, teacher); the first missing one is reported.
func (svc *Service) Create(ctx context.Context, ns NewSession) (Session, error) {
	date, start, end, err := ns.Times()
	if err != nil {
		return Session{}, err
	}

	checks := []struct {
		exists func(context.Context, int) (bool, error)
		id     int
		err    error
	}{
		{svc.refs.ClassExists, ns.ClassID, ErrClassNotFound},
		{svc.refs.SubjectExists, ns.SubjectID, ErrSubjectNotFound},
		{svc.refs.UserExists, ns.TeacherID, ErrTeacherNotFound},
	}
	for _, chk := range checks {
		ok, err := chk.exists(ctx, chk.id)
		if err != nil {
			return Session{}, errors.Wrap(err, "checking session references")
		}
		if !ok {
			return Session{}, chk.err
		}
	}

	now := core.Now()
	return svc.repo.CreateSession(ctx, Session{
		Date:      date.Format(core.DateLayout),
		StartTime: start,
		EndTime:   end,
		ClassID:   ns.ClassID,
		SubjectID: ns.SubjectID,
		TeacherID: ns.TeacherID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Detail, error) {
	if err := filter.Clean(); err != nil {
		return nil, err
	}
	ordering, err := core.CleanOrderings(ordering, OrderingFields)
	if err != nil {
		return nil, err
	}
	return svc.repo.QuerySessions(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Detail, error) {
	return svc.repo.GetSessionDetail(ctx, id)
}

package attendance

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/class"
	"github.com/trezcool/presence/core/session"
	"github.com/trezcool/presence/core/student"
)

var (
	ErrAlreadyRecorded = core.NewConflictError("attendance already recorded")
	ErrRosterChanged   = core.NewConflictError("class roster changed, please retry")
)

type (
	Repository interface {
		// ClassRoster returns the ids of the students of a class.
		ClassRoster(ctx context.Context, classID int) ([]int, error)
		// RecordBatch upserts the marks of a session in one transaction, keyed by (session, student).
		// The roster of classID is locked and checked again inside the transaction:
		// ErrRosterChanged is returned if a student left the class in the meantime,
		// ErrAlreadyRecorded if a concurrent insert for the same pair is detected.
		// Nothing is written unless every mark is.
		// Attendances are returned in the order of marks.
		RecordBatch(ctx context.Context, sessionID, classID int, marks []Mark) ([]Attendance, error)
		// QueryBySession orders by student last name then first name. Session refs are omitted.
		QueryBySession(ctx context.Context, sessionID int) ([]Record, error)
		// QueryByStudent orders by session date, newest first.
		QueryByStudent(ctx context.Context, studentID int) ([]Record, error)
		// QueryByClass orders by session date, newest first. A nil period means all dates.
		QueryByClass(ctx context.Context, classID int, period *Period) ([]Record, error)
		// QueryByPeriod orders by session date, oldest first.
		QueryByPeriod(ctx context.Context, period Period) ([]Record, error)
		// ClassSummary returns one summary per student of the class, ordered by last name then first name.
		ClassSummary(ctx context.Context, classID int, period *Period) ([]StudentSummary, error)
	}

	// References looks up the entities attendance records point to.
	References interface {
		GetSessionByID(ctx context.Context, id int) (session.Session, error)
		StudentExists(ctx context.Context, id int) (bool, error)
		ClassExists(ctx context.Context, id int) (bool, error)
	}

	Service struct {
		repo Repository
		refs References
	}
)

func NewService(repo Repository, refs References) *Service {
	return &Service{repo: repo, refs: refs}
}

// Record applies a batch of marks to a session.
// Checks run before any write and the first failure is returned:
// the session must exist, the marks must be well-formed,
// and every student must belong to the class of the session.
func (svc *Service) Record(ctx context.Context, nb NewBatch) ([]Attendance, error) {
	if nb.SessionID <= 0 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "sessionId", Error: "this field is required"})
	}
	sess, err := svc.refs.GetSessionByID(ctx, nb.SessionID)
	if err != nil {
		if err == session.ErrNotFound {
			return nil, err
		}
		return nil, errors.Wrap(err, "finding session")
	}

	if err = nb.validate(); err != nil {
		return nil, err
	}

	roster, err := svc.repo.ClassRoster(ctx, sess.ClassID)
	if err != nil {
		return nil, errors.Wrap(err, "loading class roster")
	}
	enrolled := make(map[int]struct{}, len(roster))
	for _, id := range roster {
		enrolled[id] = struct{}{}
	}
	for i, mark := range nb.Attendances {
		if _, ok := enrolled[mark.StudentID]; !ok {
			msg := fmt.Sprintf("student %d does not belong to the session's class", mark.StudentID)
			return nil, core.NewValidationError(
				errors.New(msg),
				core.FieldError{Field: fmt.Sprintf("attendances[%d].studentId", i), Error: msg},
			)
		}
	}

	return svc.repo.RecordBatch(ctx, sess.ID, sess.ClassID, nb.Attendances)
}

func (svc *Service) BySession(ctx context.Context, sessionID int) ([]Record, error) {
	if _, err := svc.refs.GetSessionByID(ctx, sessionID); err != nil {
		if err == session.ErrNotFound {
			return nil, err
		}
		return nil, errors.Wrap(err, "finding session")
	}
	return svc.repo.QueryBySession(ctx, sessionID)
}

func (svc *Service) ByStudent(ctx context.Context, studentID int) ([]Record, error) {
	if err := svc.mustExist(ctx, svc.refs.StudentExists, studentID, student.ErrNotFound); err != nil {
		return nil, err
	}
	return svc.repo.QueryByStudent(ctx, studentID)
}

// ByClass returns the records of the sessions of a class.
// start and end are optional, but if one is given both must be.
func (svc *Service) ByClass(ctx context.Context, classID int, start, end string) ([]Record, error) {
	period, err := optionalPeriod(start, end)
	if err != nil {
		return nil, err
	}
	if err = svc.mustExist(ctx, svc.refs.ClassExists, classID, class.ErrNotFound); err != nil {
		return nil, err
	}
	return svc.repo.QueryByClass(ctx, classID, period)
}

// ByPeriod returns the records of the sessions held between start and end (inclusive).
// The period is checked before anything is read.
func (svc *Service) ByPeriod(ctx context.Context, start, end string) ([]Record, error) {
	period, err := ParsePeriod(start, end)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryByPeriod(ctx, period)
}

func (svc *Service) ClassSummary(ctx context.Context, classID int, start, end string) ([]StudentSummary, error) {
	period, err := optionalPeriod(start, end)
	if err != nil {
		return nil, err
	}
	if err = svc.mustExist(ctx, svc.refs.ClassExists, classID, class.ErrNotFound); err != nil {
		return nil, err
	}
	return svc.repo.ClassSummary(ctx, classID, period)
}

func (svc *Service) mustExist(ctx context.Context, exists func(context.Context, int) (bool, error), id int, notFound error) error {
	ok, err := exists(ctx, id)
	if err != nil {
		return errors.Wrap(err, "checking existence")
	}
	if !ok {
		return notFound
	}
	return nil
}

func optionalPeriod(start, end string) (*Period, error) {
	if core.CleanString(start) == "" && core.CleanString(end) == "" {
		return nil, nil
	}
	period, err := ParsePeriod(start, end)
	if err != nil {
		return nil, err
	}
	return &period, nil
}

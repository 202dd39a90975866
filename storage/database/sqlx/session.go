package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/session"
)

const sessionColumns = "id, date, start_time, end_time, class_id, subject_id, teacher_id, created_at, updated_at"

const sessionDetailQuery = `
SELECT s.id, s.date, s.start_time, s.end_time, s.class_id, s.subject_id, s.teacher_id, s.created_at, s.updated_at,
       c.name AS class_name, sub.name AS subject_name, u.name AS teacher_name
FROM sessions s
JOIN classes c ON c.id = s.class_id
JOIN subjects sub ON sub.id = s.subject_id
JOIN users u ON u.id = s.teacher_id`

type sessionRow struct {
	ID        int       `db:"id"`
	Date      time.Time `db:"date"`
	StartTime time.Time `db:"start_time"`
	EndTime   time.Time `db:"end_time"`
	ClassID   int       `db:"class_id"`
	SubjectID int       `db:"subject_id"`
	TeacherID int       `db:"teacher_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r sessionRow) session() session.Session {
	return session.Session{
		ID:        r.ID,
		Date:      r.Date.Format(core.DateLayout),
		StartTime: r.StartTime.UTC(),
		EndTime:   r.EndTime.UTC(),
		ClassID:   r.ClassID,
		SubjectID: r.SubjectID,
		TeacherID: r.TeacherID,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type sessionDetailRow struct {
	sessionRow
	ClassName   string `db:"class_name"`
	SubjectName string `db:"subject_name"`
	TeacherName string `db:"teacher_name"`
}

func (r sessionDetailRow) detail() session.Detail {
	return session.Detail{
		Session: r.session(),
		Class:   core.Ref{ID: r.ClassID, Name: r.ClassName},
		Subject: core.Ref{ID: r.SubjectID, Name: r.SubjectName},
		Teacher: core.Ref{ID: r.TeacherID, Name: r.TeacherName},
	}
}

type sessionRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (repo sessionRepository) CreateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	const q = `
	INSERT INTO sessions (date, start_time, end_time, class_id, subject_id, teacher_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING ` + sessionColumns

	var row sessionRow
	err := repo.db.GetContext(ctx, &row, q,
		sess.Date, sess.StartTime, sess.EndTime, sess.ClassID, sess.SubjectID, sess.TeacherID, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		// a reference deleted after it was checked
		if pqCode(err) == foreignKeyViolation {
			return session.Session{}, core.NewConflictError("session references changed, please retry")
		}
		return session.Session{}, errors.Wrap(err, "inserting session")
	}
	return row.session(), nil
}

func (repo sessionRepository) QuerySessions(ctx context.Context, filter *session.QueryFilter, ordering []core.DBOrdering) ([]session.Detail, error) {
	var w where
	if filter != nil {
		if filter.ClassID > 0 {
			w.add("s.class_id = ?", filter.ClassID)
		}
		if filter.SubjectID > 0 {
			w.add("s.subject_id = ?", filter.SubjectID)
		}
		if filter.TeacherID > 0 {
			w.add("s.teacher_id = ?", filter.TeacherID)
		}
		if filter.From != "" {
			w.add("s.date >= ?", filter.From)
		}
		if filter.To != "" {
			w.add("s.date <= ?", filter.To)
		}
	}
	q := sessionDetailQuery + w.String() +
		" ORDER BY " + core.OrderByClause(ordering, "s.date DESC, s.start_time DESC, s.id DESC")

	var rows []sessionDetailRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	sessions := make([]session.Detail, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, r.detail())
	}
	return sessions, nil
}

func (repo sessionRepository) GetSessionByID(ctx context.Context, id int) (session.Session, error) {
	var row sessionRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+sessionColumns+" FROM sessions WHERE id = $1", id); err != nil {
		return session.Session{}, trapNoRowsErr(err, session.ErrNotFound, "finding session by id")
	}
	return row.session(), nil
}

func (repo sessionRepository) GetSessionDetail(ctx context.Context, id int) (session.Detail, error) {
	var row sessionDetailRow
	if err := repo.db.GetContext(ctx, &row, sessionDetailQuery+" WHERE s.id = $1", id); err != nil {
		return session.Detail{}, trapNoRowsErr(err, session.ErrNotFound, "finding session by id")
	}
	return row.detail(), nil
}

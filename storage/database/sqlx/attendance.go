package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/attendance"
	"github.com/trezcool/presence/storage/database"
)

const attendanceColumns = "id, session_id, student_id, status, created_at, updated_at"

const recordQuery = `
SELECT a.id, a.session_id, a.student_id, a.status, a.created_at, a.updated_at,
       st.first_name, st.last_name,
       s.date AS session_date, c.id AS class_id, c.name AS class_name, sub.id AS subject_id, sub.name AS subject_name
FROM attendances a
JOIN students st ON st.id = a.student_id
JOIN sessions s ON s.id = a.session_id
JOIN classes c ON c.id = s.class_id
JOIN subjects sub ON sub.id = s.subject_id`

type attendanceRow struct {
	ID        int       `db:"id"`
	SessionID int       `db:"session_id"`
	StudentID int       `db:"student_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r attendanceRow) attendance() attendance.Attendance {
	return attendance.Attendance{
		ID:        r.ID,
		SessionID: r.SessionID,
		StudentID: r.StudentID,
		Status:    attendance.Status(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type recordRow struct {
	attendanceRow
	FirstName   string    `db:"first_name"`
	LastName    string    `db:"last_name"`
	SessionDate time.Time `db:"session_date"`
	ClassID     int       `db:"class_id"`
	ClassName   string    `db:"class_name"`
	SubjectID   int       `db:"subject_id"`
	SubjectName string    `db:"subject_name"`
}

func (r recordRow) record(withSession bool) attendance.Record {
	rec := attendance.Record{
		Attendance: r.attendance(),
		Student:    attendance.StudentRef{ID: r.StudentID, FirstName: r.FirstName, LastName: r.LastName},
	}
	if withSession {
		rec.Session = &attendance.SessionRef{
			ID:      r.SessionID,
			Date:    r.SessionDate.Format(core.DateLayout),
			Class:   core.Ref{ID: r.ClassID, Name: r.ClassName},
			Subject: core.Ref{ID: r.SubjectID, Name: r.SubjectName},
		}
	}
	return rec
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo attendanceRepository) ClassRoster(ctx context.Context, classID int) ([]int, error) {
	var ids []int
	if err := repo.db.SelectContext(ctx, &ids, "SELECT id FROM students WHERE class_id = $1 ORDER BY id", classID); err != nil {
		return nil, errors.Wrap(err, "querying class roster")
	}
	return ids, nil
}

func (repo attendanceRepository) RecordBatch(ctx context.Context, sessionID, classID int, marks []attendance.Mark) ([]attendance.Attendance, error) {
	studentIDs := make([]int, 0, len(marks))
	for _, mark := range marks {
		studentIDs = append(studentIDs, mark.StudentID)
	}

	attendances := make([]attendance.Attendance, 0, len(marks))
	err := database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		// lock the roster rows so that no student leaves the class until commit
		var locked []int
		const lockQ = "SELECT id FROM students WHERE class_id = $1 AND id = ANY($2) FOR SHARE"
		if err := tx.SelectContext(ctx, &locked, lockQ, classID, pqIntArray(studentIDs)); err != nil {
			return errors.Wrap(err, "locking class roster")
		}
		if len(locked) != len(studentIDs) {
			return attendance.ErrRosterChanged
		}

		now := core.Now()
		for _, mark := range marks {
			att, err := upsertAttendance(ctx, tx, sessionID, mark, now)
			if err != nil {
				return err
			}
			attendances = append(attendances, att)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attendances, nil
}

// upsertAttendance updates the status of the (session, student) row or inserts it.
// An insert colliding with a concurrent one is reported as attendance.ErrAlreadyRecorded.
func upsertAttendance(ctx context.Context, tx *sqlx.Tx, sessionID int, mark attendance.Mark, now time.Time) (attendance.Attendance, error) {
	const updateQ = `
	UPDATE attendances SET status = $3, updated_at = $4
	WHERE session_id = $1 AND student_id = $2
	RETURNING ` + attendanceColumns
	const insertQ = `
	INSERT INTO attendances (session_id, student_id, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $4)
	RETURNING ` + attendanceColumns

	var row attendanceRow
	err := tx.GetContext(ctx, &row, updateQ, sessionID, mark.StudentID, mark.Status, now)
	if err == nil {
		return row.attendance(), nil
	}
	if err != sql.ErrNoRows {
		return attendance.Attendance{}, errors.Wrap(err, "updating attendance")
	}

	if err = tx.GetContext(ctx, &row, insertQ, sessionID, mark.StudentID, mark.Status, now); err != nil {
		if pqCode(err) == uniqueViolation {
			return attendance.Attendance{}, attendance.ErrAlreadyRecorded
		}
		return attendance.Attendance{}, errors.Wrap(err, "inserting attendance")
	}
	return row.attendance(), nil
}

func (repo attendanceRepository) queryRecords(ctx context.Context, w where, orderBy string, withSession bool) ([]attendance.Record, error) {
	var rows []recordRow
	if err := repo.db.SelectContext(ctx, &rows, recordQuery+w.String()+" ORDER BY "+orderBy, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record(withSession))
	}
	return records, nil
}

func (repo attendanceRepository) QueryBySession(ctx context.Context, sessionID int) ([]attendance.Record, error) {
	var w where
	w.add("a.session_id = ?", sessionID)
	return repo.queryRecords(ctx, w, "st.last_name, st.first_name, st.id", false)
}

func (repo attendanceRepository) QueryByStudent(ctx context.Context, studentID int) ([]attendance.Record, error) {
	var w where
	w.add("a.student_id = ?", studentID)
	return repo.queryRecords(ctx, w, "s.date DESC, s.start_time DESC, a.id", true)
}

func (repo attendanceRepository) QueryByClass(ctx context.Context, classID int, period *attendance.Period) ([]attendance.Record, error) {
	var w where
	w.add("s.class_id = ?", classID)
	if period != nil {
		w.add("s.date BETWEEN ? AND ?", period.StartDate(), period.EndDate())
	}
	return repo.queryRecords(ctx, w, "s.date DESC, s.start_time DESC, st.last_name, st.first_name, a.id", true)
}

func (repo attendanceRepository) QueryByPeriod(ctx context.Context, period attendance.Period) ([]attendance.Record, error) {
	var w where
	w.add("s.date BETWEEN ? AND ?", period.StartDate(), period.EndDate())
	return repo.queryRecords(ctx, w, "s.date ASC, s.start_time ASC, st.last_name, st.first_name, a.id", true)
}

func (repo attendanceRepository) ClassSummary(ctx context.Context, classID int, period *attendance.Period) ([]attendance.StudentSummary, error) {
	var w where
	w.add("s.class_id = ?", classID)
	if period != nil {
		w.add("s.date BETWEEN ? AND ?", period.StartDate(), period.EndDate())
	}

	q := `
	SELECT st.id, st.first_name, st.last_name,
	       COUNT(*) FILTER (WHERE att.status = 'PRESENT') AS present,
	       COUNT(*) FILTER (WHERE att.status = 'ABSENT')  AS absent,
	       COUNT(*) FILTER (WHERE att.status = 'LATE')    AS late,
	       COUNT(*) FILTER (WHERE att.status = 'EXCUSED') AS excused,
	       COUNT(att.id)                                  AS total
	FROM students st
	LEFT JOIN (
	    SELECT a.id, a.student_id, a.status
	    FROM attendances a
	    JOIN sessions s ON s.id = a.session_id` + w.String() + `
	) att ON att.student_id = st.id
	WHERE st.class_id = $1
	GROUP BY st.id, st.first_name, st.last_name
	ORDER BY st.last_name, st.first_name, st.id`

	var rows []struct {
		ID        int    `db:"id"`
		FirstName string `db:"first_name"`
		LastName  string `db:"last_name"`
		Present   int    `db:"present"`
		Absent    int    `db:"absent"`
		Late      int    `db:"late"`
		Excused   int    `db:"excused"`
		Total     int    `db:"total"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "summarizing class attendance")
	}

	summaries := make([]attendance.StudentSummary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, attendance.StudentSummary{
			Student: attendance.StudentRef{ID: r.ID, FirstName: r.FirstName, LastName: r.LastName},
			Present: r.Present,
			Absent:  r.Absent,
			Late:    r.Late,
			Excused: r.Excused,
			Total:   r.Total,
		})
	}
	return summaries, nil
}

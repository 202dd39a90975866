package inmemdb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/presence/core/attendance"
	"github.com/trezcool/presence/core/session"
	"github.com/trezcool/presence/core/user"
	testutil "github.com/trezcool/presence/tests"
)

type fixture struct {
	db       *DB
	sess     session.Session
	students []int
}

func newFixture(t *testing.T, nStudents int) fixture {
	db := Open()
	cls := testutil.CreateClass(t, db, "6A", "6", "2024-2025")
	sub := testutil.CreateSubject(t, db, "Maths", "MATH")
	tchr := testutil.CreateUser(t, db, "Teacher", "teacher@school.test", "", user.RoleTeacher, user.StatusActive)
	sess := testutil.CreateSession(t, db, "2024-09-02", "08:00", "09:00", cls.ID, sub.ID, tchr.ID)

	f := fixture{db: db, sess: sess}
	for i := 0; i < nStudents; i++ {
		std := testutil.CreateStudent(t, db, "Student", string(rune('A'+i)), "", cls.ID)
		f.students = append(f.students, std.ID)
	}
	return f
}

func TestRecordBatch_Atomicity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)

	marks := make([]attendance.Mark, 0, len(f.students))
	for _, id := range f.students {
		marks = append(marks, attendance.Mark{StudentID: id, Status: attendance.StatusPresent})
	}

	errForced := errors.New("forced failure")
	f.db.writeHook = func(i int, _ attendance.Mark) error {
		if i == len(marks)-1 {
			return errForced
		}
		return nil
	}

	_, err := f.db.RecordBatch(ctx, f.sess.ID, f.sess.ClassID, marks)
	assert.Equal(t, errForced, err)

	records, err := f.db.QueryBySession(ctx, f.sess.ID)
	require.NoError(t, err)
	assert.Empty(t, records, "no write of a failed batch must be visible")

	// the store is still usable once the hook is removed
	f.db.writeHook = nil
	atts, err := f.db.RecordBatch(ctx, f.sess.ID, f.sess.ClassID, marks)
	require.NoError(t, err)
	assert.Len(t, atts, len(marks))
}

func TestRecordBatch_Upsert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	s1, s2 := f.students[0], f.students[1]

	first, err := f.db.RecordBatch(ctx, f.sess.ID, f.sess.ClassID, []attendance.Mark{
		{StudentID: s1, Status: attendance.StatusPresent},
		{StudentID: s2, Status: attendance.StatusAbsent},
	})
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := f.db.RecordBatch(ctx, f.sess.ID, f.sess.ClassID, []attendance.Mark{
		{StudentID: s1, Status: attendance.StatusLate},
	})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID, "the existing row is updated")
	assert.Equal(t, attendance.StatusLate, second[0].Status)
	assert.Equal(t, first[0].CreatedAt, second[0].CreatedAt)

	records, err := f.db.QueryBySession(ctx, f.sess.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	got := map[int]attendance.Status{}
	for _, rec := range records {
		got[rec.StudentID] = rec.Status
	}
	assert.Equal(t, map[int]attendance.Status{s1: attendance.StatusLate, s2: attendance.StatusAbsent}, got)
}

func TestRecordBatch_RosterChanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	other := testutil.CreateClass(t, f.db, "6B", "6", "2024-2025")

	// the student moved to another class after the roster was checked
	std, err := f.db.GetStudentByID(ctx, f.students[1])
	require.NoError(t, err)
	std.ClassID = other.ID
	_, err = f.db.UpdateStudent(ctx, std)
	require.NoError(t, err)

	_, err = f.db.RecordBatch(ctx, f.sess.ID, f.sess.ClassID, []attendance.Mark{
		{StudentID: f.students[0], Status: attendance.StatusPresent},
		{StudentID: f.students[1], Status: attendance.StatusPresent},
	})
	assert.Equal(t, attendance.ErrRosterChanged, err)

	records, err := f.db.QueryBySession(ctx, f.sess.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeleteClass_Cascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	_, err := f.db.RecordBatch(ctx, f.sess.ID, f.sess.ClassID, []attendance.Mark{
		{StudentID: f.students[0], Status: attendance.StatusPresent},
	})
	require.NoError(t, err)

	require.NoError(t, f.db.DeleteClass(ctx, f.sess.ClassID))

	_, err = f.db.GetSessionByID(ctx, f.sess.ID)
	assert.Equal(t, session.ErrNotFound, err)
	ok, err := f.db.StudentExists(ctx, f.students[0])
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, f.db.t.attendances)
}

//go:build integration

package sqlxrepos

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/attendance"
	"github.com/trezcool/presence/core/class"
	"github.com/trezcool/presence/core/session"
	"github.com/trezcool/presence/core/student"
	"github.com/trezcool/presence/core/subject"
	"github.com/trezcool/presence/core/user"
	"github.com/trezcool/presence/storage/database"
	testutil "github.com/trezcool/presence/tests"
)

var testDB *sqlx.DB

func TestMain(m *testing.M) {
	os.Exit(runWithPostgres(m))
}

func runWithPostgres(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("presence"),
		postgres.WithUsername("presence"),
		postgres.WithPassword("presence"),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "starting postgres: %v\n", err)
		return 1
	}
	defer func() { _ = pg.Terminate(context.Background()) }()

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres uri: %v\n", err)
		return 1
	}
	if testDB, err = sqlx.Open("postgres", uri); err != nil {
		fmt.Fprintf(os.Stderr, "opening database: %v\n", err)
		return 1
	}
	defer func() { _ = testDB.Close() }()

	if err = database.Ping(ctx, testDB.DB, 20); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	if err = database.Migrate(ctx, testDB.DB); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return m.Run()
}

func newStore(t *testing.T) *Store {
	t.Helper()
	const q = "TRUNCATE attendances, sessions, students, subjects, classes, users RESTART IDENTITY CASCADE"
	_, err := testDB.Exec(q)
	require.NoError(t, err)
	return NewStore(testDB)
}

type fixture struct {
	store    *Store
	sess     session.Session
	students []int
}

func newFixture(t *testing.T, nStudents int) fixture {
	store := newStore(t)
	cls := testutil.CreateClass(t, store, "6A", "6", "2024-2025")
	sub := testutil.CreateSubject(t, store, "Maths", "MATH")
	tchr := testutil.CreateUser(t, store, "Teacher", "teacher@school.test", "", user.RoleTeacher, user.StatusActive)
	sess := testutil.CreateSession(t, store, "2024-09-02", "08:00", "09:00", cls.ID, sub.ID, tchr.ID)

	f := fixture{store: store, sess: sess}
	for i := 0; i < nStudents; i++ {
		std := testutil.CreateStudent(t, store, "Student", string(rune('A'+i)), "", cls.ID)
		f.students = append(f.students, std.ID)
	}
	return f
}

func presentMarks(ids []int) []attendance.Mark {
	marks := make([]attendance.Mark, 0, len(ids))
	for _, id := range ids {
		marks = append(marks, attendance.Mark{StudentID: id, Status: attendance.StatusPresent})
	}
	return marks
}

func TestRecordBatch_Atomicity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)
	last := f.students[len(f.students)-1]

	// make the last write of the batch fail inside the transaction
	_, err := testDB.Exec(fmt.Sprintf(`
	CREATE FUNCTION fail_attendance() RETURNS trigger AS $$
	BEGIN
		IF NEW.student_id = %d THEN
			RAISE EXCEPTION 'forced failure';
		END IF;
		RETURN NEW;
	END
	$$ LANGUAGE plpgsql`, last))
	require.NoError(t, err)
	_, err = testDB.Exec("CREATE TRIGGER fail_attendance BEFORE INSERT OR UPDATE ON attendances FOR EACH ROW EXECUTE FUNCTION fail_attendance()")
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = testDB.Exec("DROP TRIGGER IF EXISTS fail_attendance ON attendances")
		_, _ = testDB.Exec("DROP FUNCTION IF EXISTS fail_attendance()")
	})

	_, err = f.store.RecordBatch(ctx, f.sess.ID, f.sess.ClassID, presentMarks(f.students))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forced failure")

	records, err := f.store.QueryBySession(ctx, f.sess.ID)
	require.NoError(t, err)
	assert.Empty(t, records, "no write of a failed batch must be visible")

	_, err = testDB.Exec("DROP TRIGGER fail_attendance ON attendances")
	require.NoError(t, err)
	atts, err := f.store.RecordBatch(ctx, f.sess.ID, f.sess.ClassID, presentMarks(f.students))
	require.NoError(t, err)
	assert.Len(t, atts, len(f.students))
}

func TestRecordBatch_Upsert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	s1, s2 := f.students[0], f.students[1]

	first, err := f.store.RecordBatch(ctx, f.sess.ID, f.sess.ClassID, []attendance.Mark{
		{StudentID: s1, Status: attendance.StatusPresent},
		{StudentID: s2, Status: attendance.StatusAbsent},
	})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, s1, first[0].StudentID, "results follow the input order")

	second, err := f.store.RecordBatch(ctx, f.sess.ID, f.sess.ClassID, []attendance.Mark{
		{StudentID: s1, Status: attendance.StatusLate},
	})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID, "the existing row is updated")
	assert.Equal(t, attendance.StatusLate, second[0].Status)
	assert.True(t, first[0].CreatedAt.Equal(second[0].CreatedAt))

	var count int
	require.NoError(t, testDB.Get(&count, "SELECT count(*) FROM attendances WHERE session_id = $1", f.sess.ID))
	assert.Equal(t, 2, count)

	records, err := f.store.QueryBySession(ctx, f.sess.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, attendance.StatusLate, records[0].Status)
	assert.Equal(t, "A", records[0].Student.LastName)
	assert.Equal(t, attendance.StatusAbsent, records[1].Status)
	assert.Nil(t, records[0].Session)
}

func TestRecordBatch_RosterChanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	other := testutil.CreateClass(t, f.store, "6B", "6", "2024-2025")

	std, err := f.store.GetStudentByID(ctx, f.students[1])
	require.NoError(t, err)
	std.ClassID = other.ID
	_, err = f.store.UpdateStudent(ctx, std)
	require.NoError(t, err)

	_, err = f.store.RecordBatch(ctx, f.sess.ID, f.sess.ClassID, presentMarks(f.students))
	assert.Equal(t, attendance.ErrRosterChanged, err)

	records, err := f.store.QueryBySession(ctx, f.sess.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAttendanceReads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	later := testutil.CreateSession(t, f.store, "2024-09-09", "08:00", "09:00", f.sess.ClassID, f.sess.SubjectID, f.sess.TeacherID)
	for _, sessID := range []int{f.sess.ID, later.ID} {
		_, err := f.store.RecordBatch(ctx, sessID, f.sess.ClassID, []attendance.Mark{
			{StudentID: f.students[0], Status: attendance.StatusPresent},
			{StudentID: f.students[1], Status: attendance.StatusExcused},
		})
		require.NoError(t, err)
	}

	byStudent, err := f.store.QueryByStudent(ctx, f.students[0])
	require.NoError(t, err)
	require.Len(t, byStudent, 2)
	assert.Equal(t, "2024-09-09", byStudent[0].Session.Date)
	assert.Equal(t, core.Ref{ID: f.sess.ClassID, Name: "6A"}, byStudent[0].Session.Class)
	assert.Equal(t, "Maths", byStudent[0].Session.Subject.Name)

	period, err := attendance.ParsePeriod("2024-09-01", "2024-09-02")
	require.NoError(t, err)
	byClass, err := f.store.QueryByClass(ctx, f.sess.ClassID, &period)
	require.NoError(t, err)
	assert.Len(t, byClass, 2)

	byPeriod, err := f.store.QueryByPeriod(ctx, period)
	require.NoError(t, err)
	assert.Len(t, byPeriod, 2)

	summaries, err := f.store.ClassSummary(ctx, f.sess.ClassID, nil)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, 2, summaries[0].Present)
	assert.Equal(t, 2, summaries[1].Excused)
	assert.Equal(t, 2, summaries[1].Total)
}

func TestConstraintErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.store.CreateUser(ctx, user.User{
			Name:      "Other",
			Email:     "teacher@school.test",
			Role:      user.RoleTeacher,
			Status:    user.StatusActive,
			CreatedAt: core.Now(),
			UpdatedAt: core.Now(),
		})
		assert.Equal(t, user.ErrEmailExists, err)
	})

	t.Run("student of an unknown class", func(t *testing.T) {
		_, err := f.store.CreateStudent(ctx, student.Student{
			FirstName: "Ghost",
			LastName:  "Student",
			ClassID:   9999,
			CreatedAt: core.Now(),
			UpdatedAt: core.Now(),
		})
		assert.Equal(t, student.ErrClassNotExist, err)
	})

	t.Run("subject used by a session", func(t *testing.T) {
		assert.Equal(t, subject.ErrReferenced, f.store.DeleteSubject(ctx, f.sess.SubjectID))
	})

	t.Run("teacher of a session", func(t *testing.T) {
		assert.Equal(t, user.ErrReferenced, f.store.DeleteUser(ctx, f.sess.TeacherID))
	})

	t.Run("not found", func(t *testing.T) {
		_, err := f.store.GetClassByID(ctx, 9999)
		assert.Equal(t, class.ErrNotFound, err)
		_, err = f.store.GetSessionByID(ctx, 9999)
		assert.Equal(t, session.ErrNotFound, err)
		assert.Equal(t, student.ErrNotFound, f.store.DeleteStudent(ctx, 9999))
	})

	t.Run("class deletion cascades", func(t *testing.T) {
		_, err := f.store.RecordBatch(ctx, f.sess.ID, f.sess.ClassID, presentMarks(f.students))
		require.NoError(t, err)
		require.NoError(t, f.store.DeleteClass(ctx, f.sess.ClassID))

		ok, err := f.store.StudentExists(ctx, f.students[0])
		require.NoError(t, err)
		assert.False(t, ok)
		var count int
		require.NoError(t, testDB.Get(&count, "SELECT count(*) FROM attendances"))
		assert.Zero(t, count)
	})
}

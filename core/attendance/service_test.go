package attendance_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/attendance"
	"github.com/trezcool/presence/core/class"
	"github.com/trezcool/presence/core/session"
	"github.com/trezcool/presence/core/student"
	"github.com/trezcool/presence/core/user"
	inmemdb "github.com/trezcool/presence/storage/database/inmem"
	testutil "github.com/trezcool/presence/tests"
)

// spyRepo counts the period queries reaching the store.
type spyRepo struct {
	attendance.Repository
	periodQueries int
}

func (r *spyRepo) QueryByPeriod(ctx context.Context, period attendance.Period) ([]attendance.Record, error) {
	r.periodQueries++
	return r.Repository.QueryByPeriod(ctx, period)
}

type env struct {
	db   *inmemdb.DB
	repo *spyRepo
	svc  *attendance.Service
	sess session.Session
	s1   int
	s2   int
}

func setup(t *testing.T) env {
	db := inmemdb.Open()
	cls := testutil.CreateClass(t, db, "CM2", "CM2", "2024-2025")
	sub := testutil.CreateSubject(t, db, "History", "HIST")
	tchr := testutil.CreateUser(t, db, "Mrs Teacher", "teacher@school.test", "", user.RoleTeacher, user.StatusActive)
	sess := testutil.CreateSession(t, db, "2024-10-07", "10:00", "11:00", cls.ID, sub.ID, tchr.ID)
	s1 := testutil.CreateStudent(t, db, "Ada", "Lovelace", "", cls.ID)
	s2 := testutil.CreateStudent(t, db, "Alan", "Turing", "", cls.ID)

	repo := &spyRepo{Repository: db}
	return env{
		db:   db,
		repo: repo,
		svc:  attendance.NewService(repo, db),
		sess: sess,
		s1:   s1.ID,
		s2:   s2.ID,
	}
}

func fieldOf(t *testing.T, err error) string {
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "expected a validation error, got %v", err)
	require.NotEmpty(t, vErr.Fields)
	return vErr.Fields[0].Field
}

func TestService_Record(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	outsider := testutil.CreateStudent(t, e.db, "Grace", "Hopper", "",
		testutil.CreateClass(t, e.db, "CM1", "CM1", "2024-2025").ID)

	tests := []struct {
		name      string
		batch     attendance.NewBatch
		wantErr   error
		wantField string
	}{
		{
			name:      "missing session id",
			batch:     attendance.NewBatch{Attendances: []attendance.Mark{{StudentID: e.s1, Status: "PRESENT"}}},
			wantField: "sessionId",
		},
		{
			name:    "unknown session",
			batch:   attendance.NewBatch{SessionID: 9999, Attendances: []attendance.Mark{{StudentID: e.s1, Status: "PRESENT"}}},
			wantErr: session.ErrNotFound,
		},
		{
			name:    "unknown session is reported before a malformed batch",
			batch:   attendance.NewBatch{SessionID: 9999},
			wantErr: session.ErrNotFound,
		},
		{
			name:      "empty batch",
			batch:     attendance.NewBatch{SessionID: e.sess.ID},
			wantField: "attendances",
		},
		{
			name: "missing student id",
			batch: attendance.NewBatch{SessionID: e.sess.ID, Attendances: []attendance.Mark{
				{StudentID: e.s1, Status: "PRESENT"},
				{Status: "ABSENT"},
			}},
			wantField: "attendances[1].studentId",
		},
		{
			name: "invalid status",
			batch: attendance.NewBatch{SessionID: e.sess.ID, Attendances: []attendance.Mark{
				{StudentID: e.s1, Status: "SICK"},
			}},
			wantField: "attendances[0].status",
		},
		{
			name: "duplicate student",
			batch: attendance.NewBatch{SessionID: e.sess.ID, Attendances: []attendance.Mark{
				{StudentID: e.s1, Status: "PRESENT"},
				{StudentID: e.s1, Status: "LATE"},
			}},
			wantField: "attendances[1].studentId",
		},
		{
			name: "student out of roster",
			batch: attendance.NewBatch{SessionID: e.sess.ID, Attendances: []attendance.Mark{
				{StudentID: e.s1, Status: "PRESENT"},
				{StudentID: outsider.ID, Status: "PRESENT"},
			}},
			wantField: "attendances[1].studentId",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			atts, err := e.svc.Record(ctx, tt.batch)
			assert.Nil(t, atts)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
			} else {
				assert.Equal(t, tt.wantField, fieldOf(t, err))
			}

			records, err := e.db.QueryBySession(ctx, e.sess.ID)
			require.NoError(t, err)
			assert.Empty(t, records, "a rejected batch writes nothing")
		})
	}
}

func TestService_Record_RosterMessage(t *testing.T) {
	e := setup(t)
	_, err := e.svc.Record(context.Background(), attendance.NewBatch{
		SessionID:   e.sess.ID,
		Attendances: []attendance.Mark{{StudentID: 99, Status: attendance.StatusPresent}},
	})
	require.Error(t, err)
	assert.Equal(t, "student 99 does not belong to the session's class", err.Error())
}

func TestService_Record_Scenario(t *testing.T) {
	ctx := context.Background()
	e := setup(t)

	atts, err := e.svc.Record(ctx, attendance.NewBatch{SessionID: e.sess.ID, Attendances: []attendance.Mark{
		{StudentID: e.s1, Status: attendance.StatusPresent},
		{StudentID: e.s2, Status: attendance.StatusAbsent},
	}})
	require.NoError(t, err)
	require.Len(t, atts, 2)
	assert.Equal(t, e.s1, atts[0].StudentID, "results follow the input order")
	assert.Equal(t, e.s2, atts[1].StudentID)

	atts, err = e.svc.Record(ctx, attendance.NewBatch{SessionID: e.sess.ID, Attendances: []attendance.Mark{
		{StudentID: e.s1, Status: " LATE "},
	}})
	require.NoError(t, err)
	require.Len(t, atts, 1)
	assert.Equal(t, attendance.StatusLate, atts[0].Status)

	// re-submitting the same batch is idempotent
	_, err = e.svc.Record(ctx, attendance.NewBatch{SessionID: e.sess.ID, Attendances: []attendance.Mark{
		{StudentID: e.s1, Status: attendance.StatusLate},
	}})
	require.NoError(t, err)

	records, err := e.svc.BySession(ctx, e.sess.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// ordered by last name
	assert.Equal(t, attendance.StudentRef{ID: e.s1, FirstName: "Ada", LastName: "Lovelace"}, records[0].Student)
	assert.Equal(t, attendance.StatusLate, records[0].Status)
	assert.Equal(t, attendance.StudentRef{ID: e.s2, FirstName: "Alan", LastName: "Turing"}, records[1].Student)
	assert.Equal(t, attendance.StatusAbsent, records[1].Status)
	assert.Nil(t, records[0].Session)
}

func TestService_Reads(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	later := testutil.CreateSession(t, e.db, "2024-10-14", "10:00", "11:00", e.sess.ClassID, e.sess.SubjectID, e.sess.TeacherID)

	for _, sessID := range []int{e.sess.ID, later.ID} {
		_, err := e.svc.Record(ctx, attendance.NewBatch{SessionID: sessID, Attendances: []attendance.Mark{
			{StudentID: e.s1, Status: attendance.StatusPresent},
			{StudentID: e.s2, Status: attendance.StatusExcused},
		}})
		require.NoError(t, err)
	}

	t.Run("by student, newest first", func(t *testing.T) {
		records, err := e.svc.ByStudent(ctx, e.s1)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "2024-10-14", records[0].Session.Date)
		assert.Equal(t, "2024-10-07", records[1].Session.Date)
		assert.Equal(t, "CM2", records[0].Session.Class.Name)
		assert.Equal(t, "History", records[0].Session.Subject.Name)
	})

	t.Run("by class, newest first", func(t *testing.T) {
		records, err := e.svc.ByClass(ctx, e.sess.ClassID, "", "")
		require.NoError(t, err)
		require.Len(t, records, 4)
		assert.Equal(t, "2024-10-14", records[0].Session.Date)
		assert.Equal(t, "2024-10-07", records[3].Session.Date)
	})

	t.Run("by class within a period", func(t *testing.T) {
		records, err := e.svc.ByClass(ctx, e.sess.ClassID, "2024-10-01", "2024-10-08")
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("by period, oldest first, inclusive", func(t *testing.T) {
		records, err := e.svc.ByPeriod(ctx, "2024-10-07", "2024-10-14")
		require.NoError(t, err)
		require.Len(t, records, 4)
		assert.Equal(t, "2024-10-07", records[0].Session.Date)
		assert.Equal(t, "2024-10-14", records[3].Session.Date)
	})

	t.Run("summary", func(t *testing.T) {
		summaries, err := e.svc.ClassSummary(ctx, e.sess.ClassID, "", "")
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, 2, summaries[0].Present)
		assert.Equal(t, 2, summaries[0].Total)
		assert.Equal(t, 2, summaries[1].Excused)
	})

	t.Run("unknown parents", func(t *testing.T) {
		_, err := e.svc.BySession(ctx, 9999)
		assert.Equal(t, session.ErrNotFound, err)
		_, err = e.svc.ByStudent(ctx, 9999)
		assert.Equal(t, student.ErrNotFound, err)
		_, err = e.svc.ByClass(ctx, 9999, "", "")
		assert.Equal(t, class.ErrNotFound, err)
		_, err = e.svc.ClassSummary(ctx, 9999, "", "")
		assert.Equal(t, class.ErrNotFound, err)
	})
}

func TestService_ByPeriod_Invalid(t *testing.T) {
	e := setup(t)
	tests := []struct {
		name       string
		start, end string
		wantField  string
	}{
		{name: "missing start", end: "2024-10-01", wantField: "start"},
		{name: "missing end", start: "2024-10-01", wantField: "end"},
		{name: "malformed start", start: "01/10/2024", end: "2024-10-31", wantField: "start"},
		{name: "malformed end", start: "2024-10-01", end: "2024-10-32", wantField: "end"},
		{name: "start after end", start: "2024-10-31", end: "2024-10-01", wantField: "start"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.ByPeriod(context.Background(), tt.start, tt.end)
			assert.Equal(t, tt.wantField, fieldOf(t, err))
		})
	}
	assert.Zero(t, e.repo.periodQueries, "no query may run for an invalid period")
}

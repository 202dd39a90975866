package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/session"
	"github.com/trezcool/presence/core/user"
	inmemdb "github.com/trezcool/presence/storage/database/inmem"
	testutil "github.com/trezcool/presence/tests"
)

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	svc := session.NewService(db, db)

	cls := testutil.CreateClass(t, db, "5B", "5", "2024-2025")
	sub := testutil.CreateSubject(t, db, "Physics", "PHY")
	tchr := testutil.CreateUser(t, db, "Marie", "marie@school.test", "", user.RoleTeacher, user.StatusActive)

	valid := session.NewSession{
		Date:      "2024-11-04",
		StartTime: "14:00",
		EndTime:   "15:30",
		ClassID:   cls.ID,
		SubjectID: sub.ID,
		TeacherID: tchr.ID,
	}
	with := func(modify func(ns *session.NewSession)) session.NewSession {
		ns := valid
		modify(&ns)
		return ns
	}

	tests := []struct {
		name      string
		ns        session.NewSession
		wantErr   error
		wantField string
	}{
		{name: "malformed date", ns: with(func(ns *session.NewSession) { ns.Date = "04/11/2024" }), wantField: "date"},
		{name: "malformed start", ns: with(func(ns *session.NewSession) { ns.StartTime = "2pm" }), wantField: "startTime"},
		{name: "end before start", ns: with(func(ns *session.NewSession) { ns.EndTime = "13:00" }), wantField: "endTime"},
		{
			name: "class is checked first",
			ns: with(func(ns *session.NewSession) {
				ns.ClassID, ns.SubjectID, ns.TeacherID = 9999, 9999, 9999
			}),
			wantErr: session.ErrClassNotFound,
		},
		{
			name:    "unknown subject",
			ns:      with(func(ns *session.NewSession) { ns.SubjectID, ns.TeacherID = 9999, 9999 }),
			wantErr: session.ErrSubjectNotFound,
		},
		{name: "unknown teacher", ns: with(func(ns *session.NewSession) { ns.TeacherID = 9999 }), wantErr: session.ErrTeacherNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.ns)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
			} else {
				vErr, ok := errors.Cause(err).(*core.ValidationError)
				require.True(t, ok, "expected a validation error, got %v", err)
				assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
			}
		})
	}

	sessions, err := svc.Query(ctx, &session.QueryFilter{}, nil)
	require.NoError(t, err)
	assert.Empty(t, sessions, "failed creations must not leave sessions behind")

	t.Run("valid", func(t *testing.T) {
		sess, err := svc.Create(ctx, valid)
		require.NoError(t, err)
		assert.NotZero(t, sess.ID)
		assert.Equal(t, "2024-11-04", sess.Date)
		assert.Equal(t, time.Date(2024, 11, 4, 14, 0, 0, 0, time.UTC), sess.StartTime)
		assert.Equal(t, time.Date(2024, 11, 4, 15, 30, 0, 0, time.UTC), sess.EndTime)

		detail, err := svc.GetByID(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, core.Ref{ID: cls.ID, Name: "5B"}, detail.Class)
		assert.Equal(t, core.Ref{ID: sub.ID, Name: "Physics"}, detail.Subject)
		assert.Equal(t, core.Ref{ID: tchr.ID, Name: "Marie"}, detail.Teacher)
	})
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	svc := session.NewService(db, db)

	cls := testutil.CreateClass(t, db, "5B", "5", "2024-2025")
	sub := testutil.CreateSubject(t, db, "Physics", "PHY")
	tchr := testutil.CreateUser(t, db, "Marie", "marie@school.test", "", user.RoleTeacher, user.StatusActive)
	first := testutil.CreateSession(t, db, "2024-11-04", "08:00", "09:00", cls.ID, sub.ID, tchr.ID)
	second := testutil.CreateSession(t, db, "2024-11-05", "08:00", "09:00", cls.ID, sub.ID, tchr.ID)

	tests := []struct {
		name     string
		filter   session.QueryFilter
		ordering []core.DBOrdering
		wantIDs  []int
		wantErr  bool
	}{
		{name: "newest first by default", wantIDs: []int{second.ID, first.ID}},
		{name: "ordered by date asc", ordering: []core.DBOrdering{{Field: "date", Ascending: true}}, wantIDs: []int{first.ID, second.ID}},
		{name: "from", filter: session.QueryFilter{From: "2024-11-05"}, wantIDs: []int{second.ID}},
		{name: "to", filter: session.QueryFilter{To: "2024-11-04"}, wantIDs: []int{first.ID}},
		{name: "other class", filter: session.QueryFilter{ClassID: cls.ID + 1000}, wantIDs: []int{}},
		{name: "from after to", filter: session.QueryFilter{From: "2024-11-05", To: "2024-11-04"}, wantErr: true},
		{name: "unknown ordering", ordering: []core.DBOrdering{{Field: "teacher"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions, err := svc.Query(ctx, &tt.filter, tt.ordering)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			ids := make([]int, 0, len(sessions))
			for _, sess := range sessions {
				ids = append(ids, sess.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

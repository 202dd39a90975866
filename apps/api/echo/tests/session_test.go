package tests

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/presence/core/attendance"
	"github.com/trezcool/presence/core/class"
	"github.com/trezcool/presence/core/session"
	"github.com/trezcool/presence/core/student"
	"github.com/trezcool/presence/core/subject"
	testutil "github.com/trezcool/presence/tests"
)

func TestSessionAPI_Create(t *testing.T) {
	e := setup(t)
	adminToken := getToken(t, e.conf, e.admin)
	cls := testutil.CreateClass(t, e.db, "CM2", "CM2", "2024-2025")
	sub := testutil.CreateSubject(t, e.db, "History", "HIST")

	body := func(subjectID int, start, end string) []byte {
		return []byte(`{"date": "2024-10-07", "startTime": "` + start + `", "endTime": "` + end + `",` +
			` "classId": ` + strconv.Itoa(cls.ID) + `, "subjectId": ` + strconv.Itoa(subjectID) +
			`, "teacherId": ` + strconv.Itoa(e.teacher.ID) + `}`)
	}

	tests := []httpTest{
		{
			name:     "teacher cannot schedule",
			method:   http.MethodPost,
			path:     "/api/sessions",
			body:     body(sub.ID, "10:00", "11:00"),
			token:    getToken(t, e.conf, e.teacher),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "unknown subject",
			method:   http.MethodPost,
			path:     "/api/sessions",
			body:     body(9999, "10:00", "11:00"),
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "Subject not found"}),
		},
		{
			name:     "end before start",
			method:   http.MethodPost,
			path:     "/api/sessions",
			body:     body(sub.ID, "11:00", "10:00"),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"endTime": "endTime must be after startTime"}),
		},
		{
			name:     "no session was created",
			method:   http.MethodGet,
			path:     "/api/sessions",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
		{
			name:     "invalid filter",
			method:   http.MethodGet,
			path:     "/api/sessions?classId=abc",
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid query parameters"}),
		},
	}
	e.run(t, tests)

	t.Run("valid", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/api/sessions", adminToken, body(sub.ID, "10:00", "11:00"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var sess session.Session
		unmarshal(t, rec, &sess)
		assert.NotZero(t, sess.ID)

		rec = e.do(http.MethodGet, "/api/sessions/"+strconv.Itoa(sess.ID), getToken(t, e.conf, e.teacher))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var detail session.Detail
		unmarshal(t, rec, &detail)
		assert.Equal(t, "CM2", detail.Class.Name)
		assert.Equal(t, "History", detail.Subject.Name)
		assert.Equal(t, "Teacher", detail.Teacher.Name)
	})

	t.Run("filtered list", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/api/sessions?from=2024-10-08", adminToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `[]`, rec.Body.String())

		assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/sessions/9999", adminToken).Code)
	})
}

// TestRoundTrip builds a school through the API and reads the attendance back.
func TestRoundTrip(t *testing.T) {
	e := setup(t)
	adminToken := getToken(t, e.conf, e.admin)
	teacherToken := getToken(t, e.conf, e.teacher)

	post := func(path, token, body string, v interface{}) {
		t.Helper()
		rec := e.do(http.MethodPost, path, token, []byte(body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarshal(t, rec, v)
	}

	var cls class.Class
	post("/api/classes", adminToken, `{"name": "6A", "level": "6", "academicYear": "2024-2025"}`, &cls)
	var std student.Student
	post("/api/students", adminToken, `{"firstName": "Ada", "lastName": "Lovelace", "classId": `+strconv.Itoa(cls.ID)+`}`, &std)
	var sub subject.Subject
	post("/api/subjects", adminToken, `{"name": "Maths", "code": "MATH"}`, &sub)
	var sess session.Session
	post("/api/sessions", adminToken, `{"date": "2024-09-02", "startTime": "08:00", "endTime": "09:00", "classId": `+
		strconv.Itoa(cls.ID)+`, "subjectId": `+strconv.Itoa(sub.ID)+`, "teacherId": `+strconv.Itoa(e.teacher.ID)+`}`, &sess)
	var atts []attendance.Attendance
	post("/api/attendance", teacherToken, `{"sessionId": `+strconv.Itoa(sess.ID)+
		`, "attendances": [{"studentId": `+strconv.Itoa(std.ID)+`, "status": "EXCUSED"}]}`, &atts)

	rec := e.do(http.MethodGet, "/api/attendance/session/"+strconv.Itoa(sess.ID), teacherToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var records []attendance.Record
	unmarshal(t, rec, &records)
	require.Len(t, records, 1)
	assert.Equal(t, atts[0].ID, records[0].ID)
	assert.Equal(t, attendance.StatusExcused, records[0].Status)
	assert.Equal(t, attendance.StudentRef{ID: std.ID, FirstName: "Ada", LastName: "Lovelace"}, records[0].Student)
}

func TestHealth(t *testing.T) {
	e := setup(t)
	rec := e.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok", "build": "test", "database": "ok"}`, rec.Body.String())
}

package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/presence/apps/api/echo"
	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/attendance"
	"github.com/trezcool/presence/core/class"
	"github.com/trezcool/presence/core/session"
	"github.com/trezcool/presence/core/student"
	"github.com/trezcool/presence/core/subject"
	"github.com/trezcool/presence/core/user"
	logsvc "github.com/trezcool/presence/services/logger"
	inmemdb "github.com/trezcool/presence/storage/database/inmem"
	testutil "github.com/trezcool/presence/tests"
)

const testPassword = "J4ck-D4w-Quilt9"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	t       *testing.T
	conf    *core.Config
	db      *inmemdb.DB
	app     *Server
	admin   user.User
	teacher user.User
}

func setup(t *testing.T) *env {
	t.Helper()
	conf := &core.Config{
		Env:                       "TEST",
		Build:                     "test",
		TestMode:                  true,
		AppName:                   "Presence",
		SecretKey:                 "test-secret",
		JWTExpirationDelta:        time.Hour,
		JWTRefreshExpirationDelta: 24 * time.Hour,
		Log:                       core.LogConfig{Level: "fatal"},
	}

	logger, err := logsvc.NewRollbarLogger(conf)
	require.NoError(t, err)
	logger.Enable(false)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	db := inmemdb.Open()
	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		UserSvc:        user.NewService(db),
		ClassSvc:       class.NewService(db),
		StudentSvc:     student.NewService(db, db),
		SubjectSvc:     subject.NewService(db),
		SessionSvc:     session.NewService(db, db),
		AttendanceSvc:  attendance.NewService(db, db),
	})

	return &env{
		t:       t,
		conf:    conf,
		db:      db,
		app:     app,
		admin:   testutil.CreateUser(t, db, "Admin", "admin@school.test", testPassword, user.RoleAdmin, user.StatusActive),
		teacher: testutil.CreateUser(t, db, "Teacher", "teacher@school.test", testPassword, user.RoleTeacher, user.StatusActive),
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do serves a request and returns the recorded response.
func (e *env) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	e.app.ServeHTTP(rec, req)
	return rec
}

func (e *env) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, e.do(tt.method, tt.path, tt.token, tt.body))
		})
	}
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	token, err := GenerateToken(conf, NewClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

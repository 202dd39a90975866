package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/presence/apps/api/echo"
	"github.com/trezcool/presence/core/user"
	testutil "github.com/trezcool/presence/tests"
)

func TestAuth_Login(t *testing.T) {
	e := setup(t)
	testutil.CreateUser(t, e.db, "Gone", "gone@school.test", testPassword, user.RoleTeacher, user.StatusInactive)

	invalidCreds := httpErr{Error: "invalid email or password"}
	tests := []httpTest{
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     []byte(`{"email": "nobody@school.test", "password": "` + testPassword + `"}`),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, invalidCreds),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     []byte(`{"email": "teacher@school.test", "password": "wrong-password"}`),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, invalidCreds),
		},
		{
			name:     "deactivated account",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     []byte(`{"email": "gone@school.test", "password": "` + testPassword + `"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	e.run(t, tests)

	t.Run("success", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/auth/login",
			[]byte(`{"email": " Teacher@School.test ", "password": "`+testPassword+`"}`))
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, e.teacher.ID, resp.User.ID)
		assert.Equal(t, "teacher@school.test", resp.User.Email)
		assert.Equal(t, user.RoleTeacher, resp.User.Role)

		claims := new(Claims)
		_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(e.conf.SecretKey), nil
		})
		require.NoError(t, err)
		assert.Equal(t, e.teacher.ID, claims.UserID())
		assert.Equal(t, user.RoleTeacher, claims.Role)

		// the token opens protected routes
		assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/classes", resp.Token).Code)
	})
}

func TestAuth_TokenRefresh(t *testing.T) {
	e := setup(t)

	expiredRefresh := NewClaims(e.conf, e.teacher, time.Now().Add(-48*time.Hour).Unix())
	expiredToken, err := GenerateToken(e.conf, expiredRefresh)
	require.NoError(t, err)

	gone := testutil.CreateUser(t, e.db, "Gone", "gone@school.test", testPassword, user.RoleTeacher, user.StatusInactive)

	tests := []httpTest{
		{
			name:     "anonymous",
			method:   http.MethodPost,
			path:     "/api/auth/token-refresh",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "refresh window elapsed",
			method:   http.MethodPost,
			path:     "/api/auth/token-refresh",
			token:    expiredToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{
			name:     "deactivated account",
			method:   http.MethodPost,
			path:     "/api/auth/token-refresh",
			token:    getToken(t, e.conf, gone),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	e.run(t, tests)

	t.Run("success", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/api/auth/token-refresh", getToken(t, e.conf, e.teacher))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp LoginResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, e.teacher.ID, resp.User.ID)
	})
}

func TestAuth_ProtectedRoutes(t *testing.T) {
	e := setup(t)
	adminToken := getToken(t, e.conf, e.admin)

	for _, path := range []string{"/api/classes", "/api/students", "/api/subjects", "/api/sessions", "/api/users", "/api/attendance/by-class/1"} {
		t.Run(path, func(t *testing.T) {
			rec := e.do(http.MethodGet, path, adminToken)
			assert.NotEqual(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
			assert.NotContains(t, rec.Body.String(), "user not authenticated")
		})
	}

	t.Run("users list", func(t *testing.T) {
		e.run(t, []httpTest{{
			name:     "admin",
			method:   http.MethodGet,
			path:     "/api/users?ordering=name",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t, e.admin, e.teacher),
		}})
	})
}

func TestAuth_InvalidToken(t *testing.T) {
	e := setup(t)
	rec := e.do(http.MethodGet, "/api/classes", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

package echoapi

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core/user"
)

// operations protected by the API
const (
	opClassesRead      = "classes.read"
	opClassesWrite     = "classes.write"
	opStudentsRead     = "students.read"
	opStudentsWrite    = "students.write"
	opSubjectsRead     = "subjects.read"
	opSubjectsWrite    = "subjects.write"
	opSessionsRead     = "sessions.read"
	opSessionsWrite    = "sessions.write"
	opUsersRead        = "users.read"
	opUsersWrite       = "users.write"
	opAttendanceRecord = "attendance.record"
	opAttendanceRead   = "attendance.read"
	opAttendanceExport = "attendance.export"
)

var (
	staff     = []user.Role{user.RoleAdmin, user.RoleTeacher}
	adminOnly = []user.Role{user.RoleAdmin}

	// policy maps every protected operation to the roles allowed to perform it.
	policy = map[string][]user.Role{
		opClassesRead:      staff,
		opStudentsRead:     staff,
		opSubjectsRead:     staff,
		opSessionsRead:     staff,
		opClassesWrite:     adminOnly,
		opStudentsWrite:    adminOnly,
		opSubjectsWrite:    adminOnly,
		opSessionsWrite:    adminOnly,
		opUsersRead:        adminOnly,
		opUsersWrite:       adminOnly,
		opAttendanceRecord: staff,
		opAttendanceRead:   staff,
		opAttendanceExport: staff,
	}
)

func allowed(op string, role user.Role) bool {
	for _, r := range policy[op] {
		if r == role {
			return true
		}
	}
	return false
}

// authorize only lets through callers whose token role may perform op.
// It panics on an operation missing from the policy so that routes cannot be registered unguarded.
func authorize(op string) echo.MiddlewareFunc {
	if _, ok := policy[op]; !ok {
		panic(fmt.Sprintf("authorize: unknown operation %q", op))
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if !allowed(op, claims.Role) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

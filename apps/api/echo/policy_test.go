package echoapi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/presence/core/user"
)

func TestAuthorize_UnknownOperation(t *testing.T) {
	assert.Panics(t, func() { authorize("grades.write") })
	assert.NotPanics(t, func() { authorize(opAttendanceRecord) })
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		op   string
		role user.Role
		want bool
	}{
		{opClassesRead, user.RoleTeacher, true},
		{opClassesWrite, user.RoleTeacher, false},
		{opClassesWrite, user.RoleAdmin, true},
		{opUsersRead, user.RoleTeacher, false},
		{opAttendanceRecord, user.RoleTeacher, true},
		{opAttendanceExport, user.RoleAdmin, true},
		{opAttendanceRead, user.Role("STUDENT"), false},
	}
	for _, tt := range tests {
		t.Run(tt.op+"/"+string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, allowed(tt.op, tt.role))
		})
	}
}

func TestPolicy_CoversEveryOperation(t *testing.T) {
	for op, roles := range policy {
		assert.NotEmpty(t, roles, op)
		assert.Contains(t, roles, user.RoleAdmin, "admins may perform %s", op)
	}
}

package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/presence/core/class"
	"github.com/trezcool/presence/core/session"
	"github.com/trezcool/presence/core/student"
	"github.com/trezcool/presence/core/subject"
	"github.com/trezcool/presence/core/user"
)

func stamp(createdAt []time.Time) time.Time {
	if len(createdAt) > 0 {
		return createdAt[0].UTC()
	}
	return time.Now().UTC().Truncate(time.Microsecond)
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role user.Role,
	status user.Status,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := stamp(createdAt)
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		Status:    status,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateClass(t *testing.T, repo class.Repository, name, level, year string, createdAt ...time.Time) class.Class {
	t.Helper()
	tstamp := stamp(createdAt)
	cls, err := repo.CreateClass(context.Background(), class.Class{
		Name:         name,
		Level:        level,
		AcademicYear: year,
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	})
	if err != nil {
		t.Fatalf("createClass() failed: %v", err)
	}
	return cls
}

func CreateSubject(t *testing.T, repo subject.Repository, name, code string, createdAt ...time.Time) subject.Subject {
	t.Helper()
	tstamp := stamp(createdAt)
	sub, err := repo.CreateSubject(context.Background(), subject.Subject{
		Name:      name,
		Code:      code,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("createSubject() failed: %v", err)
	}
	return sub
}

func CreateStudent(t *testing.T, repo student.Repository, firstName, lastName, email string, classID int) student.Student {
	t.Helper()
	tstamp := stamp(nil)
	std, err := repo.CreateStudent(context.Background(), student.Student{
		FirstName: firstName,
		LastName:  lastName,
		Email:     null.NewString(email, email != ""),
		ClassID:   classID,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return std
}

// CreateSession creates a session on date (YYYY-MM-DD) from start to end (HH:MM).
func CreateSession(t *testing.T, repo session.Repository, date, start, end string, classID, subjectID, teacherID int) session.Session {
	t.Helper()
	ns := session.NewSession{
		Date:      date,
		StartTime: start,
		EndTime:   end,
		ClassID:   classID,
		SubjectID: subjectID,
		TeacherID: teacherID,
	}
	_, startTime, endTime, err := ns.Times()
	if err != nil {
		t.Fatalf("createSession() failed: %v", err)
	}
	tstamp := stamp(nil)
	sess, err := repo.CreateSession(context.Background(), session.Session{
		Date:      date,
		StartTime: startTime,
		EndTime:   endTime,
		ClassID:   classID,
		SubjectID: subjectID,
		TeacherID: teacherID,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("createSession() failed: %v", err)
	}
	return sess
}

package inmemdb

import (
	"context"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/student"
)

var studentCmps = map[string]func(a, b student.Student) int{
	"id":         func(a, b student.Student) int { return cmpInt(a.ID, b.ID) },
	"first_name": func(a, b student.Student) int { return cmpString(a.FirstName, b.FirstName) },
	"last_name":  func(a, b student.Student) int { return cmpString(a.LastName, b.LastName) },
	"email":      func(a, b student.Student) int { return cmpString(a.Email.String, b.Email.String) },
	"class_id":   func(a, b student.Student) int { return cmpInt(a.ClassID, b.ClassID) },
	"created_at": func(a, b student.Student) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

var byName = []core.DBOrdering{
	{Field: "last_name", Ascending: true},
	{Field: "first_name", Ascending: true},
	{Field: "id", Ascending: true},
}

func (db *DB) CreateStudent(_ context.Context, std student.Student) (student.Student, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.t.classes[std.ClassID]; !ok {
		return student.Student{}, student.ErrClassNotExist
	}
	std.ID = db.t.nextPK()
	db.t.students[std.ID] = std
	return std, nil
}

func (db *DB) QueryStudents(_ context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	students := make([]student.Student, 0, len(db.t.students))
	for _, std := range values(db.t.students) {
		if filter != nil {
			if filter.Search != "" &&
				!containsFold(std.FirstName, filter.Search) &&
				!containsFold(std.LastName, filter.Search) &&
				!containsFold(std.Email.String, filter.Search) {
				continue
			}
			if filter.ClassID > 0 && std.ClassID != filter.ClassID {
				continue
			}
		}
		students = append(students, std)
	}
	sortItems(students, ordering, studentCmps, byName)
	return students, nil
}

func (db *DB) GetStudentByID(_ context.Context, id int) (student.Student, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if std, ok := db.t.students[id]; ok {
		return std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (db *DB) StudentExists(_ context.Context, id int) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.t.students[id]
	return ok, nil
}

func (db *DB) UpdateStudent(_ context.Context, std student.Student) (student.Student, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.t.students[std.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	if _, ok := db.t.classes[std.ClassID]; !ok {
		return student.Student{}, student.ErrClassNotExist
	}
	db.t.students[std.ID] = std
	return std, nil
}

func (db *DB) DeleteStudent(_ context.Context, id int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.t.students[id]; !ok {
		return student.ErrNotFound
	}
	db.deleteStudent(id)
	return nil
}

// deleteStudent removes the student and its attendance. The caller holds the write lock.
func (db *DB) deleteStudent(id int) {
	for key, attID := range db.t.pairs {
		if key.studentID == id {
			delete(db.t.attendances, attID)
			delete(db.t.pairs, key)
		}
	}
	delete(db.t.students, id)
}

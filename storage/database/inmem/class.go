package inmemdb

import (
	"context"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/class"
)

var classCmps = map[string]func(a, b class.Class) int{
	"id":            func(a, b class.Class) int { return cmpInt(a.ID, b.ID) },
	"name":          func(a, b class.Class) int { return cmpString(a.Name, b.Name) },
	"level":         func(a, b class.Class) int { return cmpString(a.Level, b.Level) },
	"academic_year": func(a, b class.Class) int { return cmpString(a.AcademicYear, b.AcademicYear) },
	"created_at":    func(a, b class.Class) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

func (db *DB) CreateClass(_ context.Context, cls class.Class) (class.Class, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	cls.ID = db.t.nextPK()
	db.t.classes[cls.ID] = cls
	return cls, nil
}

func (db *DB) QueryClasses(_ context.Context, filter *class.QueryFilter, ordering []core.DBOrdering) ([]class.Class, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	classes := make([]class.Class, 0, len(db.t.classes))
	for _, cls := range values(db.t.classes) {
		if filter != nil {
			if filter.Search != "" && !containsFold(cls.Name, filter.Search) {
				continue
			}
			if filter.Level != "" && cls.Level != filter.Level {
				continue
			}
			if filter.AcademicYear != "" && cls.AcademicYear != filter.AcademicYear {
				continue
			}
		}
		classes = append(classes, cls)
	}
	sortItems(classes, ordering, classCmps, newestFirst)
	return classes, nil
}

func (db *DB) GetClassByID(_ context.Context, id int) (class.Class, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if cls, ok := db.t.classes[id]; ok {
		return cls, nil
	}
	return class.Class{}, class.ErrNotFound
}

func (db *DB) ClassExists(_ context.Context, id int) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.t.classes[id]
	return ok, nil
}

func (db *DB) UpdateClass(_ context.Context, cls class.Class) (class.Class, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.t.classes[cls.ID]; !ok {
		return class.Class{}, class.ErrNotFound
	}
	db.t.classes[cls.ID] = cls
	return cls, nil
}

// DeleteClass cascades to the students and sessions of the class, and their attendance.
func (db *DB) DeleteClass(_ context.Context, id int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.t.classes[id]; !ok {
		return class.ErrNotFound
	}
	for stdID, std := range db.t.students {
		if std.ClassID == id {
			db.deleteStudent(stdID)
		}
	}
	for sessID, sess := range db.t.sessions {
		if sess.ClassID == id {
			db.deleteSession(sessID)
		}
	}
	delete(db.t.classes, id)
	return nil
}

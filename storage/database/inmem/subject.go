package inmemdb

import (
	"context"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/subject"
)

var subjectCmps = map[string]func(a, b subject.Subject) int{
	"id":         func(a, b subject.Subject) int { return cmpInt(a.ID, b.ID) },
	"name":       func(a, b subject.Subject) int { return cmpString(a.Name, b.Name) },
	"code":       func(a, b subject.Subject) int { return cmpString(a.Code, b.Code) },
	"created_at": func(a, b subject.Subject) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

func (db *DB) CheckCodeUniqueness(_ context.Context, code string, excludedIDs ...int) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.checkCode(code, excludedIDs...)
}

func (db *DB) checkCode(code string, excludedIDs ...int) error {
	for _, sub := range db.t.subjects {
		if sub.Code == code && !isExcluded(sub.ID, excludedIDs) {
			return subject.ErrCodeExists
		}
	}
	return nil
}

func (db *DB) CreateSubject(_ context.Context, sub subject.Subject) (subject.Subject, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkCode(sub.Code); err != nil {
		return subject.Subject{}, err
	}
	sub.ID = db.t.nextPK()
	db.t.subjects[sub.ID] = sub
	return sub, nil
}

func (db *DB) QuerySubjects(_ context.Context, filter *subject.QueryFilter, ordering []core.DBOrdering) ([]subject.Subject, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	subjects := make([]subject.Subject, 0, len(db.t.subjects))
	for _, sub := range values(db.t.subjects) {
		if filter != nil && filter.Search != "" && !containsFold(sub.Name, filter.Search) && !containsFold(sub.Code, filter.Search) {
			continue
		}
		subjects = append(subjects, sub)
	}
	sortItems(subjects, ordering, subjectCmps, newestFirst)
	return subjects, nil
}

func (db *DB) GetSubjectByID(_ context.Context, id int) (subject.Subject, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if sub, ok := db.t.subjects[id]; ok {
		return sub, nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (db *DB) SubjectExists(_ context.Context, id int) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.t.subjects[id]
	return ok, nil
}

func (db *DB) UpdateSubject(_ context.Context, sub subject.Subject) (subject.Subject, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.t.subjects[sub.ID]; !ok {
		return subject.Subject{}, subject.ErrNotFound
	}
	if err := db.checkCode(sub.Code, sub.ID); err != nil {
		return subject.Subject{}, err
	}
	db.t.subjects[sub.ID] = sub
	return sub, nil
}

func (db *DB) DeleteSubject(_ context.Context, id int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.t.subjects[id]; !ok {
		return subject.ErrNotFound
	}
	for _, sess := range db.t.sessions {
		if sess.SubjectID == id {
			return subject.ErrReferenced
		}
	}
	delete(db.t.subjects, id)
	return nil
}

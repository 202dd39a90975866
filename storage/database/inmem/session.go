package inmemdb

import (
	"context"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/session"
)

var sessionCmps = map[string]func(a, b session.Detail) int{
	"s.id":         func(a, b session.Detail) int { return cmpInt(a.ID, b.ID) },
	"s.date":       func(a, b session.Detail) int { return cmpString(a.Date, b.Date) },
	"s.start_time": func(a, b session.Detail) int { return cmpTime(a.StartTime, b.StartTime) },
	"s.created_at": func(a, b session.Detail) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

var latestSessionFirst = []core.DBOrdering{{Field: "s.date"}, {Field: "s.start_time"}, {Field: "s.id"}}

func (db *DB) CreateSession(_ context.Context, sess session.Session) (session.Session, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, clsOK := db.t.classes[sess.ClassID]
	_, subOK := db.t.subjects[sess.SubjectID]
	_, usrOK := db.t.users[sess.TeacherID]
	if !clsOK || !subOK || !usrOK {
		return session.Session{}, core.NewConflictError("session references changed, please retry")
	}
	sess.ID = db.t.nextPK()
	db.t.sessions[sess.ID] = sess
	return sess, nil
}

// detail joins the session with its references. The caller holds the lock.
func (db *DB) detail(sess session.Session) session.Detail {
	return session.Detail{
		Session: sess,
		Class:   core.Ref{ID: sess.ClassID, Name: db.t.classes[sess.ClassID].Name},
		Subject: core.Ref{ID: sess.SubjectID, Name: db.t.subjects[sess.SubjectID].Name},
		Teacher: core.Ref{ID: sess.TeacherID, Name: db.t.users[sess.TeacherID].Name},
	}
}

func (db *DB) QuerySessions(_ context.Context, filter *session.QueryFilter, ordering []core.DBOrdering) ([]session.Detail, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	sessions := make([]session.Detail, 0, len(db.t.sessions))
	for _, sess := range values(db.t.sessions) {
		if filter != nil {
			if filter.ClassID > 0 && sess.ClassID != filter.ClassID {
				continue
			}
			if filter.SubjectID > 0 && sess.SubjectID != filter.SubjectID {
				continue
			}
			if filter.TeacherID > 0 && sess.TeacherID != filter.TeacherID {
				continue
			}
			if filter.From != "" && sess.Date < filter.From {
				continue
			}
			if filter.To != "" && sess.Date > filter.To {
				continue
			}
		}
		sessions = append(sessions, db.detail(sess))
	}
	sortItems(sessions, ordering, sessionCmps, latestSessionFirst)
	return sessions, nil
}

func (db *DB) GetSessionByID(_ context.Context, id int) (session.Session, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if sess, ok := db.t.sessions[id]; ok {
		return sess, nil
	}
	return session.Session{}, session.ErrNotFound
}

func (db *DB) GetSessionDetail(_ context.Context, id int) (session.Detail, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if sess, ok := db.t.sessions[id]; ok {
		return db.detail(sess), nil
	}
	return session.Detail{}, session.ErrNotFound
}

// deleteSession removes the session and its attendance. The caller holds the write lock.
func (db *DB) deleteSession(id int) {
	for key, attID := range db.t.pairs {
		if key.sessionID == id {
			delete(db.t.attendances, attID)
			delete(db.t.pairs, key)
		}
	}
	delete(db.t.sessions, id)
}

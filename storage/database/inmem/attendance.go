package inmemdb

import (
	"context"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/attendance"
	"github.com/trezcool/presence/core/session"
)

var (
	recordByName = []core.DBOrdering{{Field: "last_name", Ascending: true}, {Field: "first_name", Ascending: true}}
	recordCmps   = map[string]func(a, b attendance.Record) int{
		"id":         func(a, b attendance.Record) int { return cmpInt(a.ID, b.ID) },
		"date":       func(a, b attendance.Record) int { return cmpString(a.Session.Date, b.Session.Date) },
		"last_name":  func(a, b attendance.Record) int { return cmpString(a.Student.LastName, b.Student.LastName) },
		"first_name": func(a, b attendance.Record) int { return cmpString(a.Student.FirstName, b.Student.FirstName) },
	}
)

func (db *DB) ClassRoster(_ context.Context, classID int) ([]int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.roster(classID), nil
}

func (db *DB) roster(classID int) []int {
	var ids []int
	for _, std := range values(db.t.students) {
		if std.ClassID == classID {
			ids = append(ids, std.ID)
		}
	}
	return ids
}

// RecordBatch applies the marks on a copy of the attendance tables, swapped in once every mark is written.
func (db *DB) RecordBatch(_ context.Context, sessionID, classID int, marks []attendance.Mark) ([]attendance.Attendance, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.t.sessions[sessionID]; !ok {
		return nil, session.ErrNotFound
	}
	for _, mark := range marks {
		if std, ok := db.t.students[mark.StudentID]; !ok || std.ClassID != classID {
			return nil, attendance.ErrRosterChanged
		}
	}

	atts, pairs := db.t.cloneAttendances()
	pk := db.t.pk
	now := core.Now()
	result := make([]attendance.Attendance, 0, len(marks))
	for i, mark := range marks {
		if db.writeHook != nil {
			if err := db.writeHook(i, mark); err != nil {
				return nil, err
			}
		}

		key := pairKey{sessionID: sessionID, studentID: mark.StudentID}
		if id, ok := pairs[key]; ok {
			att := atts[id]
			att.Status = mark.Status
			att.UpdatedAt = now
			atts[id] = att
			result = append(result, att)
			continue
		}
		pk++
		att := attendance.Attendance{
			ID:        pk,
			SessionID: sessionID,
			StudentID: mark.StudentID,
			Status:    mark.Status,
			CreatedAt: now,
			UpdatedAt: now,
		}
		atts[att.ID] = att
		pairs[key] = att.ID
		result = append(result, att)
	}

	db.t.attendances, db.t.pairs, db.t.pk = atts, pairs, pk
	return result, nil
}

// records joins attendance rows with their student and session. The caller holds the lock.
func (db *DB) records(keep func(att attendance.Attendance) bool, withSession bool) []attendance.Record {
	records := make([]attendance.Record, 0)
	for _, att := range values(db.t.attendances) {
		if !keep(att) {
			continue
		}
		std := db.t.students[att.StudentID]
		rec := attendance.Record{
			Attendance: att,
			Student:    attendance.StudentRef{ID: std.ID, FirstName: std.FirstName, LastName: std.LastName},
		}
		if withSession {
			sess := db.t.sessions[att.SessionID]
			rec.Session = &attendance.SessionRef{
				ID:      sess.ID,
				Date:    sess.Date,
				Class:   core.Ref{ID: sess.ClassID, Name: db.t.classes[sess.ClassID].Name},
				Subject: core.Ref{ID: sess.SubjectID, Name: db.t.subjects[sess.SubjectID].Name},
			}
		}
		records = append(records, rec)
	}
	return records
}

func (db *DB) sortRecords(records []attendance.Record, orderings []core.DBOrdering) {
	cmps := make(map[string]func(a, b attendance.Record) int, len(recordCmps))
	for k, cmp := range recordCmps {
		cmps[k] = cmp
	}
	cmps["start_time"] = func(a, b attendance.Record) int {
		return cmpTime(db.t.sessions[a.SessionID].StartTime, db.t.sessions[b.SessionID].StartTime)
	}
	sortItems(records, orderings, cmps, nil)
}

func (db *DB) QueryBySession(_ context.Context, sessionID int) ([]attendance.Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	records := db.records(func(att attendance.Attendance) bool { return att.SessionID == sessionID }, false)
	db.sortRecords(records, recordByName)
	return records, nil
}

func (db *DB) QueryByStudent(_ context.Context, studentID int) ([]attendance.Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	records := db.records(func(att attendance.Attendance) bool { return att.StudentID == studentID }, true)
	db.sortRecords(records, []core.DBOrdering{{Field: "date"}, {Field: "start_time"}})
	return records, nil
}

func (db *DB) QueryByClass(_ context.Context, classID int, period *attendance.Period) ([]attendance.Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	records := db.records(func(att attendance.Attendance) bool {
		sess := db.t.sessions[att.SessionID]
		return sess.ClassID == classID && (period == nil || period.Contains(sess.Date))
	}, true)
	db.sortRecords(records, append([]core.DBOrdering{{Field: "date"}, {Field: "start_time"}}, recordByName...))
	return records, nil
}

func (db *DB) QueryByPeriod(_ context.Context, period attendance.Period) ([]attendance.Record, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	records := db.records(func(att attendance.Attendance) bool {
		return period.Contains(db.t.sessions[att.SessionID].Date)
	}, true)
	db.sortRecords(records, append(
		[]core.DBOrdering{{Field: "date", Ascending: true}, {Field: "start_time", Ascending: true}},
		recordByName...,
	))
	return records, nil
}

func (db *DB) ClassSummary(_ context.Context, classID int, period *attendance.Period) ([]attendance.StudentSummary, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	idx := make(map[int]int)
	summaries := make([]attendance.StudentSummary, 0)
	for _, std := range values(db.t.students) {
		if std.ClassID != classID {
			continue
		}
		idx[std.ID] = len(summaries)
		summaries = append(summaries, attendance.StudentSummary{
			Student: attendance.StudentRef{ID: std.ID, FirstName: std.FirstName, LastName: std.LastName},
		})
	}
	for _, att := range db.t.attendances {
		i, ok := idx[att.StudentID]
		if !ok {
			continue
		}
		sess := db.t.sessions[att.SessionID]
		if sess.ClassID != classID || (period != nil && !period.Contains(sess.Date)) {
			continue
		}
		summaries[i].Add(att.Status)
	}

	sortItems(summaries, recordByName, map[string]func(a, b attendance.StudentSummary) int{
		"last_name":  func(a, b attendance.StudentSummary) int { return cmpString(a.Student.LastName, b.Student.LastName) },
		"first_name": func(a, b attendance.StudentSummary) int { return cmpString(a.Student.FirstName, b.Student.FirstName) },
	}, nil)
	return summaries, nil
}

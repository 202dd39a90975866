package inmemdb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/attendance"
	"github.com/trezcool/presence/core/class"
	"github.com/trezcool/presence/core/session"
	"github.com/trezcool/presence/core/student"
	"github.com/trezcool/presence/core/subject"
	"github.com/trezcool/presence/core/user"
)

type pairKey struct {
	sessionID, studentID int
}

type tables struct {
	pk          int
	users       map[int]user.User
	classes     map[int]class.Class
	subjects    map[int]subject.Subject
	students    map[int]student.Student
	sessions    map[int]session.Session
	attendances map[int]attendance.Attendance
	pairs       map[pairKey]int // (session, student) -> attendance id
}

func newTables() *tables {
	return &tables{
		users:       make(map[int]user.User),
		classes:     make(map[int]class.Class),
		subjects:    make(map[int]subject.Subject),
		students:    make(map[int]student.Student),
		sessions:    make(map[int]session.Session),
		attendances: make(map[int]attendance.Attendance),
		pairs:       make(map[pairKey]int),
	}
}

func (t *tables) nextPK() int {
	t.pk++
	return t.pk
}

// cloneAttendances copies the attendance tables so that a batch can be applied on the copy.
func (t *tables) cloneAttendances() (map[int]attendance.Attendance, map[pairKey]int) {
	atts := make(map[int]attendance.Attendance, len(t.attendances))
	for id, att := range t.attendances {
		atts[id] = att
	}
	pairs := make(map[pairKey]int, len(t.pairs))
	for k, id := range t.pairs {
		pairs[k] = id
	}
	return atts, pairs
}

// DB is an in-memory store implementing every repository.
// It is safe for concurrent use; writes are serialized.
type DB struct {
	mu sync.RWMutex
	t  *tables

	// writeHook, when set, is called before each attendance write of a batch; an error aborts the batch.
	writeHook func(i int, mark attendance.Mark) error
}

var (
	// interface compliance checks
	_ user.Repository       = (*DB)(nil)
	_ class.Repository      = (*DB)(nil)
	_ subject.Repository    = (*DB)(nil)
	_ student.Repository    = (*DB)(nil)
	_ session.Repository    = (*DB)(nil)
	_ attendance.Repository = (*DB)(nil)
	_ attendance.References = (*DB)(nil)
	_ session.References    = (*DB)(nil)
	_ student.ClassChecker  = (*DB)(nil)
)

func Open() *DB {
	return &DB{t: newTables()}
}

// values returns the rows of a table ordered by primary key.
func values[T any](table map[int]T) []T {
	ids := make([]int, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	rows := make([]T, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, table[id])
	}
	return rows
}

// sortItems sorts items by orderings (columns mapped to comparators), falling back to def.
// The sort is stable: items from values() stay ordered by primary key on ties.
func sortItems[T any](items []T, orderings []core.DBOrdering, cmps map[string]func(a, b T) int, def []core.DBOrdering) {
	if len(orderings) == 0 {
		orderings = def
	}
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range orderings {
			cmp, ok := cmps[ord.Field]
			if !ok {
				continue
			}
			c := cmp(items[i], items[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpString(a, b string) int {
	return strings.Compare(a, b)
}

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// postgres error codes
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Store gathers the repositories of every entity around one connection pool.
type Store struct {
	*userRepository
	*classRepository
	*studentRepository
	*subjectRepository
	*sessionRepository
	*attendanceRepository
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{
		userRepository:       NewUserRepository(db),
		classRepository:      NewClassRepository(db),
		studentRepository:    NewStudentRepository(db),
		subjectRepository:    NewSubjectRepository(db),
		sessionRepository:    NewSessionRepository(db),
		attendanceRepository: NewAttendanceRepository(db),
	}
}

// pqCode returns the postgres error code of err, if any.
func pqCode(err error) string {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return string(pqErr.Code)
	}
	return ""
}

// trapNoRowsErr maps "no rows" errors to notFound.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// checkAffected returns notFound if res did not affect any row.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "reading affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func rowExists(ctx context.Context, db sqlx.QueryerContext, table string, id int) (bool, error) {
	var found bool
	q := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", table)
	if err := sqlx.GetContext(ctx, db, &found, q, id); err != nil {
		return false, errors.Wrapf(err, "checking %s existence", table)
	}
	return found, nil
}

// where accumulates AND-ed conditions and their positional args.
type where struct {
	conds []string
	args  []interface{}
}

// add appends a condition; each "?" in cond is replaced by the next positional placeholder.
func (w *where) add(cond string, args ...interface{}) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func pqIntArray(ids []int) pq.Int64Array {
	arr := make(pq.Int64Array, 0, len(ids))
	for _, id := range ids {
		arr = append(arr, int64(id))
	}
	return arr
}

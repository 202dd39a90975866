package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/student"
)

const studentColumns = "id, first_name, last_name, email, class_id, created_at, updated_at"

type studentRow struct {
	ID        int         `db:"id"`
	FirstName string      `db:"first_name"`
	LastName  string      `db:"last_name"`
	Email     null.String `db:"email"`
	ClassID   int         `db:"class_id"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r studentRow) student() student.Student {
	return student.Student{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		ClassID:   r.ClassID,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

// trapClassErr maps a class foreign key violation (class deleted meanwhile) to student.ErrClassNotExist
func (repo studentRepository) trapClassErr(err error, msg string) error {
	if pqCode(err) == foreignKeyViolation {
		return student.ErrClassNotExist
	}
	return trapNoRowsErr(err, student.ErrNotFound, msg)
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	const q = `
	INSERT INTO students (first_name, last_name, email, class_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING ` + studentColumns

	var row studentRow
	err := repo.db.GetContext(ctx, &row, q, std.FirstName, std.LastName, std.Email, std.ClassID, std.CreatedAt, std.UpdatedAt)
	if err != nil {
		return student.Student{}, repo.trapClassErr(err, "inserting student")
	}
	return row.student(), nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			val := likePattern(filter.Search)
			w.add("(first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?)", val, val, val)
		}
		if filter.ClassID > 0 {
			w.add("class_id = ?", filter.ClassID)
		}
	}
	q := "SELECT " + studentColumns + " FROM students" + w.String() +
		" ORDER BY " + core.OrderByClause(ordering, "last_name ASC, first_name ASC, id ASC")

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, nil
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id int) (student.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+studentColumns+" FROM students WHERE id = $1", id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student by id")
	}
	return row.student(), nil
}

func (repo studentRepository) StudentExists(ctx context.Context, id int) (bool, error) {
	return rowExists(ctx, repo.db, "students", id)
}

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	const q = `
	UPDATE students SET first_name = $2, last_name = $3, email = $4, class_id = $5, updated_at = $6
	WHERE id = $1
	RETURNING ` + studentColumns

	var row studentRow
	err := repo.db.GetContext(ctx, &row, q, std.ID, std.FirstName, std.LastName, std.Email, std.ClassID, std.UpdatedAt)
	if err != nil {
		return student.Student{}, repo.trapClassErr(err, "updating student")
	}
	return row.student(), nil
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return checkAffected(res, student.ErrNotFound)
}

package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/class"
)

const classColumns = "id, name, level, academic_year, created_at, updated_at"

type classRow struct {
	ID           int       `db:"id"`
	Name         string    `db:"name"`
	Level        string    `db:"level"`
	AcademicYear string    `db:"academic_year"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r classRow) class() class.Class {
	return class.Class{
		ID:           r.ID,
		Name:         r.Name,
		Level:        r.Level,
		AcademicYear: r.AcademicYear,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type classRepository struct {
	db *sqlx.DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *sqlx.DB) *classRepository {
	return &classRepository{db: db}
}

func (repo classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	const q = `
	INSERT INTO classes (name, level, academic_year, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING ` + classColumns

	var row classRow
	if err := repo.db.GetContext(ctx, &row, q, cls.Name, cls.Level, cls.AcademicYear, cls.CreatedAt, cls.UpdatedAt); err != nil {
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return row.class(), nil
}

func (repo classRepository) QueryClasses(ctx context.Context, filter *class.QueryFilter, ordering []core.DBOrdering) ([]class.Class, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			w.add("name ILIKE ?", likePattern(filter.Search))
		}
		if filter.Level != "" {
			w.add("level = ?", filter.Level)
		}
		if filter.AcademicYear != "" {
			w.add("academic_year = ?", filter.AcademicYear)
		}
	}
	q := "SELECT " + classColumns + " FROM classes" + w.String() +
		" ORDER BY " + core.OrderByClause(ordering, "created_at DESC, id DESC")

	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]class.Class, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.class())
	}
	return classes, nil
}

func (repo classRepository) GetClassByID(ctx context.Context, id int) (class.Class, error) {
	var row classRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+classColumns+" FROM classes WHERE id = $1", id); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound, "finding class by id")
	}
	return row.class(), nil
}

func (repo classRepository) ClassExists(ctx context.Context, id int) (bool, error) {
	return rowExists(ctx, repo.db, "classes", id)
}

func (repo classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	const q = `
	UPDATE classes SET name = $2, level = $3, academic_year = $4, updated_at = $5
	WHERE id = $1
	RETURNING ` + classColumns

	var row classRow
	if err := repo.db.GetContext(ctx, &row, q, cls.ID, cls.Name, cls.Level, cls.AcademicYear, cls.UpdatedAt); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound, "updating class")
	}
	return row.class(), nil
}

func (repo classRepository) DeleteClass(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM classes WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return checkAffected(res, class.ErrNotFound)
}

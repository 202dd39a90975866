package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/subject"
)

const subjectColumns = "id, name, code, created_at, updated_at"

type subjectRow struct {
	ID        int       `db:"id"`
	Name      string    `db:"name"`
	Code      string    `db:"code"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r subjectRow) subject() subject.Subject {
	return subject.Subject{
		ID:        r.ID,
		Name:      r.Name,
		Code:      r.Code,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type subjectRepository struct {
	db *sqlx.DB
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *sqlx.DB) *subjectRepository {
	return &subjectRepository{db: db}
}

func (repo subjectRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedIDs ...int) error {
	var w where
	w.add("code = ?", code)
	if len(excludedIDs) > 0 {
		w.add("NOT (id = ANY(?))", pqIntArray(excludedIDs))
	}

	var found bool
	if err := repo.db.GetContext(ctx, &found, "SELECT EXISTS (SELECT 1 FROM subjects"+w.String()+")", w.args...); err != nil {
		return errors.Wrap(err, "checking code uniqueness")
	}
	if found {
		return subject.ErrCodeExists
	}
	return nil
}

func (repo subjectRepository) CreateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	const q = `
	INSERT INTO subjects (name, code, created_at, updated_at)
	VALUES ($1, $2, $3, $4)
	RETURNING ` + subjectColumns

	var row subjectRow
	if err := repo.db.GetContext(ctx, &row, q, sub.Name, sub.Code, sub.CreatedAt, sub.UpdatedAt); err != nil {
		if pqCode(err) == uniqueViolation {
			return subject.Subject{}, subject.ErrCodeExists
		}
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return row.subject(), nil
}

func (repo subjectRepository) QuerySubjects(ctx context.Context, filter *subject.QueryFilter, ordering []core.DBOrdering) ([]subject.Subject, error) {
	var w where
	if filter != nil && filter.Search != "" {
		val := likePattern(filter.Search)
		w.add("(name ILIKE ? OR code ILIKE ?)", val, val)
	}
	q := "SELECT " + subjectColumns + " FROM subjects" + w.String() +
		" ORDER BY " + core.OrderByClause(ordering, "created_at DESC, id DESC")

	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]subject.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, r.subject())
	}
	return subjects, nil
}

func (repo subjectRepository) GetSubjectByID(ctx context.Context, id int) (subject.Subject, error) {
	var row subjectRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+subjectColumns+" FROM subjects WHERE id = $1", id); err != nil {
		return subject.Subject{}, trapNoRowsErr(err, subject.ErrNotFound, "finding subject by id")
	}
	return row.subject(), nil
}

func (repo subjectRepository) SubjectExists(ctx context.Context, id int) (bool, error) {
	return rowExists(ctx, repo.db, "subjects", id)
}

func (repo subjectRepository) UpdateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	const q = `
	UPDATE subjects SET name = $2, code = $3, updated_at = $4
	WHERE id = $1
	RETURNING ` + subjectColumns

	var row subjectRow
	if err := repo.db.GetContext(ctx, &row, q, sub.ID, sub.Name, sub.Code, sub.UpdatedAt); err != nil {
		if pqCode(err) == uniqueViolation {
			return subject.Subject{}, subject.ErrCodeExists
		}
		return subject.Subject{}, trapNoRowsErr(err, subject.ErrNotFound, "updating subject")
	}
	return row.subject(), nil
}

func (repo subjectRepository) DeleteSubject(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM subjects WHERE id = $1", id)
	if err != nil {
		if pqCode(err) == foreignKeyViolation {
			return subject.ErrReferenced
		}
		return errors.Wrap(err, "deleting subject")
	}
	return checkAffected(res, subject.ErrNotFound)
}

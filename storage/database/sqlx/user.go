package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/user"
)

const userColumns = "id, name, email, password_hash, role, status, created_at, updated_at"

type userRow struct {
	ID           int       `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash []byte    `db:"password_hash"`
	Role         string    `db:"role"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         user.Role(r.Role),
		Status:       user.Status(r.Status),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// trapUniqueErr maps the email unique constraint violation to user.ErrEmailExists
func (repo userRepository) trapUniqueErr(err error, msg string) error {
	if pqCode(err) == uniqueViolation {
		return user.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int) error {
	var w where
	w.add("email = ?", email)
	if len(excludedIDs) > 0 {
		w.add("NOT (id = ANY(?))", pqIntArray(excludedIDs))
	}

	var found bool
	if err := repo.db.GetContext(ctx, &found, "SELECT EXISTS (SELECT 1 FROM users"+w.String()+")", w.args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if found {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	const q = `
	INSERT INTO users (name, email, password_hash, role, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING ` + userColumns

	var row userRow
	err := repo.db.GetContext(ctx, &row, q,
		usr.Name, usr.Email, usr.PasswordHash, usr.Role, usr.Status, usr.CreatedAt, usr.UpdatedAt)
	if err != nil {
		return user.User{}, repo.trapUniqueErr(err, "inserting user")
	}
	return row.user(), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			val := likePattern(filter.Search)
			w.add("(name ILIKE ? OR email ILIKE ?)", val, val)
		}
		if filter.Role != "" {
			w.add("role = ?", filter.Role)
		}
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
	}
	q := "SELECT " + userColumns + " FROM users" + w.String() +
		" ORDER BY " + core.OrderByClause(ordering, "created_at DESC, id DESC")

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo userRepository) getUser(ctx context.Context, col string, val interface{}) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+userColumns+" FROM users WHERE "+col+" = $1", val)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by "+col)
	}
	return row.user(), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	return repo.getUser(ctx, "id", id)
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, "email", email)
}

func (repo userRepository) UserExists(ctx context.Context, id int) (bool, error) {
	return rowExists(ctx, repo.db, "users", id)
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	const q = `
	UPDATE users
	SET name = $2, email = $3, password_hash = $4, role = $5, status = $6, updated_at = $7
	WHERE id = $1
	RETURNING ` + userColumns

	var row userRow
	err := repo.db.GetContext(ctx, &row, q,
		usr.ID, usr.Name, usr.Email, usr.PasswordHash, usr.Role, usr.Status, usr.UpdatedAt)
	if err != nil {
		if pqCode(err) == uniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "updating user")
	}
	return row.user(), nil
}

func (repo userRepository) DeleteUser(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		if pqCode(err) == foreignKeyViolation {
			return user.ErrReferenced
		}
		return errors.Wrap(err, "deleting user")
	}
	return checkAffected(res, user.ErrNotFound)
}

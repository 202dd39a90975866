package user

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("User")
	ErrEmailExists        = core.NewConflictError("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrReferenced         = core.NewConflictError("user is the teacher of existing sessions")
)

// unknownUser is checked against when no account matches the email.
var unknownUser = sync.OnceValue(func() User {
	var usr User
	_ = usr.SetPassword("unknown-user-password")
	return usr
})

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists if another user (not in excludedIDs) has this email.
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUser(ctx context.Context, id int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, excludedIDs ...int) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedIDs...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.checkUniqueness(ctx, nu.Email); err != nil {
		return User{}, err
	}

	now := core.Now()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		Status:    nu.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if usr.Status == "" {
		usr.Status = StatusActive
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	ordering, err := core.CleanOrderings(ordering, OrderingFields)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Authenticate checks the credentials of a user.
// Unknown emails and wrong passwords both return ErrInvalidCredentials.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			dummy := unknownUser()
			_ = dummy.CheckPassword(pwd)
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive() {
		return User{}, ErrAccountDeactivated
	}
	return usr, nil
}

func (svc *Service) Update(ctx context.Context, origUsr User, uu UpdateUser) (User, error) {
	if uu.Email != origUsr.Email {
		if err := svc.checkUniqueness(ctx, uu.Email, origUsr.ID); err != nil {
			return User{}, err
		}
	}

	usr := origUsr
	usr.Name = uu.Name
	usr.Email = uu.Email
	usr.Role = uu.Role
	usr.Status = uu.Status
	usr.UpdatedAt = core.Now()
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

// SetPassword changes the password of the user with the given email.
func (svc *Service) SetPassword(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.Now()
	return svc.repo.UpdateUser(ctx, usr)
}

// UpdateOrCreateAdmin makes sure an active admin with this email exists and has this password.
func (svc *Service) UpdateOrCreateAdmin(ctx context.Context, name, email, pwd string) (usr User, created bool, err error) {
	email = core.CleanString(email, true /* lower */)
	usr, err = svc.repo.GetUserByEmail(ctx, email)
	switch {
	case err == ErrNotFound:
		now := core.Now()
		usr = User{Name: name, Email: email, CreatedAt: now}
		created = true
	case err != nil:
		return User{}, false, errors.Wrap(err, "finding user by email")
	}

	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	usr.Role = RoleAdmin
	usr.Status = StatusActive
	usr.UpdatedAt = core.Now()
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, false, errors.Wrap(err, "hashing password")
	}

	if created {
		usr, err = svc.repo.CreateUser(ctx, usr)
	} else {
		usr, err = svc.repo.UpdateUser(ctx, usr)
	}
	return usr, created, err
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteUser(ctx, id)
}

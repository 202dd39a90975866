package inmemdb

import (
	"context"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/user"
)

var userCmps = map[string]func(a, b user.User) int{
	"id":         func(a, b user.User) int { return cmpInt(a.ID, b.ID) },
	"name":       func(a, b user.User) int { return cmpString(a.Name, b.Name) },
	"email":      func(a, b user.User) int { return cmpString(a.Email, b.Email) },
	"role":       func(a, b user.User) int { return cmpString(string(a.Role), string(b.Role)) },
	"status":     func(a, b user.User) int { return cmpString(string(a.Status), string(b.Status)) },
	"created_at": func(a, b user.User) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

var newestFirst = []core.DBOrdering{{Field: "created_at"}, {Field: "id"}}

func (db *DB) CheckEmailUniqueness(_ context.Context, email string, excludedIDs ...int) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.checkEmail(email, excludedIDs...)
}

func (db *DB) checkEmail(email string, excludedIDs ...int) error {
	for _, usr := range db.t.users {
		if usr.Email == email && !isExcluded(usr.ID, excludedIDs) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (db *DB) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkEmail(usr.Email); err != nil {
		return user.User{}, err
	}
	usr.ID = db.t.nextPK()
	db.t.users[usr.ID] = usr
	return usr, nil
}

func (db *DB) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	users := make([]user.User, 0, len(db.t.users))
	for _, usr := range values(db.t.users) {
		if filter != nil {
			if filter.Search != "" && !containsFold(usr.Name, filter.Search) && !containsFold(usr.Email, filter.Search) {
				continue
			}
			if filter.Role != "" && usr.Role != filter.Role {
				continue
			}
			if filter.Status != "" && usr.Status != filter.Status {
				continue
			}
		}
		users = append(users, usr)
	}
	sortItems(users, ordering, userCmps, newestFirst)
	return users, nil
}

func (db *DB) GetUserByID(_ context.Context, id int) (user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if usr, ok := db.t.users[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (db *DB) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, usr := range db.t.users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (db *DB) UserExists(_ context.Context, id int) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.t.users[id]
	return ok, nil
}

func (db *DB) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.t.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if err := db.checkEmail(usr.Email, usr.ID); err != nil {
		return user.User{}, err
	}
	db.t.users[usr.ID] = usr
	return usr, nil
}

func (db *DB) DeleteUser(_ context.Context, id int) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.t.users[id]; !ok {
		return user.ErrNotFound
	}
	for _, sess := range db.t.sessions {
		if sess.TeacherID == id {
			return user.ErrReferenced
		}
	}
	delete(db.t.users, id)
	return nil
}

func isExcluded(id int, excludedIDs []int) bool {
	for _, excl := range excludedIDs {
		if id == excl {
			return true
		}
	}
	return false
}

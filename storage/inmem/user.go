package inmemdb

type UserRepository struct {
	db *userTable
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.user}
}

// CreateUser stores usr under a new id. Emails are unique.
func (repo *UserRepository) CreateUser(usr User) (User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, u := range repo.db.table {
		if u.Email == usr.Email {
			return User{}, ErrEmailExists
		}
	}
	usr.ID = newID()
	usr.CreatedAt = now()
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *UserRepository) GetUserByID(id string) (User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return *usr, nil
	}
	return User{}, ErrNotFound
}

func (repo *UserRepository) GetUserByEmail(email string) (User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.table {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return User{}, ErrNotFound
}

package user

import (
	"context"
	"strings"
	"sync"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	// Create returns ErrEmailExists when the email is taken.
	Create(ctx context.Context, user User) (int64, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	MarkVerified(ctx context.Context, id int64) error
	UpdateContact(ctx context.Context, id int64, phone, address *string) error
}

type TokenRepository interface {
	// Upsert replaces any token the user already has.
	Upsert(ctx context.Context, t Token) error
	// Find looks a token up by value without looking at its expiry.
	Find(ctx context.Context, value string) (Token, error)
	// FindActive only returns tokens that have not expired yet.
	FindActive(ctx context.Context, value string) (Token, error)
	Delete(ctx context.Context, value string) error
}

type InMemoryRepository struct {
	mu     sync.RWMutex
	users  []User
	nextID int64
}

func NewInMemoryRepository(seed []User) *InMemoryRepository {
	repo := &InMemoryRepository{
		users:  make([]User, 0, len(seed)),
		nextID: 1,
	}

	var maxID int64
	for _, user := range seed {
		repo.users = append(repo.users, user)
		if user.ID > maxID {
			maxID = user.ID
		}
	}

	repo.nextID = maxID + 1
	return repo
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int64) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) GetByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *InMemoryRepository) Create(_ context.Context, user User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return 0, ErrEmailExists
		}
	}
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	r.users = append(r.users, user)
	return user.ID, nil
}

func (r *InMemoryRepository) update(id int64, fn func(u *User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.users {
		if r.users[i].ID == id {
			fn(&r.users[i])
			return nil
		}
	}
	return ErrNotFound
}

func (r *InMemoryRepository) UpdatePassword(_ context.Context, id int64, hash string) error {
	return r.update(id, func(u *User) { u.Password = hash })
}

func (r *InMemoryRepository) MarkVerified(_ context.Context, id int64) error {
	return r.update(id, func(u *User) { u.IsVerified = true })
}

func (r *InMemoryRepository) UpdateContact(_ context.Context, id int64, phone, address *string) error {
	return r.update(id, func(u *User) {
		u.Phone = phone
		u.Address = address
	})
}

// InMemoryTokenRepository keys tokens by user id like the unique
// constraint on the table does.
type InMemoryTokenRepository struct {
	mu     sync.RWMutex
	byUser map[int64]Token
	now    func() time.Time
}

func NewInMemoryTokenRepository(now func() time.Time) *InMemoryTokenRepository {
	if now == nil {
		now = time.Now
	}
	return &InMemoryTokenRepository{byUser: map[int64]Token{}, now: now}
}

func (r *InMemoryTokenRepository) Upsert(_ context.Context, t Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[t.UserID] = t
	return nil
}

func (r *InMemoryTokenRepository) Find(_ context.Context, value string) (Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.byUser {
		if t.Value == value {
			return t, nil
		}
	}
	return Token{}, errTokenNotFound
}

func (r *InMemoryTokenRepository) FindActive(ctx context.Context, value string) (Token, error) {
	t, err := r.Find(ctx, value)
	if err != nil {
		return Token{}, err
	}
	if !t.ExpiresAt.After(r.now()) {
		return Token{}, errTokenNotFound
	}
	return t, nil
}

func (r *InMemoryTokenRepository) Delete(_ context.Context, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.byUser {
		if t.Value == value {
			delete(r.byUser, id)
		}
	}
	return nil
}

// Len reports how many token rows exist.
func (r *InMemoryTokenRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

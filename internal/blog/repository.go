package blog

import (
	"context"
	"sort"
	"sync"
	"time"
)

type Repository interface {
	// List returns posts newest first.
	List(ctx context.Context) ([]Post, error)
	Create(ctx context.Context, p Post) (int64, error)
	// Delete reports how many rows were removed.
	Delete(ctx context.Context, id int64) (int64, error)
}

type InMemoryRepository struct {
	mu     sync.RWMutex
	posts  []Post
	nextID int64
	now    func() time.Time
}

func NewInMemoryRepository(seed []Post) *InMemoryRepository {
	repo := &InMemoryRepository{nextID: 1, now: time.Now}
	for _, p := range seed {
		repo.posts = append(repo.posts, p)
		if p.ID >= repo.nextID {
			repo.nextID = p.ID + 1
		}
	}
	return repo
}

func (r *InMemoryRepository) List(_ context.Context) ([]Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Post, len(r.posts))
	copy(out, r.posts)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *InMemoryRepository) Create(_ context.Context, p Post) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = r.nextID
	r.nextID++
	p.CreatedAt = r.now()
	r.posts = append(r.posts, p)
	return p.ID, nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.posts {
		if p.ID == id {
			r.posts = append(r.posts[:i], r.posts[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

package product

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/klimatholod/store-backend/internal/apperror"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no product has the requested id.
var ErrNotFound = fmt.Errorf("product %w", apperror.ErrNotFound)

type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, p Product) (int64, error)
	// Update rewrites every field except Image and CreatedAt.
	Update(ctx context.Context, p Product) error
	UpdateImages(ctx context.Context, id int64, images []string) error
	Delete(ctx context.Context, id int64) error
	// UpdateDiscounts applies all entries or none. An invalid entry aborts
	// the whole batch.
	UpdateDiscounts(ctx context.Context, entries []DiscountEntry) error
}

// InMemoryRepository is a simple in-memory implementation useful for tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []Product
	nextID  int64
}

func NewInMemoryRepository(seed []Product) *InMemoryRepository {
	r := &InMemoryRepository{
		storage: make([]Product, 0, len(seed)),
		nextID:  1,
	}

	var maxID int64
	for _, p := range seed {
		r.storage = append(r.storage, cloneProduct(p))
		if p.ID > maxID {
			maxID = p.ID
		}
	}

	r.nextID = maxID + 1
	return r
}

func (r *InMemoryRepository) List(_ context.Context) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Product, len(r.storage))
	for i, p := range r.storage {
		out[i] = cloneProduct(p)
	}
	return out, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int64) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.storage {
		if p.ID == id {
			return cloneProduct(p), nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *InMemoryRepository) Create(_ context.Context, p Product) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	r.storage = append(r.storage, cloneProduct(p))
	return p.ID, nil
}

func (r *InMemoryRepository) Update(_ context.Context, p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID == p.ID {
			p.Image = r.storage[i].Image
			p.CreatedAt = r.storage[i].CreatedAt
			r.storage[i] = cloneProduct(p)
			return nil
		}
	}
	return ErrNotFound
}

func (r *InMemoryRepository) UpdateImages(_ context.Context, id int64, images []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID == id {
			r.storage[i].Image = append([]string(nil), images...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *InMemoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID == id {
			r.storage = append(r.storage[:i], r.storage[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// UpdateDiscounts stages the changes and only publishes them when every
// entry is valid.
func (r *InMemoryRepository) UpdateDiscounts(_ context.Context, entries []DiscountEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staged := make(map[int64]decimal.Decimal, len(entries))
	for _, e := range entries {
		id, d, err := e.parse()
		if err != nil {
			return err
		}
		staged[id] = d
	}
	for i := range r.storage {
		if d, ok := staged[r.storage[i].ID]; ok {
			r.storage[i].Discount = d
		}
	}
	return nil
}

func cloneProduct(p Product) Product {
	p.Image = append([]string(nil), p.Image...)
	p.Specs = append([]Spec(nil), p.Specs...)
	return p
}

package order

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/klimatholod/store-backend/internal/apperror"
)

// Repository defines persistence operations for orders.
type Repository interface {
	// Create stores the header and every item, or nothing.
	Create(ctx context.Context, o Order) (int64, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	// ListAll also fills UserName.
	ListAll(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id int64, s Status) error
}

func notFound(id int64) error {
	return apperror.NotFound(fmt.Sprintf("order with id %d not found", id))
}

// InMemoryRepository is a simple in-memory implementation useful for tests.
type InMemoryRepository struct {
	mu        sync.RWMutex
	orders    []Order
	userNames map[int64]string
	nextID    int64
	nextItem  int64
	now       func() time.Time
}

func NewInMemoryRepository(userNames map[int64]string) *InMemoryRepository {
	if userNames == nil {
		userNames = map[int64]string{}
	}
	return &InMemoryRepository{
		userNames: userNames,
		nextID:    1,
		nextItem:  1,
		now:       time.Now,
	}
}

func (r *InMemoryRepository) Create(_ context.Context, o Order) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o.ID = r.nextID
	r.nextID++
	o.CreatedAt = r.now()

	items := make([]Item, len(o.Items))
	for i, it := range o.Items {
		it.ID = r.nextItem
		it.OrderID = o.ID
		r.nextItem++
		items[i] = it
	}
	o.Items = items
	r.orders = append(r.orders, o)
	return o.ID, nil
}

func (r *InMemoryRepository) ListByUser(_ context.Context, userID int64) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Order, 0)
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, copyOrder(o))
		}
	}
	newestFirst(out)
	return out, nil
}

func (r *InMemoryRepository) ListAll(_ context.Context) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Order, 0, len(r.orders))
	for _, o := range r.orders {
		o = copyOrder(o)
		if name, ok := r.userNames[o.UserID]; ok {
			o.UserName = &name
		}
		out = append(out, o)
	}
	newestFirst(out)
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(_ context.Context, id int64, s Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].ID == id {
			r.orders[i].Status = s
			return nil
		}
	}
	return notFound(id)
}

func copyOrder(o Order) Order {
	o.Items = append([]Item(nil), o.Items...)
	return o
}

func newestFirst(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

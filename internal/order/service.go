package order

import (
	"context"
	"fmt"

	"github.com/klimatholod/store-backend/internal/apperror"
)

// Service provides business logic for orders.
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

// Create validates the order and stores it. Nothing is written when
// validation fails.
func (s *Service) Create(ctx context.Context, o Order) (int64, error) {
	if err := validate(&o); err != nil {
		return 0, err
	}
	return s.repo.Create(ctx, o)
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	if userID <= 0 {
		return nil, apperror.Validation("invalid user id")
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) UpdateStatus(ctx context.Context, id int64, st Status) error {
	if !st.Valid() {
		return invalidStatus(st)
	}
	return s.repo.UpdateStatus(ctx, id, st)
}

func invalidStatus(st Status) error {
	return apperror.Validation(fmt.Sprintf("invalid status %q: must be one of [%s]", st, statusList()))
}

func validate(o *Order) error {
	if o.UserID <= 0 {
		return apperror.Validation("user_id is required")
	}
	if len(o.Items) == 0 {
		return apperror.Validation("items must be a non-empty list")
	}
	if o.Status == "" {
		o.Status = StatusProcessing
	} else if !o.Status.Valid() {
		return invalidStatus(o.Status)
	}
	for i, it := range o.Items {
		if it.ProductID <= 0 {
			return apperror.Validation(fmt.Sprintf("items[%d]: product_id is required", i))
		}
		if it.Quantity <= 0 {
			return apperror.Validation(fmt.Sprintf("items[%d]: quantity must be positive", i))
		}
	}
	return nil
}

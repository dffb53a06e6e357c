package product

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/klimatholod/store-backend/internal/apperror"
	"github.com/klimatholod/store-backend/internal/storage"
)

type Service struct {
	repo  Repository
	store storage.Store
}

func NewService(repo Repository, store storage.Store) *Service {
	return &Service{repo: repo, store: store}
}

func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetByID(ctx, id)
}

// Create stores the uploaded images and inserts the product with their
// paths in upload order.
func (s *Service) Create(ctx context.Context, p Product, files []*multipart.FileHeader) (int64, error) {
	if len(files) == 0 {
		return 0, apperror.Validation("at least one image is required")
	}
	if len(files) > MaxImages {
		return 0, apperror.Validation(fmt.Sprintf("at most %d images are allowed", MaxImages))
	}

	p.Image = make([]string, 0, len(files))
	for _, fh := range files {
		path, err := s.store.Save(ctx, fh)
		if err != nil {
			storage.Discard(ctx, s.store, p.Image...)
			return 0, err
		}
		p.Image = append(p.Image, path)
	}
	id, err := s.repo.Create(ctx, p)
	if err != nil {
		storage.Discard(ctx, s.store, p.Image...)
		return 0, err
	}
	return id, nil
}

func (s *Service) Update(ctx context.Context, p Product) error {
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// ReplaceImage overwrites one existing image slot. The list is never
// extended, so index must point at a slot that is already filled.
func (s *Service) ReplaceImage(ctx context.Context, id int64, index int, fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", apperror.Validation("image file is required")
	}
	if index < 0 || index >= MaxImages {
		return "", apperror.Validation(fmt.Sprintf("image index must be between 0 and %d", MaxImages-1))
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if index >= len(p.Image) {
		return "", apperror.Validation("image index out of range")
	}

	path, err := s.store.Save(ctx, fh)
	if err != nil {
		return "", err
	}
	p.Image[index] = path
	if err := s.repo.UpdateImages(ctx, id, p.Image); err != nil {
		storage.Discard(ctx, s.store, path)
		return "", err
	}
	return path, nil
}

func (s *Service) UpdateDiscounts(ctx context.Context, entries []DiscountEntry) error {
	if len(entries) == 0 {
		return apperror.Validation("products must be a non-empty list")
	}
	return s.repo.UpdateDiscounts(ctx, entries)
}

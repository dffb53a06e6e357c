package blog

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

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

func (s *Service) List(ctx context.Context) ([]Post, error) {
	return s.repo.List(ctx)
}

// Create stores an optional image before inserting the post. The post keeps
// the untrimmed title and content.
func (s *Service) Create(ctx context.Context, title, content string, image *multipart.FileHeader) (Post, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return Post{}, apperror.Validation("title and content are required")
	}

	p := Post{Title: title, Content: content, Author: Author}
	if image != nil {
		path, err := s.store.Save(ctx, image)
		if err != nil {
			return Post{}, err
		}
		p.Image = &path
	}

	id, err := s.repo.Create(ctx, p)
	if err != nil {
		if p.Image != nil {
			storage.Discard(ctx, s.store, *p.Image)
		}
		return Post{}, err
	}
	p.ID = id
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id int64) (int64, error) {
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, apperror.NotFound(fmt.Sprintf("blog post with id %d not found", id))
	}
	return n, nil
}

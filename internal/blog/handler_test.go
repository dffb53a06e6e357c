package blog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	saved   []string
	removed []string
}

func (s *fakeStore) Save(_ context.Context, fh *multipart.FileHeader) (string, error) {
	p := "/uploads/" + fh.Filename
	s.saved = append(s.saved, p)
	return p, nil
}

func (s *fakeStore) Remove(_ context.Context, p string) error {
	s.removed = append(s.removed, p)
	return nil
}

type brokenRepo struct {
	*InMemoryRepository
}

func (brokenRepo) Create(context.Context, Post) (int64, error) {
	return 0, errors.New("connection reset")
}

func newApp(seed []Post) (*fiber.App, *InMemoryRepository, *fakeStore) {
	repo := NewInMemoryRepository(seed)
	store := &fakeStore{}
	h := NewHandler(NewService(repo, store), nil)
	app := fiber.New()
	h.RegisterPublicRoutes(app)
	h.RegisterAdminRoutes(app)
	return app, repo, store
}

func postForm(t *testing.T, fields map[string]string, file string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != "" {
		part, err := w.CreateFormFile("image", file)
		require.NoError(t, err)
		part.Write([]byte("img"))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/blog-posts", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, res *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(res.Body).Decode(v))
}

func TestCreatePost(t *testing.T) {
	app, repo, store := newApp(nil)

	res, err := app.Test(postForm(t, map[string]string{"title": "Winter", "content": "Check the compressor"}, "unit.png"), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, res.StatusCode)

	var body map[string]any
	decode(t, res, &body)
	assert.Equal(t, float64(1), body["id"])
	assert.Equal(t, "/uploads/unit.png", body["image"])
	assert.Equal(t, []string{"/uploads/unit.png"}, store.saved)

	posts, _ := repo.List(context.Background())
	require.Len(t, posts, 1)
	assert.Equal(t, Author, posts[0].Author)
}

func TestCreatePost_RemovesImageWhenInsertFails(t *testing.T) {
	store := &fakeStore{}
	app := fiber.New()
	NewHandler(NewService(brokenRepo{NewInMemoryRepository(nil)}, store), nil).RegisterAdminRoutes(app)

	res, err := app.Test(postForm(t, map[string]string{"title": "T", "content": "C"}, "unit.png"), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, []string{"/uploads/unit.png"}, store.removed)
}

func TestCreatePost_WithoutImage(t *testing.T) {
	app, _, store := newApp(nil)

	res, err := app.Test(postForm(t, map[string]string{"title": "T", "content": "C"}, ""), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, res.StatusCode)

	var body map[string]any
	decode(t, res, &body)
	_, hasImage := body["image"]
	assert.False(t, hasImage)
	assert.Empty(t, store.saved)
}

func TestCreatePost_RejectsBlankFields(t *testing.T) {
	app, repo, store := newApp(nil)

	for _, fields := range []map[string]string{
		{"title": "   ", "content": "body"},
		{"title": "title", "content": "\n\t"},
		{"content": "body"},
	} {
		res, err := app.Test(postForm(t, fields, "a.png"), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode, "fields %v", fields)
	}
	posts, _ := repo.List(context.Background())
	assert.Empty(t, posts)
	assert.Empty(t, store.saved, "no file may be stored for a rejected post")
}

func TestListPosts_NewestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	app, _, _ := newApp([]Post{
		{ID: 1, Title: "old", CreatedAt: base},
		{ID: 2, Title: "new", CreatedAt: base.Add(time.Hour)},
	})

	res, err := app.Test(httptest.NewRequest("GET", "/blog-posts", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var posts []Post
	decode(t, res, &posts)
	require.Len(t, posts, 2)
	assert.Equal(t, "new", posts[0].Title)
}

func TestDeletePost(t *testing.T) {
	app, _, _ := newApp([]Post{{ID: 4, Title: "x"}})

	res, err := app.Test(httptest.NewRequest("DELETE", "/blog-posts/4", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	var body map[string]any
	decode(t, res, &body)
	assert.Equal(t, float64(1), body["deleted"])

	res, err = app.Test(httptest.NewRequest("DELETE", "/blog-posts/4", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)

	res, err = app.Test(httptest.NewRequest("DELETE", "/blog-posts/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

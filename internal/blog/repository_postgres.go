package blog

import (
	"context"
	"database/sql"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	listPostsQuery  = `SELECT id, title, content, author, image, created_at FROM blog_posts ORDER BY created_at DESC, id DESC`
	insertPostQuery = `
		INSERT INTO blog_posts (title, content, author, image)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	deletePostQuery = `DELETE FROM blog_posts WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Post, error) {
	rows, err := r.db.QueryContext(ctx, listPostsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Post, 0)
	for rows.Next() {
		var (
			p   Post
			img sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.Author, &img, &p.CreatedAt); err != nil {
			return nil, err
		}
		if img.Valid {
			p.Image = &img.String
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, p Post) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, insertPostQuery, p.Title, p.Content, p.Author, p.Image).Scan(&id)
	return id, err
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, deletePostQuery, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

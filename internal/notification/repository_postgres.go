package notification

import (
	"context"
	"database/sql"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	listNotificationsQuery = `
		SELECT id, name, phone, email, address, items, total_price, comments, type, is_read, created_at
		FROM notifications
		ORDER BY created_at DESC, id DESC
	`
	insertNotificationQuery = `
		INSERT INTO notifications (name, phone, email, address, items, total_price, comments, type, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false)
		RETURNING id
	`
	markReadQuery           = `UPDATE notifications SET is_read = true WHERE id = $1`
	deleteNotificationQuery = `DELETE FROM notifications WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Notification, error) {
	rows, err := r.db.QueryContext(ctx, listNotificationsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Notification, 0)
	for rows.Next() {
		var (
			n   Notification
			typ sql.NullString
		)
		err := rows.Scan(&n.ID, &n.Name, &n.Phone, &n.Email, &n.Address, &n.Items,
			&n.TotalPrice, &n.Comments, &typ, &n.IsRead, &n.CreatedAt)
		if err != nil {
			return nil, err
		}
		if typ.Valid {
			n.Type = &typ.String
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, n Notification) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, insertNotificationQuery,
		n.Name, n.Phone, n.Email, n.Address, n.Items, n.TotalPrice, n.Comments, n.Type,
	).Scan(&id)
	return id, err
}

func (r *PostgresRepository) MarkRead(ctx context.Context, id int64) error {
	return r.execOne(ctx, markReadQuery, id)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, deleteNotificationQuery, id)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, id int64) error {
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

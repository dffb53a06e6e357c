package order

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/klimatholod/store-backend/internal/database"
	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	insertOrderQuery = `
		INSERT INTO orders (user_id, total_price, status, shipping_address, contact_phone, comments)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	insertItemQuery = `
		INSERT INTO order_items (order_id, product_id, quantity, price, name)
		VALUES ($1, $2, $3, $4, $5)
	`
	listByUserQuery = `
		SELECT id, user_id, total_price, status, shipping_address, contact_phone, comments, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	listAllQuery = `
		SELECT o.id, o.user_id, o.total_price, o.status, o.shipping_address, o.contact_phone, o.comments, o.created_at,
		       u.name AS user_name
		FROM orders o
		LEFT JOIN users u ON o.user_id = u.id
		ORDER BY o.created_at DESC, o.id DESC
	`
	itemsByOrdersQuery = `
		SELECT id, order_id, product_id, quantity, price, name
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, id
	`
	updateStatusQuery = `UPDATE orders SET status = $1 WHERE id = $2`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, insertOrderQuery,
			o.UserID, o.TotalPrice, string(o.Status), o.ShippingAddress, o.ContactPhone, o.Comments,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for i, it := range o.Items {
			if _, err := tx.ExecContext(ctx, insertItemQuery, id, it.ProductID, it.Quantity, it.Price, it.Name); err != nil {
				return fmt.Errorf("insert order item %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, listByUserQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, r.attachItems(ctx, out)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, listAllQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows, true)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, r.attachItems(ctx, out)
}

// attachItems loads the items of every order in one query and groups them
// in place.
func (r *PostgresRepository) attachItems(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = i
		orders[i].Items = []Item{}
	}

	rows, err := r.db.QueryContext(ctx, itemsByOrdersQuery, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price, &it.Name); err != nil {
			return err
		}
		if i, ok := index[it.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return rows.Err()
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id int64, s Status) error {
	res, err := r.db.ExecContext(ctx, updateStatusQuery, string(s), id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(scanner rowScanner, withUser bool) (Order, error) {
	var (
		o      Order
		status string
	)
	dest := []any{
		&o.ID, &o.UserID, &o.TotalPrice, &status,
		&o.ShippingAddress, &o.ContactPhone, &o.Comments, &o.CreatedAt,
	}
	if withUser {
		dest = append(dest, &o.UserName)
	}
	if err := scanner.Scan(dest...); err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	return o, nil
}

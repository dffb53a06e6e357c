package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/klimatholod/store-backend/internal/database"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	productColumns = `id, name, description, full_description, price, discount, category, specs, image, created_at`

	listProductsQuery   = `SELECT ` + productColumns + ` FROM products ORDER BY id`
	getProductByIDQuery = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	insertProductQuery  = `
		INSERT INTO products (name, description, full_description, price, discount, category, specs, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	updateProductQuery = `
		UPDATE products
		SET name = $1,
			description = $2,
			full_description = $3,
			price = $4,
			discount = $5,
			category = $6,
			specs = $7
		WHERE id = $8
	`
	updateImagesQuery   = `UPDATE products SET image = $1 WHERE id = $2`
	deleteProductQuery  = `DELETE FROM products WHERE id = $1`
	updateDiscountQuery = `UPDATE products SET discount = $1 WHERE id = $2`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, listProductsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, getProductByIDQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *PostgresRepository) Create(ctx context.Context, p Product) (int64, error) {
	specs, err := encodeList(p.Specs)
	if err != nil {
		return 0, err
	}
	images, err := encodeList(p.Image)
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.db.QueryRowContext(ctx, insertProductQuery,
		p.Name, p.Description, p.FullDescription, p.Price, p.Discount, p.Category, specs, images,
	).Scan(&id)
	return id, err
}

func (r *PostgresRepository) Update(ctx context.Context, p Product) error {
	specs, err := encodeList(p.Specs)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, updateProductQuery,
		p.Name, p.Description, p.FullDescription, p.Price, p.Discount, p.Category, specs, p.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepository) UpdateImages(ctx context.Context, id int64, images []string) error {
	encoded, err := encodeList(images)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, updateImagesQuery, encoded, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteProductQuery, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateDiscounts checks and applies each entry inside one transaction. The
// first invalid entry or failing statement rolls everything back. Ids that
// match no row are skipped silently.
func (r *PostgresRepository) UpdateDiscounts(ctx context.Context, entries []DiscountEntry) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, e := range entries {
			id, discount, err := e.parse()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, updateDiscountQuery, discount, id); err != nil {
				return fmt.Errorf("update discount of product %d: %w", id, err)
			}
		}
		return nil
	})
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(scanner rowScanner) (Product, error) {
	p := Product{}
	var specs, image sql.NullString

	if err := scanner.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.FullDescription,
		&p.Price,
		&p.Discount,
		&p.Category,
		&specs,
		&image,
		&p.CreatedAt,
	); err != nil {
		return Product{}, err
	}

	p.Specs = decodeList[Spec](specs.String)
	p.Image = decodeList[string](image.String)
	return p, nil
}

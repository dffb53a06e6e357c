package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

const (
	userColumns = `id, name, email, password, is_verified, is_admin, phone, address, created_at`

	getUserByIDQuery    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	insertUserQuery     = `
		INSERT INTO users (name, email, password, is_verified, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	updatePasswordQuery = `UPDATE users SET password = $1 WHERE id = $2`
	markVerifiedQuery   = `UPDATE users SET is_verified = true WHERE id = $1`
	updateContactQuery  = `UPDATE users SET phone = $1, address = $2 WHERE id = $3`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (User, error) {
	return scanUser(r.db.QueryRowContext(ctx, getUserByIDQuery, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.db.QueryRowContext(ctx, getUserByEmailQuery, email))
}

func (r *PostgresRepository) Create(ctx context.Context, user User) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, insertUserQuery,
		user.Name, user.Email, user.Password, user.IsVerified, user.IsAdmin,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	return id, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.execOne(ctx, updatePasswordQuery, hash, id)
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, id int64) error {
	return r.execOne(ctx, markVerifiedQuery, id)
}

func (r *PostgresRepository) UpdateContact(ctx context.Context, id int64, phone, address *string) error {
	return r.execOne(ctx, updateContactQuery, phone, address, id)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
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

func scanUser(scanner rowScanner) (User, error) {
	var u User
	err := scanner.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Password,
		&u.IsVerified,
		&u.IsAdmin,
		&u.Phone,
		&u.Address,
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// PostgresTokenRepository stores tokens in email_verification_tokens.
type PostgresTokenRepository struct {
	db *sql.DB
}

const (
	upsertTokenQuery = `
		INSERT INTO email_verification_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at
	`
	findTokenQuery       = `SELECT user_id, token, expires_at FROM email_verification_tokens WHERE token = $1`
	findActiveTokenQuery = `SELECT user_id, token, expires_at FROM email_verification_tokens WHERE token = $1 AND expires_at > NOW()`
	deleteTokenQuery     = `DELETE FROM email_verification_tokens WHERE token = $1`
)

func NewPostgresTokenRepository(db *sql.DB) *PostgresTokenRepository {
	return &PostgresTokenRepository{db: db}
}

func (r *PostgresTokenRepository) Upsert(ctx context.Context, t Token) error {
	_, err := r.db.ExecContext(ctx, upsertTokenQuery, t.UserID, t.Value, t.ExpiresAt)
	return err
}

func (r *PostgresTokenRepository) Find(ctx context.Context, value string) (Token, error) {
	return scanToken(r.db.QueryRowContext(ctx, findTokenQuery, value))
}

func (r *PostgresTokenRepository) FindActive(ctx context.Context, value string) (Token, error) {
	return scanToken(r.db.QueryRowContext(ctx, findActiveTokenQuery, value))
}

func (r *PostgresTokenRepository) Delete(ctx context.Context, value string) error {
	_, err := r.db.ExecContext(ctx, deleteTokenQuery, value)
	return err
}

func scanToken(scanner rowScanner) (Token, error) {
	var t Token
	err := scanner.Scan(&t.UserID, &t.Value, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Token{}, errTokenNotFound
	}
	return t, err
}

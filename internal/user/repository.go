package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/fuel-tracker/internal/database"
)

// Repository は資格情報ストアのインターフェースです。
type Repository interface {
	// FindByEmail はメールアドレスで検索します（大文字小文字を区別しない）。
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	// Create はユーザーを作成します。メールアドレスが使用済みの場合は
	// ErrEmailTaken を返します。
	Create(ctx context.Context, email, passwordHash string, displayName *string) (*User, error)
}

var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository は Repository の Postgres 実装です。
type PostgresRepository struct {
	db *database.DB
}

// NewPostgresRepository は PostgresRepository を作成します。
func NewPostgresRepository(db *database.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, password_hash, display_name, currency, distance_unit, volume_unit, time_zone, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName,
		&u.Currency, &u.DistanceUnit, &u.VolumeUnit, &u.TimeZone,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEmail はメールアドレスで検索します。
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) LIMIT 1`

	u, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return u, nil
}

// FindByID は ID で検索します。
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}
	return u, nil
}

// Create はユーザーを作成します。
// 事前チェックをすり抜けた重複は一意インデックスが拒否するため、
// 23505 を ErrEmailTaken に写像します。
func (r *PostgresRepository) Create(ctx context.Context, email, passwordHash string, displayName *string) (*User, error) {
	query := `INSERT INTO users (email, password_hash, display_name)
			  VALUES ($1, $2, $3)
			  RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query, email, passwordHash, displayName))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

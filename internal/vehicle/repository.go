package vehicle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/fuel-tracker/internal/database"
)

// Repository は車両ストアのインターフェースです。
// 全てのクエリは所有者IDで暗黙にスコープされます。
type Repository interface {
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]Vehicle, error)
	GetByID(ctx context.Context, owner, id uuid.UUID) (*Vehicle, error)
	// NameExists は所有者内で名前が使用済みかを調べます（大文字小文字を区別しない）。
	// excludeID が uuid.Nil でない場合、そのIDの車両は除外します。
	NameExists(ctx context.Context, owner uuid.UUID, name string, excludeID uuid.UUID) (bool, error)
	Create(ctx context.Context, v *Vehicle) (*Vehicle, error)
	Update(ctx context.Context, owner, id uuid.UUID, params UpdateParams) (*Vehicle, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error
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

const vehicleColumns = `id, user_id, name, make, model, year, fuel_type, created_at, updated_at`

func scanVehicle(row pgx.Row) (*Vehicle, error) {
	var v Vehicle
	err := row.Scan(
		&v.ID, &v.UserID, &v.Name, &v.Make, &v.Model, &v.Year, &v.FuelType,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListByOwner は所有者の車両を作成日時の降順で返します。
func (r *PostgresRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := make([]Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		vehicles = append(vehicles, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vehicles: %w", err)
	}
	return vehicles, nil
}

// GetByID は所有者の車両を取得します。
func (r *PostgresRepository) GetByID(ctx context.Context, owner, id uuid.UUID) (*Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1 AND user_id = $2`

	v, err := scanVehicle(r.db.QueryRow(ctx, query, id, owner))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return v, nil
}

// NameExists は所有者内で名前が使用済みかを調べます。
func (r *PostgresRepository) NameExists(ctx context.Context, owner uuid.UUID, name string, excludeID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM vehicles
		WHERE user_id = $1 AND lower(name) = lower($2) AND ($3::uuid IS NULL OR id <> $3)
	)`

	var exclude *uuid.UUID
	if excludeID != uuid.Nil {
		exclude = &excludeID
	}

	var exists bool
	if err := r.db.QueryRow(ctx, query, owner, strings.TrimSpace(name), exclude).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check vehicle name: %w", err)
	}
	return exists, nil
}

// Create は車両を作成します。
// 事前チェックをすり抜けた重複は一意インデックスが拒否するため、
// 23505 を ErrDuplicateName に写像します。
func (r *PostgresRepository) Create(ctx context.Context, v *Vehicle) (*Vehicle, error) {
	query := `INSERT INTO vehicles (user_id, name, make, model, year, fuel_type)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING ` + vehicleColumns

	created, err := scanVehicle(r.db.QueryRow(ctx, query,
		v.UserID, v.Name, v.Make, v.Model, v.Year, v.FuelType,
	))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}
	return created, nil
}

// Update は指定フィールドのみを更新します。
func (r *PostgresRepository) Update(ctx context.Context, owner, id uuid.UUID, params UpdateParams) (*Vehicle, error) {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 7)

	push := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Name != nil {
		push("name", *params.Name)
	}
	if params.Make != nil {
		push("make", *params.Make)
	}
	if params.Model != nil {
		push("model", *params.Model)
	}
	if params.Year != nil {
		push("year", *params.Year)
	}
	if params.FuelType != nil {
		push("fuel_type", *params.FuelType)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, owner, id)
	}

	args = append(args, owner, id)
	query := fmt.Sprintf(
		`UPDATE vehicles SET %s, updated_at = now() WHERE user_id = $%d AND id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args)-1, len(args), vehicleColumns,
	)

	v, err := scanVehicle(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to update vehicle: %w", err)
	}
	return v, nil
}

// Delete は所有者の車両を削除します。従属する給油記録はスキーマの
// ON DELETE CASCADE により同時に削除されます。
func (r *PostgresRepository) Delete(ctx context.Context, owner, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM vehicles WHERE id = $1 AND user_id = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

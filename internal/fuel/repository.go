package fuel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/fuel-tracker/internal/database"
)

// Repository は給油記録ストアのインターフェースです。
// 全てのクエリは所有者IDで暗黙にスコープされます。
type Repository interface {
	List(ctx context.Context, owner uuid.UUID, filter ListFilter) ([]Entry, error)
	GetByID(ctx context.Context, owner, id uuid.UUID) (*Entry, error)
	Create(ctx context.Context, e *Entry) (*Entry, error)
	Update(ctx context.Context, owner, id uuid.UUID, params UpdateParams) (*Entry, error)
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

const entryColumns = `id, user_id, vehicle_id, occurred_at, odometer, volume, price_total, price_per_unit, is_full, missed_fillups, note, created_at, updated_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID, &e.UserID, &e.VehicleID, &e.OccurredAt, &e.Odometer, &e.Volume,
		&e.PriceTotal, &e.PricePerUnit, &e.IsFull, &e.MissedFillups, &e.Note,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List は所有者の給油記録を発生日時の降順（同時刻は作成日時の降順）で返します。
func (r *PostgresRepository) List(ctx context.Context, owner uuid.UUID, filter ListFilter) ([]Entry, error) {
	args := []any{owner}
	where := "user_id = $1"
	if filter.VehicleID != nil {
		args = append(args, *filter.VehicleID)
		where += fmt.Sprintf(" AND vehicle_id = $%d", len(args))
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(
		`SELECT %s FROM fuel_entries WHERE %s
		 ORDER BY occurred_at DESC, created_at DESC
		 LIMIT $%d OFFSET $%d`,
		entryColumns, where, len(args)-1, len(args),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list fuel entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fuel entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fuel entries: %w", err)
	}
	return entries, nil
}

// GetByID は所有者の給油記録を取得します。
func (r *PostgresRepository) GetByID(ctx context.Context, owner, id uuid.UUID) (*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM fuel_entries WHERE id = $1 AND user_id = $2`

	e, err := scanEntry(r.db.QueryRow(ctx, query, id, owner))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get fuel entry: %w", err)
	}
	return e, nil
}

// Create は給油記録を作成します。
func (r *PostgresRepository) Create(ctx context.Context, e *Entry) (*Entry, error) {
	query := `INSERT INTO fuel_entries
			  (user_id, vehicle_id, occurred_at, odometer, volume, price_total, price_per_unit, is_full, missed_fillups, note)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING ` + entryColumns

	created, err := scanEntry(r.db.QueryRow(ctx, query,
		e.UserID, e.VehicleID, e.OccurredAt, e.Odometer, e.Volume,
		e.PriceTotal, e.PricePerUnit, e.IsFull, e.MissedFillups, e.Note,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create fuel entry: %w", err)
	}
	return created, nil
}

// Update は指定フィールドのみを更新します。
func (r *PostgresRepository) Update(ctx context.Context, owner, id uuid.UUID, params UpdateParams) (*Entry, error) {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 10)

	push := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.OccurredAt != nil {
		push("occurred_at", *params.OccurredAt)
	}
	if params.Odometer != nil {
		push("odometer", *params.Odometer)
	}
	if params.Volume != nil {
		push("volume", *params.Volume)
	}
	if params.PriceTotal != nil {
		push("price_total", *params.PriceTotal)
	}
	if params.PricePerUnit != nil {
		push("price_per_unit", *params.PricePerUnit)
	}
	if params.IsFull != nil {
		push("is_full", *params.IsFull)
	}
	if params.MissedFillups != nil {
		push("missed_fillups", *params.MissedFillups)
	}
	if params.Note != nil {
		push("note", *params.Note)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, owner, id)
	}

	args = append(args, owner, id)
	query := fmt.Sprintf(
		`UPDATE fuel_entries SET %s, updated_at = now() WHERE user_id = $%d AND id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args)-1, len(args), entryColumns,
	)

	e, err := scanEntry(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update fuel entry: %w", err)
	}
	return e, nil
}

// Delete は所有者の給油記録を削除します。
func (r *PostgresRepository) Delete(ctx context.Context, owner, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM fuel_entries WHERE id = $1 AND user_id = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete fuel entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

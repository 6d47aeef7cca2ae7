package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/fuel-tracker/internal/database"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore は Store の Postgres 実装です。
// 複数プロセスで共有できるため、水平スケールしても安全です。
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore は PostgresStore を作成します。
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create はセッションを保存します。
func (s *PostgresStore) Create(ctx context.Context, sess *Session) error {
	query := `INSERT INTO sessions (id, user_id, csrf_secret, created_at, expires_at)
			  VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.Exec(ctx, query, sess.ID, sess.UserID, sess.CSRFSecret, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get は ID でセッションを取得します。
func (s *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	query := `SELECT id, user_id, csrf_secret, created_at, expires_at
			  FROM sessions WHERE id = $1`

	var sess Session
	err := s.db.QueryRow(ctx, query, id).Scan(
		&sess.ID, &sess.UserID, &sess.CSRFSecret, &sess.CreatedAt, &sess.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &sess, nil
}

// BindUser はセッションをユーザーに紐付けます。
func (s *PostgresStore) BindUser(ctx context.Context, id string, userID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `UPDATE sessions SET user_id = $2 WHERE id = $1`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to bind user to session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete はセッションを削除します。存在しない場合もエラーにしません。
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Touch は有効期限を延長します。
func (s *PostgresStore) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := s.db.Exec(ctx, `UPDATE sessions SET expires_at = $2 WHERE id = $1`, id, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れセッションを削除します。
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

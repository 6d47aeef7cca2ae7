// Package user はユーザーモデルと資格情報ストアを提供します。
package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound は該当するユーザーが存在しないことを示します。
var ErrNotFound = errors.New("user not found")

// ErrEmailTaken はメールアドレスが既に使用されていることを示します。
var ErrEmailTaken = errors.New("email already in use")

// User はユーザーレコードです。パスワードハッシュを含むため、
// レスポンスには必ず Public() の射影を使います。
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	DisplayName  *string
	Currency     *string
	DistanceUnit *string
	VolumeUnit   *string
	TimeZone     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser はクライアントへ返す公開射影です。
type PublicUser struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  *string   `json:"displayName"`
	Currency     *string   `json:"currency"`
	DistanceUnit *string   `json:"distanceUnit"`
	VolumeUnit   *string   `json:"volumeUnit"`
	TimeZone     *string   `json:"timeZone"`
}

// Public は公開射影を返します。
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		Currency:     u.Currency,
		DistanceUnit: u.DistanceUnit,
		VolumeUnit:   u.VolumeUnit,
		TimeZone:     u.TimeZone,
	}
}

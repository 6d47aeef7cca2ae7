package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost はパスワードハッシュの既定コスト係数です。
// オフライン総当たりに耐える強度を既定とします。
const DefaultBcryptCost = 12

// PasswordHasher は bcrypt によるパスワードの導出と検証を担います。
// 平文パスワードは保存もログ出力もしません。
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher は PasswordHasher を作成します。
// cost が範囲外の場合は既定値を使います。
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash は平文からハッシュを導出します。
func (h *PasswordHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify は平文とハッシュの一致を検証します。
func (h *PasswordHasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

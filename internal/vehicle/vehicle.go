// Package vehicle は所有者スコープの車両CRUDを提供します。
//
// 全ての参照・変更は呼び出し元のユーザーIDで絞り込まれます。他人の車両は
// 存在しない車両と区別できず、どちらも 404 になります。
package vehicle

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound は車両が存在しない（または所有していない）ことを示します。
var ErrNotFound = errors.New("vehicle not found")

// ErrDuplicateName は所有者内で車両名が重複していることを示します。
var ErrDuplicateName = errors.New("vehicle name already exists")

// 製造年の下限。世界初のガソリン自動車の年です。
const MinYear = 1886

// Vehicle は車両レコードです。
type Vehicle struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	Make      *string   `json:"make"`
	Model     *string   `json:"model"`
	Year      *int      `json:"year"`
	FuelType  *string   `json:"fuelType"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UpdateParams は部分更新の対象フィールドです。nil のフィールドは変更しません。
type UpdateParams struct {
	Name     *string
	Make     *string
	Model    *string
	Year     *int
	FuelType *string
}

// Empty は更新対象フィールドが一つも無いかを返します。
func (p *UpdateParams) Empty() bool {
	return p.Name == nil && p.Make == nil && p.Model == nil && p.Year == nil && p.FuelType == nil
}

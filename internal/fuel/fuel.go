// Package fuel は所有者スコープの給油記録CRUDを提供します。
//
// 給油記録は必ず呼び出し元が所有する車両に属します。作成時に親車両の
// 所有を検証し、他人の車両は存在しない車両と同じく 404 になります。
package fuel

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound は給油記録が存在しない（または所有していない）ことを示します。
var ErrNotFound = errors.New("fuel entry not found")

// Entry は給油記録です。
type Entry struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"userId"`
	VehicleID     uuid.UUID `json:"vehicleId"`
	OccurredAt    time.Time `json:"occurredAt"`
	Odometer      *float64  `json:"odometer"`
	Volume        float64   `json:"volume"`
	PriceTotal    *float64  `json:"priceTotal"`
	PricePerUnit  *float64  `json:"pricePerUnit"`
	IsFull        bool      `json:"isFull"`
	MissedFillups int       `json:"missedFillups"`
	Note          *string   `json:"note"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ListFilter は一覧の絞り込みとページングの条件です。
type ListFilter struct {
	VehicleID *uuid.UUID
	Limit     int
	Offset    int
}

// UpdateParams は部分更新の対象フィールドです。nil のフィールドは変更しません。
type UpdateParams struct {
	OccurredAt    *time.Time
	Odometer      *float64
	Volume        *float64
	PriceTotal    *float64
	PricePerUnit  *float64
	IsFull        *bool
	MissedFillups *int
	Note          *string
}

// Empty は更新対象フィールドが一つも無いかを返します。
func (p *UpdateParams) Empty() bool {
	return p.OccurredAt == nil && p.Odometer == nil && p.Volume == nil &&
		p.PriceTotal == nil && p.PricePerUnit == nil && p.IsFull == nil &&
		p.MissedFillups == nil && p.Note == nil
}

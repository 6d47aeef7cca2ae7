package fuel

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/fuel-tracker/internal/apperr"
	"github.com/yourusername/fuel-tracker/internal/session"
	"github.com/yourusername/fuel-tracker/internal/vehicle"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// VehicleStore は親車両の所有確認に必要な操作です。
// vehicle.Repository がこれを満たします。
type VehicleStore interface {
	GetByID(ctx context.Context, owner, id uuid.UUID) (*vehicle.Vehicle, error)
}

// Handler は給油記録エンドポイントのハンドラー群です。
type Handler struct {
	repo     Repository
	vehicles VehicleStore
}

// NewHandler は Handler を作成します。
func NewHandler(repo Repository, vehicles VehicleStore) *Handler {
	return &Handler{repo: repo, vehicles: vehicles}
}

type createRequest struct {
	VehicleID     string     `json:"vehicleId"`
	OccurredAt    *time.Time `json:"occurredAt"`
	Odometer      *float64   `json:"odometer"`
	Volume        *float64   `json:"volume"`
	PriceTotal    *float64   `json:"priceTotal"`
	PricePerUnit  *float64   `json:"pricePerUnit"`
	IsFull        *bool      `json:"isFull"`
	MissedFillups *int       `json:"missedFillups"`
	Note          *string    `json:"note"`
}

type updateRequest struct {
	OccurredAt    *time.Time `json:"occurredAt"`
	Odometer      *float64   `json:"odometer"`
	Volume        *float64   `json:"volume"`
	PriceTotal    *float64   `json:"priceTotal"`
	PricePerUnit  *float64   `json:"pricePerUnit"`
	IsFull        *bool      `json:"isFull"`
	MissedFillups *int       `json:"missedFillups"`
	Note          *string    `json:"note"`
}

func nonNegative(field string, value *float64) *apperr.FieldError {
	if value != nil && *value < 0 {
		return &apperr.FieldError{Field: field, Message: field + " must be >= 0"}
	}
	return nil
}

// List は GET /api/fuel のハンドラーです。
// vehicleId・limit・offset のクエリパラメーターに対応します。
func (h *Handler) List(c *gin.Context) {
	filter := ListFilter{Limit: defaultListLimit}
	var errs []apperr.FieldError

	if raw := c.Query("vehicleId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			errs = append(errs, apperr.FieldError{Field: "vehicleId", Message: "vehicleId must be a valid id"})
		} else {
			filter.VehicleID = &id
		}
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errs = append(errs, apperr.FieldError{Field: "limit", Message: "limit must be a positive integer"})
		} else {
			filter.Limit = min(n, maxListLimit)
		}
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errs = append(errs, apperr.FieldError{Field: "offset", Message: "offset must be a non-negative integer"})
		} else {
			filter.Offset = n
		}
	}
	if len(errs) > 0 {
		apperr.Abort(c, apperr.Validation(errs...))
		return
	}

	entries, err := h.repo.List(c.Request.Context(), session.UserID(c), filter)
	if err != nil {
		apperr.Abort(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Create は POST /api/fuel のハンドラーです。
// 参照先の車両が呼び出し元の所有であることを挿入前に検証します。
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.BadRequest("Invalid JSON body"))
		return
	}

	var errs []apperr.FieldError
	var vehicleID uuid.UUID
	if req.VehicleID == "" {
		errs = append(errs, apperr.FieldError{Field: "vehicleId", Message: "vehicleId is required"})
	} else {
		parsed, err := uuid.Parse(req.VehicleID)
		if err != nil {
			errs = append(errs, apperr.FieldError{Field: "vehicleId", Message: "vehicleId must be a valid id"})
		} else {
			vehicleID = parsed
		}
	}
	if req.Volume == nil || *req.Volume <= 0 {
		errs = append(errs, apperr.FieldError{Field: "volume", Message: "volume must be > 0"})
	}
	for _, check := range []struct {
		field string
		value *float64
	}{
		{"odometer", req.Odometer},
		{"priceTotal", req.PriceTotal},
		{"pricePerUnit", req.PricePerUnit},
	} {
		if fieldErr := nonNegative(check.field, check.value); fieldErr != nil {
			errs = append(errs, *fieldErr)
		}
	}
	if req.MissedFillups != nil && *req.MissedFillups < 0 {
		errs = append(errs, apperr.FieldError{Field: "missedFillups", Message: "missedFillups must be >= 0"})
	}
	if len(errs) > 0 {
		apperr.Abort(c, apperr.Validation(errs...))
		return
	}

	ctx := c.Request.Context()
	owner := session.UserID(c)

	// 親車両の所有確認。他人の車両は存在しない車両と同じ扱い
	if _, err := h.vehicles.GetByID(ctx, owner, vehicleID); err != nil {
		if errors.Is(err, vehicle.ErrNotFound) {
			apperr.Abort(c, apperr.NotFound("Vehicle not found"))
			return
		}
		apperr.Abort(c, apperr.Internal(err))
		return
	}

	entry := &Entry{
		UserID:        owner,
		VehicleID:     vehicleID,
		OccurredAt:    time.Now().UTC(),
		Odometer:      req.Odometer,
		Volume:        *req.Volume,
		PriceTotal:    req.PriceTotal,
		PricePerUnit:  req.PricePerUnit,
		IsFull:        true,
		MissedFillups: 0,
		Note:          req.Note,
	}
	if req.OccurredAt != nil {
		entry.OccurredAt = *req.OccurredAt
	}
	if req.IsFull != nil {
		entry.IsFull = *req.IsFull
	}
	if req.MissedFillups != nil {
		entry.MissedFillups = *req.MissedFillups
	}
	// 単価が省略され、総額と量が揃っていれば書き込み時に導出する
	if entry.PricePerUnit == nil && entry.PriceTotal != nil {
		perUnit := *entry.PriceTotal / entry.Volume
		entry.PricePerUnit = &perUnit
	}

	created, err := h.repo.Create(ctx, entry)
	if err != nil {
		apperr.Abort(c, apperr.Internal(err))
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Update は PUT /api/fuel/:id のハンドラーです。
// 指定されたフィールドのみ更新し、空ボディは現在の表現を返すだけの
// 無操作（200）です。
func (h *Handler) Update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.BadRequest("Invalid JSON body"))
		return
	}

	var errs []apperr.FieldError
	if req.Volume != nil && *req.Volume <= 0 {
		errs = append(errs, apperr.FieldError{Field: "volume", Message: "volume must be > 0"})
	}
	for _, check := range []struct {
		field string
		value *float64
	}{
		{"odometer", req.Odometer},
		{"priceTotal", req.PriceTotal},
		{"pricePerUnit", req.PricePerUnit},
	} {
		if fieldErr := nonNegative(check.field, check.value); fieldErr != nil {
			errs = append(errs, *fieldErr)
		}
	}
	if req.MissedFillups != nil && *req.MissedFillups < 0 {
		errs = append(errs, apperr.FieldError{Field: "missedFillups", Message: "missedFillups must be >= 0"})
	}
	if len(errs) > 0 {
		apperr.Abort(c, apperr.Validation(errs...))
		return
	}

	updated, err := h.repo.Update(c.Request.Context(), session.UserID(c), id, UpdateParams{
		OccurredAt:    req.OccurredAt,
		Odometer:      req.Odometer,
		Volume:        req.Volume,
		PriceTotal:    req.PriceTotal,
		PricePerUnit:  req.PricePerUnit,
		IsFull:        req.IsFull,
		MissedFillups: req.MissedFillups,
		Note:          req.Note,
	})
	if err != nil {
		h.abortRepoErr(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Delete は DELETE /api/fuel/:id のハンドラーです。
func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.repo.Delete(c.Request.Context(), session.UserID(c), id); err != nil {
		h.abortRepoErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) abortRepoErr(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		apperr.Abort(c, apperr.NotFound("Entry not found"))
		return
	}
	apperr.Abort(c, apperr.Internal(err))
}

func (h *Handler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Abort(c, apperr.NotFound("Entry not found"))
		return uuid.Nil, false
	}
	return id, true
}

package vehicle

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/fuel-tracker/internal/apperr"
	"github.com/yourusername/fuel-tracker/internal/session"
)

// Handler は車両エンドポイントのハンドラー群です。
type Handler struct {
	repo Repository
}

// NewHandler は Handler を作成します。
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

type createRequest struct {
	Name     string  `json:"name"`
	Make     *string `json:"make"`
	Model    *string `json:"model"`
	Year     *int    `json:"year"`
	FuelType *string `json:"fuelType"`
}

type updateRequest struct {
	Name     *string `json:"name"`
	Make     *string `json:"make"`
	Model    *string `json:"model"`
	Year     *int    `json:"year"`
	FuelType *string `json:"fuelType"`
}

func validateYear(year *int) *apperr.FieldError {
	if year == nil {
		return nil
	}
	maxYear := time.Now().Year()
	if *year < MinYear || *year > maxYear {
		return &apperr.FieldError{
			Field:   "year",
			Message: fmt.Sprintf("year must be integer between %d and %d", MinYear, maxYear),
		}
	}
	return nil
}

// List は GET /api/vehicles のハンドラーです。
func (h *Handler) List(c *gin.Context) {
	vehicles, err := h.repo.ListByOwner(c.Request.Context(), session.UserID(c))
	if err != nil {
		apperr.Abort(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusOK, vehicles)
}

// Create は POST /api/vehicles のハンドラーです。
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.BadRequest("Invalid JSON body"))
		return
	}

	var errs []apperr.FieldError
	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs = append(errs, apperr.FieldError{Field: "name", Message: "name is required"})
	}
	if fieldErr := validateYear(req.Year); fieldErr != nil {
		errs = append(errs, *fieldErr)
	}
	if len(errs) > 0 {
		apperr.Abort(c, apperr.Validation(errs...))
		return
	}

	ctx := c.Request.Context()
	owner := session.UserID(c)

	// 事前チェックは親切なエラーのためのもので、最終的な正は一意制約
	taken, err := h.repo.NameExists(ctx, owner, name, uuid.Nil)
	if err != nil {
		apperr.Abort(c, apperr.Internal(err))
		return
	}
	if taken {
		apperr.Abort(c, apperr.Conflict("Vehicle with this name already exists"))
		return
	}

	created, err := h.repo.Create(ctx, &Vehicle{
		UserID:   owner,
		Name:     name,
		Make:     trimmed(req.Make),
		Model:    trimmed(req.Model),
		Year:     req.Year,
		FuelType: trimmed(req.FuelType),
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			apperr.Abort(c, apperr.Conflict("Vehicle with this name already exists"))
			return
		}
		apperr.Abort(c, apperr.Internal(err))
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Update は PUT /api/vehicles/:id のハンドラーです。
// 指定されたフィールドのみ更新し、空ボディは現在の表現を返すだけの
// 無操作（200）です。
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.BadRequest("Invalid JSON body"))
		return
	}

	var errs []apperr.FieldError
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		errs = append(errs, apperr.FieldError{Field: "name", Message: "name must be a non-empty string"})
	}
	if fieldErr := validateYear(req.Year); fieldErr != nil {
		errs = append(errs, *fieldErr)
	}
	if len(errs) > 0 {
		apperr.Abort(c, apperr.Validation(errs...))
		return
	}

	ctx := c.Request.Context()
	owner := session.UserID(c)

	if _, err := h.repo.GetByID(ctx, owner, id); err != nil {
		h.abortRepoErr(c, err)
		return
	}

	if req.Name != nil {
		taken, err := h.repo.NameExists(ctx, owner, *req.Name, id)
		if err != nil {
			apperr.Abort(c, apperr.Internal(err))
			return
		}
		if taken {
			apperr.Abort(c, apperr.Conflict("Vehicle with this name already exists"))
			return
		}
	}

	updated, err := h.repo.Update(ctx, owner, id, UpdateParams{
		Name:     trimmed(req.Name),
		Make:     trimmed(req.Make),
		Model:    trimmed(req.Model),
		Year:     req.Year,
		FuelType: trimmed(req.FuelType),
	})
	if err != nil {
		h.abortRepoErr(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Delete は DELETE /api/vehicles/:id のハンドラーです。
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
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
	switch {
	case errors.Is(err, ErrNotFound):
		apperr.Abort(c, apperr.NotFound("Vehicle not found"))
	case errors.Is(err, ErrDuplicateName):
		apperr.Abort(c, apperr.Conflict("Vehicle with this name already exists"))
	default:
		apperr.Abort(c, apperr.Internal(err))
	}
}

// parseID はパスパラメーターをUUIDとして解釈します。
// 解釈できないIDは存在しないリソースと同様に 404 とします。
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Abort(c, apperr.NotFound("Vehicle not found"))
		return uuid.Nil, false
	}
	return id, true
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

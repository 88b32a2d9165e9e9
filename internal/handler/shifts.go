package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/utils"
)

func (h *Handler) GetShifts(w http.ResponseWriter, r *http.Request) {
	var departmentID *int64
	if param := r.URL.Query().Get("departmentID"); param != "" {
		id, err := strconv.ParseInt(param, 10, 64)
		if err != nil {
			h.badRequest(w, r, errors.New("科室ID无效"))
			return
		}
		departmentID = &id
	}

	shifts, err := h.repository.GetShifts(r.Context(), departmentID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班次列表成功", shifts)
}

func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DepartmentID  int64     `json:"departmentID" validate:"required,gt=0"`
		StartTime     time.Time `json:"startTime" validate:"required"`
		EndTime       time.Time `json:"endTime" validate:"required"`
		RequiredRole  string    `json:"requiredRole" validate:"required,role"`
		RequiredCount int32     `json:"requiredCount" validate:"omitempty,gte=1"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	shift := &domain.Shift{
		DepartmentID:  req.DepartmentID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		RequiredRole:  domain.Role(req.RequiredRole),
		RequiredCount: req.RequiredCount,
	}
	if shift.RequiredCount == 0 {
		shift.RequiredCount = 1
	}

	if err := utils.ValidateShiftTime(shift); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 先确认科室存在，以返回更明确的错误
	if _, err := h.repository.GetDepartmentByID(r.Context(), shift.DepartmentID); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			h.notFound(w, r, "科室不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := h.repository.CreateShift(r.Context(), shift); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation:
			h.notFound(w, r, "科室不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.createdResponse(w, r, "班次创建成功", shift)
}

func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)
	h.successResponse(w, r, "获取班次信息成功", shift)
}

func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	shift := r.Context().Value(ShiftCtx).(*domain.Shift)

	if err := h.repository.DeleteShift(r.Context(), shift.ID); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			h.notFound(w, r, "班次不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除班次成功", nil)
}

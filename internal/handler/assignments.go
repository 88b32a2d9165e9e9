package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/roster"
)

func (h *Handler) GetAssignments(w http.ResponseWriter, r *http.Request) {
	var userID *int64
	if param := r.URL.Query().Get("userID"); param != "" {
		id, err := strconv.ParseInt(param, 10, 64)
		if err != nil {
			h.badRequest(w, r, errors.New("用户ID无效"))
			return
		}
		userID = &id
	}

	assignments, err := h.repository.GetAssignments(r.Context(), userID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取排班列表成功", assignments)
}

func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		UserID      int64   `json:"userID" validate:"required,gt=0"`
		ShiftID     int64   `json:"shiftID" validate:"required,gt=0"`
		IsEmergency bool    `json:"isEmergency"`
		Notes       *string `json:"notes" validate:"omitempty,max=1024"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	in := roster.CreateAssignmentInput{
		UserID:      req.UserID,
		ShiftID:     req.ShiftID,
		IsEmergency: req.IsEmergency,
	}
	if req.Notes != nil {
		notes := h.sanitize(*req.Notes)
		in.Notes = &notes
	}

	assignment, err := h.roster.CreateAssignment(r.Context(), in, myInfo.Email)
	if err != nil {
		switch {
		case errors.Is(err, roster.ErrStaffNotFound):
			h.notFound(w, r, "员工不存在")
		case errors.Is(err, roster.ErrShiftNotFound):
			h.notFound(w, r, "班次不存在")
		case errors.Is(err, roster.ErrRoleMismatch):
			h.badRequest(w, r, err)
		case errors.Is(err, roster.ErrDuplicateAssignment):
			h.conflict(w, r, "该员工已被安排到此班次")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.createdResponse(w, r, "排班创建成功", assignment)
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	id, err := h.parseIDParam(r, "id")
	if err != nil {
		h.badRequest(w, r, errors.New("排班ID无效"))
		return
	}

	if err := h.roster.DeleteAssignment(r.Context(), id, myInfo.Email); err != nil {
		switch {
		case errors.Is(err, roster.ErrAssignmentNotFound):
			h.notFound(w, r, "排班不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除排班成功", nil)
}

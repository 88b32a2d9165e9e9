package handler

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

func (h *Handler) GetAllDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := h.repository.GetAllDepartments(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取科室列表成功", depts)
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name" validate:"required,max=128"`
		Description string `json:"description" validate:"max=1024"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	dept := &domain.Department{
		Name:        h.sanitize(req.Name),
		Description: h.sanitize(req.Description),
	}
	if dept.Name == "" {
		h.badRequest(w, r, errors.New("科室名称不能为空"))
		return
	}

	if err := h.repository.CreateDepartment(r.Context(), dept); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "departments_name_key":
			h.conflict(w, r, "科室名称已存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.createdResponse(w, r, "科室创建成功", dept)
}

func (h *Handler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	dept := r.Context().Value(DepartmentCtx).(*domain.Department)
	h.successResponse(w, r, "获取科室信息成功", dept)
}

package handler

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

const pgForeignKeyViolation = "23503"

func (h *Handler) GetAllUserInfo(w http.ResponseWriter, r *http.Request) {
	users, err := h.repository.GetAllUsers(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取用户列表成功", users)
}

// writeUserError 处理用户写操作中的唯一约束与外键冲突
func (h *Handler) writeUserError(w http.ResponseWriter, r *http.Request, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		switch {
		case pgErr.ConstraintName == "users_username_key":
			h.conflict(w, r, "用户名已存在")
		case pgErr.ConstraintName == "users_email_key":
			h.conflict(w, r, "邮箱已存在")
		case pgErr.Code == pgForeignKeyViolation:
			h.notFound(w, r, "科室不存在")
		default:
			h.internalServerError(w, r, err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		h.conflict(w, r, "更新用户信息失败，请重试")
	default:
		h.internalServerError(w, r, err)
	}
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username     string `json:"username" validate:"required,max=64"`
		FullName     string `json:"fullName" validate:"required,max=128"`
		Email        string `json:"email" validate:"required,email"`
		Role         string `json:"role" validate:"required,role"`
		DepartmentID *int64 `json:"departmentID" validate:"omitempty,gt=0"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 生成随机密码
	password := utils.GenerateRandomPassword(h.config.NewUser.PasswordLength)

	// 对密码进行哈希
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user := &domain.User{
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
		FullName:     h.sanitize(req.FullName),
		Email:        req.Email,
		Role:         domain.Role(req.Role),
		DepartmentID: req.DepartmentID,
	}

	if err := h.repository.CreateUser(r.Context(), user); err != nil {
		h.writeUserError(w, r, err)
		return
	}

	// 初始密码通过邮件发送
	if err := h.mailer.Publish(r.Context(), domain.MailMessage{
		Type: domain.MailTypeCreateUser,
		To:   user.Email,
		Data: domain.CreateUserMailData{
			FullName: user.FullName,
			Username: user.Username,
			Password: password,
		},
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.createdResponse(w, r, "用户创建成功", user)
}

func (h *Handler) GetUserInfo(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)
	h.successResponse(w, r, "获取用户信息成功", user)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName     *string `json:"fullName" validate:"omitempty,max=128"`
		Email        *string `json:"email" validate:"omitempty,email"`
		Role         *string `json:"role" validate:"omitempty,role"`
		IsActive     *bool   `json:"isActive"`
		DepartmentID *int64  `json:"departmentID" validate:"omitempty,gt=0"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user := r.Context().Value(UserInfoCtx).(*domain.User)

	if req.FullName != nil {
		user.FullName = h.sanitize(*req.FullName)
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Role != nil {
		user.Role = domain.Role(*req.Role)
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.DepartmentID != nil {
		user.DepartmentID = req.DepartmentID
	}

	if err := h.repository.UpdateUser(r.Context(), user); err != nil {
		h.writeUserError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新用户信息成功", user)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)

	if err := h.repository.DeleteUser(r.Context(), user.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除用户成功", nil)
}

func (h *Handler) UpdateUserPassword(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)

	var req struct {
		Password string `json:"password" validate:"required,min=8"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 对密码进行哈希
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user.PasswordHash = string(hashedPassword)
	if err := h.repository.UpdateUser(r.Context(), user); err != nil {
		h.writeUserError(w, r, err)
		return
	}

	h.successResponse(w, r, "修改密码成功", nil)
}

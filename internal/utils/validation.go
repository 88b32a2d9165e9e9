package utils

import (
	"errors"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

// 排班最长不超过 24 小时
const maxShiftDuration = 24 * time.Hour

func ValidateShiftTime(shift *domain.Shift) error {
	if !shift.EndTime.After(shift.StartTime) {
		return errors.New("班次结束时间必须晚于开始时间")
	}

	if shift.EndTime.Sub(shift.StartTime) > maxShiftDuration {
		return errors.New("班次时长不能超过 24 小时")
	}

	if shift.RequiredCount < 1 {
		return errors.New("班次所需人数至少为 1")
	}

	return nil
}

// RegisterValidations 注册自定义的 role 校验规则及其中文翻译
func RegisterValidations(validate *validator.Validate, trans ut.Translator) error {
	if err := validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return domain.Role(fl.Field().String()).Valid()
	}); err != nil {
		return err
	}

	return validate.RegisterTranslation(
		"role",
		trans,
		func(ut ut.Translator) error {
			return ut.Add("role", "{0}必须是 admin、manager、doctor、nurse 或 staff", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("role", fe.Field())
			return t
		},
	)
}

package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	apperrors "realtime_chat/pkg/errors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// В ошибках используем имена полей протокола (userName, content)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	// PostgreSQL не принимает NUL в text, memory-хранилище должно отказывать так же
	_ = v.RegisterValidation("nonul", func(fl validator.FieldLevel) bool {
		return !strings.ContainsRune(fl.Field().String(), 0)
	})
	return v
}

type createMessageInput struct {
	UserName string `json:"userName" validate:"notblank,nonul,max=32"`
	Content  string `json:"content" validate:"notblank,nonul,max=4000"`
}

type updateContentInput struct {
	Content string `json:"content" validate:"notblank,nonul,max=4000"`
}

// validateInput возвращает ValidationError для первого некорректного поля
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.NewValidationError("input", err.Error())
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "notblank":
		return apperrors.NewValidationError(fe.Field(), "must not be empty")
	case "nonul":
		return apperrors.NewValidationError(fe.Field(), "must not contain NUL characters")
	case "max":
		return apperrors.NewValidationError(fe.Field(), fmt.Sprintf("must be at most %s characters", fe.Param()))
	default:
		return apperrors.NewValidationError(fe.Field(), fmt.Sprintf("failed %q check", fe.Tag()))
	}
}

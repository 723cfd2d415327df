// Package bind decodes request bodies and validates them with struct tags.
package bind

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/nrft/nrft/internal/platform/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Request binds c's body, path and query params into dst and validates it.
// Both failures are returned as apperr validation errors.
func Request(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	return Struct(dst)
}

// Struct validates dst, mapping each failing field to the failed tag.
func Struct(dst interface{}) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apperr.Validation("invalid input", nil)
	}
	details := make(map[string]string, len(ve))
	for _, fe := range ve {
		details[fieldPath(fe)] = fe.Tag()
	}
	return apperr.Validation("validation failed", details)
}

// fieldPath drops the root struct name: "Req.answers[0].questionId" -> "answers[0].questionId".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

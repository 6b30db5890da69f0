package api

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report the wire name (form or json tag) instead of the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	_ = v.RegisterValidation("finite", isFinite)
	return v
}

// isFinite backs the `finite` tag: floats must be neither NaN nor infinite.
func isFinite(fl validator.FieldLevel) bool {
	switch f := fl.Field(); f.Kind() {
	case reflect.Float32, reflect.Float64:
		v := f.Float()
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	default:
		return true
	}
}

// bindAndValidate parses the request body into req, fills zero fields from
// `default` tags and runs `validate` tags.
func bindAndValidate(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return BadRequestError(CodeBadRequest, "", "Could not read request body.").WithError(err)
	}
	if err := defaults.Set(req); err != nil {
		return InternalError("Could not apply request defaults.").WithError(err)
	}
	if err := validate.StructCtx(c.UserContext(), req); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError reports the first failed field.
func validationError(err error) *AppError {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return BadRequestError(CodeValidation, fe.Field(), errorMessage(fe)).WithError(err)
	}
	return BadRequestError(CodeValidation, "", err.Error()).WithError(err)
}

func errorMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "finite":
		return fmt.Sprintf("%s must be a finite number", field)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

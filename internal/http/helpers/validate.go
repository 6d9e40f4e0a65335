package helpers

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/dropDatabas3/refgate/internal/domain/types"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// reportar el nombre del campo como lo ve el cliente
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form", "query"} {
				name := strings.Split(f.Tag.Get(tag), ",")[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	})
	return validate
}

// Validate aplica los tags `validate:"..."` de v y traduce las fallas a
// un ValidationError con un FieldError por campo.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &types.ValidationError{Fields: make([]types.FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, types.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "email":
		return "value is not a valid email address"
	case "min":
		return "must have at least " + fe.Param() + " characters"
	case "max":
		return "must have at most " + fe.Param() + " characters"
	case "gt", "gte":
		return "must be greater than " + ifEq(fe.Tag() == "gte", "or equal to ") + fe.Param()
	case "lt", "lte":
		return "must be less than " + ifEq(fe.Tag() == "lte", "or equal to ") + fe.Param()
	default:
		return "failed on " + fe.Tag()
	}
}

func ifEq(ok bool, s string) string {
	if ok {
		return s
	}
	return ""
}

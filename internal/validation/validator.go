// Package validation checks decoded request bodies against their struct tags.
// It wraps go-playground/validator and registers the tags the feedback API needs.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate = validator.New()

	quarterRe = regexp.MustCompile(`^Q[1-4]$`)
)

func init() {
	// Report fields by their JSON names so messages match what the client sent.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}

		return name
	})

	rules := map[string]validator.Func{
		// quarter accepts Q1..Q4.
		"quarter": func(fl validator.FieldLevel) bool {
			if fl.Field().String() == "" {
				return true
			}

			return quarterRe.MatchString(fl.Field().String())
		},
		// date accepts a calendar date in YYYY-MM-DD form.
		"date": func(fl validator.FieldLevel) bool {
			if fl.Field().String() == "" {
				return true
			}

			_, err := time.Parse(time.DateOnly, fl.Field().String())

			return err == nil
		},
	}

	for tag, fn := range rules {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register %q validation: %v", tag, err))
		}
	}
}

// ValidationError holds one message per failed field.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return strings.Join(v.Errors, ", ")
}

// ValidateStruct validates s and returns a *ValidationError listing every failed field.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	messages := make([]string, 0, len(fieldErrs))

	for _, fe := range fieldErrs {
		var message string

		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("field '%s' is required", fe.Field())
		case "email":
			message = fmt.Sprintf("field '%s' must be a valid email address", fe.Field())
		case "quarter":
			message = fmt.Sprintf("field '%s' must be one of Q1, Q2, Q3, Q4", fe.Field())
		case "date":
			message = fmt.Sprintf("field '%s' must be a date in YYYY-MM-DD format", fe.Field())
		case "oneof":
			message = fmt.Sprintf("field '%s' must be one of: %s", fe.Field(), fe.Param())
		default:
			message = fmt.Sprintf("field '%s' failed on the '%s' tag", fe.Field(), fe.Tag())
		}

		messages = append(messages, message)
	}

	return &ValidationError{Errors: messages}
}

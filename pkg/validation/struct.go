// Package validation provides input validation shared by the engine
// components. Failures are reported as *Error so callers can show one
// message per field before any record is mutated or any request is sent.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ColumnKeyPattern is the accepted shape of custom column keys.
var ColumnKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error collects field-level validation failures.
type Error struct {
	Problems []FieldError `json:"problems"`
}

// NewError returns an Error holding a single problem.
func NewError(field, message string) *Error {
	e := &Error{}
	e.Add(field, message)
	return e
}

// Add appends a problem.
func (e *Error) Add(field, message string) {
	e.Problems = append(e.Problems, FieldError{Field: field, Message: message})
}

// Merge appends every problem of other when other is a validation error.
// Any other non-nil error is recorded under the empty field name.
func (e *Error) Merge(other error) {
	if other == nil {
		return
	}
	var verr *Error
	if errors.As(other, &verr) {
		e.Problems = append(e.Problems, verr.Problems...)
		return
	}
	e.Add("", other.Error())
}

// OrNil returns nil when no problem was recorded, e otherwise.
func (e *Error) OrNil() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	return e
}

// Messages returns field → message, keeping the first message per field.
func (e *Error) Messages() map[string]string {
	out := make(map[string]string, len(e.Problems))
	for _, p := range e.Problems {
		if _, ok := out[p.Field]; !ok {
			out[p.Field] = p.Message
		}
	}
	return out
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		if p.Field == "" {
			parts = append(parts, p.Message)
			continue
		}
		parts = append(parts, p.Field+" "+p.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("columnkey", func(fl validator.FieldLevel) bool {
		return ColumnKeyPattern.MatchString(fl.Field().String())
	})
	return v
}

// Struct validates s against its `validate` tags and converts failures into
// an *Error keyed by JSON field name.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validation could not run: %w", err)
	}
	out := &Error{}
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), describe(fe))
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "columnkey":
		return "can only contain letters, numbers and underscore"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return "must have at least " + fe.Param() + " entries"
	default:
		return "failed the " + fe.Tag() + " rule"
	}
}

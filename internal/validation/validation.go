package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/taskr/internal/domain"
)

// Error is returned by every parser when the input is rejected.
// Fields maps the JSON field name to a human-readable message.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap lets callers match any validation failure with errors.Is(err, domain.ErrValidation).
func (e *Error) Unwrap() error {
	return domain.ErrValidation
}

func fieldError(field, message string) *Error {
	return &Error{Fields: map[string]string{field: message}}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names so messages match what the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("task_status", func(fl validator.FieldLevel) bool {
		return domain.TaskStatus(fl.Field().String()).Valid()
	})
	return v
}

// decode unmarshals body into dst. An empty body is treated as "{}".
func decode(body []byte, dst interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return fieldError(typeErr.Field, fmt.Sprintf("must be a %s", jsonTypeName(typeErr.Type)))
		}
		return fieldError("body", "must be a valid JSON object")
	}
	return nil
}

func jsonTypeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int64, reflect.Float64:
		return "number"
	case reflect.Ptr:
		return jsonTypeName(t.Elem())
	default:
		return "valid value"
	}
}

// check runs the struct validator and converts its errors into an *Error.
func check(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fieldError("body", "is invalid")
	}

	out := &Error{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Field() == "title" {
			return "Title is required"
		}
		return "is required"
	case "task_status":
		return "must be one of: " + statusList()
	default:
		return "is invalid"
	}
}

func statusList() string {
	statuses := domain.TaskStatuses()
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

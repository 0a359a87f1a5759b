package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message,omitempty"`
}

// BindJSON decodes and validates the body into out. On failure it answers
// 400 with message and logs which fields were at fault.
func BindJSON(ctx *gin.Context, out interface{}, message string) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		slog.Default().DebugContext(ctx.Request.Context(), "bind_failed",
			"route", ctx.FullPath(),
			"request_id", requestIDFrom(ctx),
			"fields", FieldErrors(err, out),
			"err", err,
		)
		RespondBadRequest(ctx, message)

		return false
	}

	return true
}

// FieldErrors explains a bind error in terms of the JSON field names of out.
func FieldErrors(err error, out interface{}) []FieldError {
	rootType := baseStructType(out)

	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		fields := make([]FieldError, 0, len(validatorError))

		for _, fieldError := range validatorError {
			fields = append(fields, FieldError{
				Field:   jsonFieldName(rootType, fieldError.StructField()),
				Rule:    fieldError.Tag(),
				Message: validationMessage(fieldError.Tag()),
			})
		}
		return fields
	}

	var unmatchedTypeError *json.UnmarshalTypeError

	if errors.As(err, &unmatchedTypeError) {
		return []FieldError{{
			Field:   unmatchedTypeError.Field,
			Rule:    "type",
			Message: fmt.Sprintf("must be of type %s", unmatchedTypeError.Type.String()),
		}}
	}

	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) {
		return []FieldError{{Rule: "json", Message: "invalid json syntax"}}
	}

	return []FieldError{{Rule: "body", Message: err.Error()}}
}

// ParseID accepts only unsigned decimal ids that fit in int64.
func ParseID(raw string) (int64, bool) {
	if raw == "" || strings.TrimLeft(raw, "0123456789") != "" {
		return 0, false
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

func jsonFieldName(rootType reflect.Type, structField string) string {
	if rootType == nil {
		return structField
	}

	sf, ok := rootType.FieldByName(structField)
	if !ok {
		return structField
	}

	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return sf.Name
	}

	return name
}

func validationMessage(rule string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	default:
		return "failed " + rule + " validation"
	}
}

package pkg

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// shared, as advised by the validator docs (caches struct info)
var validate = validator.New(validator.WithRequiredStructEnabled())

type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type FieldErrorsResponse struct {
	Errors []FieldError `json:"errors"`
}

// ValidateStruct runs the declarative `validate` tag constraints of the
// given request shape and returns one entry per failing field.
func ValidateStruct(s interface{}) []FieldError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return []FieldError{{Field: "-", Error: err.Error()}}
	}

	fieldErrs := make([]FieldError, 0, len(valErrs))
	for _, fe := range valErrs {
		msg := fe.Tag()
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		}
		fieldErrs = append(fieldErrs, FieldError{
			Field: fe.Field(),
			Error: msg,
		})
	}
	return fieldErrs
}

func WriteFieldErrors(w http.ResponseWriter, fieldErrs []FieldError) {
	respJson, err := json.Marshal(FieldErrorsResponse{Errors: fieldErrs})
	if err != nil {
		log.Errorf("failed to marshal field errors: %s", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	WriteResponseBytes(w, ContentType.JSON, respJson, http.StatusBadRequest)
}

// WriteSingleFieldError is for constraint failures found outside the
// declarative tags (e.g. duplicate muscle group in a tag list).
func WriteSingleFieldError(w http.ResponseWriter, field, msg string) {
	WriteFieldErrors(w, []FieldError{{Field: field, Error: msg}})
}

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// TargetRequest names the other party of a mutation.
type TargetRequest struct {
	TargetID string `json:"target_id" validate:"required,uuid"`
}

type BlockRequest struct {
	TargetID string  `json:"target_id" validate:"required,uuid"`
	Reason   *string `json:"reason,omitempty" validate:"omitempty,max=255"`
}

var errInvalidBody = errors.New("invalid request body")

// decodeRequest decodes a JSON body into dst and runs struct validation.
func decodeRequest(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return errInvalidBody
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidBody
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return validationMessage(fieldErrs)
		}
		return err
	}
	return nil
}

// writeDecodeError reports a decodeRequest failure as 400.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errInvalidBody) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func validationMessage(fieldErrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := jsonFieldName(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "uuid":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid UUID", field))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func jsonFieldName(field string) string {
	switch field {
	case "TargetID":
		return "target_id"
	case "Reason":
		return "reason"
	}
	return strings.ToLower(field)
}

package handlers

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog/log"
)

const genericErrorMessage = "Something went wrong. Please try again."

// ApiResponse is the JSON envelope every API endpoint answers with.
type ApiResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message,omitempty"`
	Data      any               `json:"data,omitempty"`
	Error     string            `json:"error,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
	Events    []string          `json:"events,omitempty"`
}

// respondOK writes a success envelope. A non-empty message also raises a
// success toast.
func respondOK(e *core.RequestEvent, data any, message string) error {
	if message != "" {
		SetToast(e, "success", message)
	}
	return e.JSON(http.StatusOK, ApiResponse{
		Success: true,
		Message: message,
		Data:    data,
		Events:  eventsFromHeader(e),
	})
}

// respondInvalid reports a validation failure. State is left unchanged by
// the caller; the client shows a warning toast.
func respondInvalid(e *core.RequestEvent, status int, message string, fieldErrs map[string]string) error {
	SetToast(e, "warning", message)
	return e.JSON(status, ApiResponse{
		Success: false,
		Error:   message,
		Errors:  fieldErrs,
	})
}

// respondNotFound reports a missing resource.
func respondNotFound(e *core.RequestEvent, message string) error {
	return ErrorToast(e, http.StatusNotFound, message)
}

// respondServerError logs err and returns the generic backend failure message.
func respondServerError(e *core.RequestEvent, where string, err error) error {
	log.Error().Err(err).Str("path", e.Request.URL.Path).Msg(where)
	return ErrorToast(e, http.StatusInternalServerError, genericErrorMessage)
}

// respondUpstreamError reports a failure of an external collaborator (video
// SDK, AI provider). The client may offer a manual retry.
func respondUpstreamError(e *core.RequestEvent, where string, err error, message string) error {
	log.Error().Err(err).Str("path", e.Request.URL.Path).Msg(where)
	SetToast(e, "error", message)
	return e.JSON(http.StatusBadGateway, ApiResponse{
		Success:   false,
		Error:     message,
		Retryable: true,
	})
}

// fieldErrors flattens ozzo validation errors into a field → message map.
// Errors that are not validation errors yield nil.
func fieldErrors(err error) map[string]string {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for field, fe := range verrs {
		if fe != nil {
			out[field] = fe.Error()
		}
	}
	return out
}

package response

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Stable error categories surfaced to clients.
const (
	CategoryBadRequest  = "Bad Request"
	CategoryConflict    = "Conflict"
	CategoryNotFound    = "Not Found"
	CategoryGone        = "Gone"
	CategoryServerError = "Internal Server Error"
)

// ErrorResponse is the envelope for every surfaced failure: a stable
// category, a human-readable message and the time the failure was produced.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Details   []ValidationError `json:"details,omitempty"`
}

// ValidationError describes a single invalid request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func New(category, message string) ErrorResponse {
	return ErrorResponse{
		Error:     category,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

func EmptyRequestBody() ErrorResponse {
	return New(CategoryBadRequest, "Request body is empty. Please provide necessary data.")
}

func BadRequest() ErrorResponse {
	return New(CategoryBadRequest, "Invalid request body.")
}

func NotFound(message string) ErrorResponse {
	return New(CategoryNotFound, message)
}

func Conflict(message string) ErrorResponse {
	return New(CategoryConflict, message)
}

func Gone(message string) ErrorResponse {
	return New(CategoryGone, message)
}

// ServerError is the normalized body for unexpected internal failures.
// It never carries details of what went wrong.
func ServerError() ErrorResponse {
	return New(CategoryServerError, "An internal server error occurred. Please try again later.")
}

// ValidationFailed builds a bad-request envelope with one detail entry per
// failed field.
func ValidationFailed(err error) ErrorResponse {
	resp := New(CategoryBadRequest, "Validation failed.")

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return resp
	}

	for _, e := range errs {
		resp.Details = append(resp.Details, ValidationError{
			Field:   e.Field(),
			Message: messageForTag(e.Tag()),
		})
	}

	return resp
}

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "http_url":
		return "invalid url"
	case "shortcode":
		return "must be 1-50 characters of letters, digits, hyphens or underscores"
	case "gt":
		return "must be a positive integer"
	default:
		return "invalid value"
	}
}

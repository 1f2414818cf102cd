package response

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	resp := New(CategoryNotFound, "Shortcode not found.")

	assert.Equal(t, CategoryNotFound, resp.Error)
	assert.Equal(t, "Shortcode not found.", resp.Message)
	assert.False(t, resp.Timestamp.IsZero())
	assert.Empty(t, resp.Details)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name         string
		resp         ErrorResponse
		wantCategory string
	}{
		{"empty request body", EmptyRequestBody(), CategoryBadRequest},
		{"bad request", BadRequest(), CategoryBadRequest},
		{"not found", NotFound("Shortcode not found."), CategoryNotFound},
		{"conflict", Conflict("Shortcode already exists."), CategoryConflict},
		{"gone", Gone("Short link has expired."), CategoryGone},
		{"server error", ServerError(), CategoryServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCategory, tt.resp.Error)
			assert.NotEmpty(t, tt.resp.Message)
			assert.False(t, tt.resp.Timestamp.IsZero())
		})
	}
}

func TestValidationFailed(t *testing.T) {
	t.Run("non-validation error carries no details", func(t *testing.T) {
		resp := ValidationFailed(errors.New("unknown error"))

		assert.Equal(t, CategoryBadRequest, resp.Error)
		assert.Equal(t, "Validation failed.", resp.Message)
		assert.Empty(t, resp.Details)
	})

	t.Run("one detail per failed field", func(t *testing.T) {
		type payload struct {
			URL      string `json:"url" validate:"required,http_url"`
			Validity int    `json:"validity" validate:"omitempty,gt=0"`
		}

		validate := validator.New()
		err := validate.Struct(payload{URL: "", Validity: -1})
		assert.Error(t, err)

		resp := ValidationFailed(err)

		assert.Equal(t, CategoryBadRequest, resp.Error)
		assert.Len(t, resp.Details, 2)
		assert.Equal(t, "this field is required", resp.Details[0].Message)
		assert.Equal(t, "must be a positive integer", resp.Details[1].Message)
	})
}

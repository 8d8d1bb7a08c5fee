package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

type lendRequest struct {
	Title    string `validate:"required"`
	Quantity int    `validate:"gte=1"`
	Password string `validate:"omitempty,min=4"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		req     lendRequest
		wantMsg string
	}{
		{"valid", lendRequest{Title: "Physics", Quantity: 1}, ""},
		{"missing title", lendRequest{Quantity: 1}, "title is required"},
		{"zero quantity", lendRequest{Title: "Physics"}, "quantity must be at least 1"},
		{"short password", lendRequest{Title: "Physics", Quantity: 2, Password: "ab"}, "password must be at least 4 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.req)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, types.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestStruct_JoinsFailures(t *testing.T) {
	err := Struct(lendRequest{})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	assert.Contains(t, err.Error(), "title is required; quantity must be at least 1")
}

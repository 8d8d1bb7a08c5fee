package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"physics", "Physics"},
		{"  the  hobbit ", "The Hobbit"},
		{"ACADEMIC", "Academic"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.in))
		})
	}
}

func TestUpper(t *testing.T) {
	assert.Equal(t, "10C1", Upper(" 10c1 "))
	assert.Equal(t, "", Upper("  "))
}

package geocode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAddress(t *testing.T) {
	tests := []struct {
		name string
		in   Address
		want string
	}{
		{"all components", Address{Street: "Av. Providencia", City: "Santiago", Region: "RM"}, "Av. Providencia Santiago, RM"},
		{"no street", Address{City: "Santiago", Region: "RM"}, "Santiago, RM"},
		{"no region", Address{Street: "Main St", City: "Springfield"}, "Main St Springfield"},
		{"region only", Address{Region: "RM"}, "RM"},
		{"empty", Address{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAddress(tt.in))
		})
	}
}

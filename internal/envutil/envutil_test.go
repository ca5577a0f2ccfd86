package envutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDev(t *testing.T) {
	tests := []struct {
		value string
		isDev bool
	}{
		{value: "development", isDev: true},
		{value: "dev", isDev: true},
		{value: "DEV", isDev: true},
		{value: "production", isDev: false},
		{value: "", isDev: false},
	}

	for _, tt := range tests {
		t.Run("PORTAL_ENV="+tt.value, func(t *testing.T) {
			t.Setenv("PORTAL_ENV", tt.value)
			assert.Equal(t, tt.isDev, IsDev())
		})
	}
}

package shortcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	gen := New(6, 32)

	t.Run("produces codes of the configured length", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			code, err := gen.Generate()
			require.NoError(t, err)
			assert.Len(t, code, 6)
		}
	})

	t.Run("only uses alphabet characters", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			code, err := gen.Generate()
			require.NoError(t, err)
			for _, c := range code {
				assert.True(t, strings.ContainsRune(Alphabet, c), "unexpected character %q in %q", c, code)
			}
		}
	})

	t.Run("respects a custom length", func(t *testing.T) {
		gen := New(10, 32)
		code, err := gen.Generate()
		require.NoError(t, err)
		assert.Len(t, code, 10)
	})

	t.Run("rarely repeats", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 1000; i++ {
			code, err := gen.Generate()
			require.NoError(t, err)
			seen[code] = true
		}
		// 1000 draws from a 62^6 space collide with negligible probability.
		assert.Greater(t, len(seen), 990)
	})
}

func TestValidateCustom(t *testing.T) {
	gen := New(6, 10)

	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{name: "valid alphanumeric", code: "promo2024", wantErr: false},
		{name: "single character", code: "a", wantErr: false},
		{name: "at max length", code: "abcdefghij", wantErr: false},
		{name: "empty", code: "", wantErr: true},
		{name: "too long", code: "abcdefghijk", wantErr: true},
		{name: "contains dash", code: "promo-2024", wantErr: true},
		{name: "contains space", code: "promo 2024", wantErr: true},
		{name: "contains slash", code: "a/b", wantErr: true},
		{name: "non-ascii", code: "promó", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gen.ValidateCustom(tt.code)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

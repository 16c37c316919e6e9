package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeGenerator_Generate(t *testing.T) {
	gen := NewCodeGenerator()

	seen := make(map[string]struct{})
	for range 50 {
		code, err := gen.Generate(6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "unexpected rune %q", r)
		}
		seen[code] = struct{}{}
	}

	assert.Greater(t, len(seen), 1)
}

func TestCodeGenerator_RejectsNonPositiveLength(t *testing.T) {
	_, err := NewCodeGenerator().Generate(0)
	assert.Error(t, err)
}

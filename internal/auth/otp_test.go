package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/justxchange/go-backend/internal/auth"
)

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}

	for i := 0; i < 50; i++ {
		code, err := auth.GenerateCode()

		assert.NoError(t, err)
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "code %q contains a non digit", code)
		}
		// leading zeros never appear: codes live in [100000, 999999]
		assert.NotEqual(t, byte('0'), code[0])

		seen[code] = true
	}

	assert.Greater(t, len(seen), 1, "50 draws should not all collide")
}

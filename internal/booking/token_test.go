package booking

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfirmationTokenIsURLSafeAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewConfirmationToken()
		require.NoError(t, err)
		assert.NotEmpty(t, tok)
		assert.Equal(t, tok, url.PathEscape(tok), "token must survive URL embedding unescaped")
		assert.False(t, seen[tok], "token collision")
		seen[tok] = true
	}
}

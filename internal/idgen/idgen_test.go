package idgen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGenerator(t *testing.T) {
	g := New()

	code, err := g.ConfirmCode()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9]{6}$`), code)

	tok, err := g.ResetToken()
	require.NoError(t, err)
	assert.Len(t, tok, ResetTokenLen)

	a, err := g.SortableID()
	require.NoError(t, err)
	b, err := g.SortableID()
	require.NoError(t, err)
	assert.True(t, ValidSortableID(a))
	assert.NotEqual(t, a, b)

	assert.Len(t, g.UserID(), 36)
	assert.False(t, ValidSortableID("nope"))
}

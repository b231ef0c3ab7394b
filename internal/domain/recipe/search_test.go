package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperation(t *testing.T) {
	for in, want := range map[string]Operation{"and": OpAnd, "OR": OpOr, " Not ": OpNot} {
		op, err := ParseOperation(in)
		require.NoError(t, err)
		assert.Equal(t, want, op)
	}

	_, err := ParseOperation("xor")
	require.ErrorIs(t, err, ErrUnknownOperation)
	assert.Contains(t, err.Error(), "cannot convert xor into operation. Available operations: and, or, not")
}

func TestParseTokens(t *testing.T) {
	assert.Equal(t, []string{"quick", "vegan dinner"}, ParseKeywords(" quick, ,vegan dinner ,"))
	assert.Nil(t, ParseKeywords(" , "))
	assert.Equal(t, []string{"egg", "milk"}, ParseIngredients("  egg\tmilk \n"))
	assert.Nil(t, ParseIngredients("   "))
}

func TestNewCriteria(t *testing.T) {
	c := NewCriteria(" soup ", "leek potato", "winter")
	assert.Equal(t, "soup", c.Title)
	assert.Equal(t, []string{"leek", "potato"}, c.Ingredients)
	assert.Equal(t, []string{"winter"}, c.Keywords)
	assert.False(t, c.IsEmpty())
	assert.True(t, NewCriteria(" ", "", ",").IsEmpty())
}

package blockstpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileCache(t *testing.T) {
	cc := NewCompileCache(2)

	a, err := cc.Compile("{{ a }}")
	require.NoError(t, err)
	again, err := cc.Compile("{{ a }}")
	require.NoError(t, err)
	assert.Same(t, a, again)
	assert.Equal(t, 1, cc.Len())

	strict, err := cc.Compile("{{ a }}", WithStrict(true))
	require.NoError(t, err)
	assert.NotSame(t, a, strict)
	assert.Equal(t, 2, cc.Len())

	_, err = cc.Compile("{{ b }}")
	require.NoError(t, err)
	assert.Equal(t, 2, cc.Len(), "bounded by max size")

	cc.Clear()
	assert.Zero(t, cc.Len())
}

func TestCompileCache_ErrorsAreNotCached(t *testing.T) {
	cc := NewCompileCache(10)
	_, err := cc.Compile("{% nope %}", WithStrict(true))
	require.Error(t, err)
	assert.Zero(t, cc.Len())
}

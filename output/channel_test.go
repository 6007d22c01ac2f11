package output

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelRedirectAndRestore(t *testing.T) {
	var real, captured bytes.Buffer
	ch := NewChannel(&real)

	fmt.Fprint(ch, "before ")

	prev, restore, err := ch.Redirect(&captured)
	require.NoError(t, err)
	assert.Same(t, &real, prev)
	assert.True(t, ch.Redirected())

	fmt.Fprint(ch, "during")

	_, _, err = ch.Redirect(&bytes.Buffer{})
	assert.ErrorIs(t, err, ErrAlreadyRedirected)

	restore()
	restore()
	assert.False(t, ch.Redirected())

	fmt.Fprint(ch, " after")

	assert.Equal(t, "before  after", real.String())
	assert.Equal(t, "during", captured.String())
}

func TestChannelRestoredOnPanic(t *testing.T) {
	var real bytes.Buffer
	ch := NewChannel(&real)

	func() {
		defer func() { _ = recover() }()
		_, restore, err := ch.Redirect(&bytes.Buffer{})
		require.NoError(t, err)
		defer restore()
		panic("boom")
	}()

	assert.Same(t, &real, ch.Target())
	assert.False(t, ch.Redirected())
}

func TestNilTargetDiscards(t *testing.T) {
	ch := NewChannel(nil)
	n, err := ch.Write([]byte("dropped"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

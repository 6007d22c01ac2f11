package reporting

import (
	"errors"
	"testing"

	"github.com/ethereum-optimism/infra/op-lanes/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountingSink(t *testing.T) {
	var trace []string
	next := &traceListener{name: "next", trace: &trace}
	sink := NewCountingSink(next)

	d := types.NewTestDescription("S", "m")
	sink.TestStarted(d)
	sink.TestFailure(&types.Failure{Description: d, Err: errors.New("boom")})
	sink.TestFinished(d)
	sink.TestIgnored(types.NewTestDescription("S", "n"))

	assert.Equal(t, 1, sink.Count(types.EventTestStarted))
	assert.Equal(t, 0, sink.Count(types.EventStop))
	assert.Equal(t, []string{"next:m(S)"}, trace)

	res := sink.Result()
	require.NotNil(t, res)
	assert.Equal(t, 1, res.RunCount)
	assert.Equal(t, 1, res.FailureCount)
	assert.Equal(t, 1, res.IgnoreCount)
	assert.False(t, res.WasSuccessful())
}

func TestCountingSinkNilNext(t *testing.T) {
	sink := NewCountingSink(nil)
	sink.Stop()
	assert.Equal(t, 1, sink.Count(types.EventStop))
}

package isolation

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLanes(t *testing.T, root *Context, n int) []*Context {
	t.Helper()
	lanes := make([]*Context, n)
	for i := range lanes {
		lane, err := root.Lane(i)
		require.NoError(t, err)
		lanes[i] = lane
	}
	return lanes
}

func TestIsolatedNameNotVisibleAcrossLanes(t *testing.T) {
	root := NewRoot([]string{"org.example.state."})
	lanes := newLanes(t, root, 2)

	lanes[0].Resolve("org.example.state.Counter").Store(42)

	assert.Nil(t, lanes[1].Resolve("org.example.state.Counter").Load(),
		"lane 1 must not observe lane 0's isolated value")
	assert.Nil(t, root.Resolve("org.example.state.Counter").Load(),
		"the shared binding must not observe lane 0's isolated value")
	assert.Equal(t, 42, lanes[0].Resolve("org.example.state.Counter").Load())
}

func TestSharedNameVisibleAcrossLanes(t *testing.T) {
	root := NewRoot([]string{"org.example.state."})
	lanes := newLanes(t, root, 2)

	lanes[0].Resolve("org.example.lib.Cache").Store("warm")

	assert.Equal(t, "warm", lanes[1].Resolve("org.example.lib.Cache").Load())
	assert.Same(t, lanes[0].Resolve("org.example.lib.Cache"), lanes[1].Resolve("org.example.lib.Cache"))
	assert.Same(t, root, lanes[1].Resolve("org.example.lib.Cache").Scope())
}

func TestDefineSeedsFreshLaneState(t *testing.T) {
	root := NewRoot([]string{"fixture."})
	var created int
	root.Define("fixture.db", func() any {
		created++
		return map[string]int{}
	})
	lanes := newLanes(t, root, 3)

	for i, lane := range lanes {
		m := lane.Resolve("fixture.db").Load().(map[string]int)
		assert.Empty(t, m, "lane %d should start with a fresh value", i)
		m["rows"] = i
	}
	assert.Equal(t, 3, created)

	for i, lane := range lanes {
		assert.Equal(t, i, lane.Resolve("fixture.db").Load().(map[string]int)["rows"])
	}
}

func TestIsIsolated(t *testing.T) {
	root := NewRoot([]string{"a.b.", " ", "x"})

	tests := []struct {
		name     string
		isolated bool
	}{
		{name: "a.b.C", isolated: true},
		{name: "a.bC", isolated: false},
		{name: "xyz", isolated: true},
		{name: "", isolated: false},
		{name: "other", isolated: false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.name), func(t *testing.T) {
			assert.Equal(t, tt.isolated, root.IsIsolated(tt.name))
		})
	}
	assert.Equal(t, []string{"a.b.", "x"}, root.Prefixes())
}

func TestLaneContextsAreFixedDepth(t *testing.T) {
	root := NewRoot(nil)
	lane, err := root.Lane(0)
	require.NoError(t, err)

	again, err := root.Lane(0)
	require.NoError(t, err)
	assert.Same(t, lane, again)

	_, err = lane.Lane(1)
	assert.ErrorIs(t, err, ErrNestedScope)

	_, err = root.Lane(-1)
	assert.Error(t, err)

	assert.Equal(t, RootLane, root.LaneID())
	assert.Equal(t, 0, lane.LaneID())
	assert.Same(t, root, lane.Parent())
	assert.Equal(t, "lane-0", lane.String())
}

func TestConcurrentResolveCreatesOneBinding(t *testing.T) {
	root := NewRoot([]string{"iso."})
	lane, err := root.Lane(0)
	require.NoError(t, err)
	root.Define("iso.counter", func() any { return 0 })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lane.Resolve("iso.counter").Update(func(v any) any { return v.(int) + 1 })
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, lane.Resolve("iso.counter").Load())
}

func TestInitializerResolvesOtherNames(t *testing.T) {
	root := NewRoot([]string{"iso."})
	lane, err := root.Lane(0)
	require.NoError(t, err)

	root.Define("shared.base", func() any { return 10 })
	root.Define("iso.base", func() any { return 5 })
	root.Define("iso.derived", func() any {
		return lane.Resolve("iso.base").Load().(int) + lane.Resolve("shared.base").Load().(int)
	})

	var wg sync.WaitGroup
	results := make([]any, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = lane.Resolve("iso.derived").Load()
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, 15, r)
	}
	assert.Same(t, lane.Resolve("iso.derived"), lane.Resolve("iso.derived"))
	assert.Same(t, root, lane.Resolve("shared.base").Scope())
}

package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(id string) WorkUnit {
	return NewUnit(id, func(context.Context, *Execution) error { return nil })
}

func TestNewPlan(t *testing.T) {
	tests := []struct {
		name    string
		lanes   [][]WorkUnit
		wantErr bool
	}{
		{name: "no lanes", lanes: nil, wantErr: true},
		{name: "empty lanes", lanes: [][]WorkUnit{{}, {}}},
		{name: "nil unit", lanes: [][]WorkUnit{{nil}}, wantErr: true},
		{name: "duplicate across lanes", lanes: [][]WorkUnit{{noop("a")}, {noop("a")}}, wantErr: true},
		{name: "duplicate within lane", lanes: [][]WorkUnit{{noop("a"), noop("a")}}, wantErr: true},
		{name: "valid", lanes: [][]WorkUnit{{noop("a"), noop("b")}, {noop("c")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlan(tt.lanes, nil, nil)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPlanLaneOf(t *testing.T) {
	a, b, c := noop("a"), noop("b"), noop("c")
	plan, err := NewPlan([][]WorkUnit{{a, b}, {c}}, []string{"x."}, nil)
	require.NoError(t, err)

	lane, ok := plan.LaneOf(b)
	assert.True(t, ok)
	assert.Equal(t, 0, lane)
	lane, ok = plan.LaneOf(c)
	assert.True(t, ok)
	assert.Equal(t, 1, lane)

	_, ok = plan.LaneOf(noop("unknown"))
	assert.False(t, ok)
	_, ok = plan.LaneOf(nil)
	assert.False(t, ok)

	assert.Equal(t, 3, plan.Size())
	ids := []string{}
	for _, u := range plan.Units() {
		ids = append(ids, u.ID())
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

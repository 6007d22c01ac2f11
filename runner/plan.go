package runner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum-optimism/infra/op-lanes/isolation"
	"github.com/ethereum-optimism/infra/op-lanes/types"
)

// WorkUnit is an independent, runnable test item
type WorkUnit interface {
	ID() string
	// Run executes the unit exactly once on its lane worker
	Run(ctx context.Context, exec *Execution) error
}

// Execution carries everything a unit may touch while it runs on a lane
type Execution struct {
	Lane     int
	Scope    *isolation.Context
	Out      io.Writer
	Notifier types.Notifier
}

// Resolve looks name up in the unit's isolation scope
func (e *Execution) Resolve(name string) *isolation.Binding {
	return e.Scope.Resolve(name)
}

// Printf writes formatted output attributed to the unit's lane
func (e *Execution) Printf(format string, args ...any) {
	fmt.Fprintf(e.Out, format, args...)
}

type funcUnit struct {
	id string
	fn func(ctx context.Context, exec *Execution) error
}

func (u *funcUnit) ID() string { return u.id }

func (u *funcUnit) Run(ctx context.Context, exec *Execution) error {
	return u.fn(ctx, exec)
}

// NewUnit adapts a function into a WorkUnit
func NewUnit(id string, fn func(ctx context.Context, exec *Execution) error) WorkUnit {
	return &funcUnit{id: id, fn: fn}
}

// Plan is a fixed assignment of work units to lanes
type Plan struct {
	Lanes       [][]WorkUnit
	Isolate     []string
	Description *types.Description

	laneOf map[string]int
}

// NewPlan validates the lane groups and builds the unit-to-lane lookup. Unit IDs must be
// unique across all lanes.
func NewPlan(lanes [][]WorkUnit, isolate []string, description *types.Description) (*Plan, error) {
	if len(lanes) == 0 {
		return nil, errors.New("plan requires at least one lane")
	}
	laneOf := make(map[string]int)
	for lane, units := range lanes {
		for i, u := range units {
			if u == nil {
				return nil, fmt.Errorf("lane %d: unit %d is nil", lane, i)
			}
			if prev, ok := laneOf[u.ID()]; ok {
				return nil, fmt.Errorf("duplicate unit %q in lanes %d and %d", u.ID(), prev, lane)
			}
			laneOf[u.ID()] = lane
		}
	}
	return &Plan{
		Lanes:       lanes,
		Isolate:     isolate,
		Description: description,
		laneOf:      laneOf,
	}, nil
}

// LaneOf returns the lane the unit was assigned to
func (p *Plan) LaneOf(u WorkUnit) (int, bool) {
	if u == nil || p.laneOf == nil {
		return 0, false
	}
	lane, ok := p.laneOf[u.ID()]
	return lane, ok
}

// Units returns every unit of the plan, lane by lane in declaration order
func (p *Plan) Units() []WorkUnit {
	var units []WorkUnit
	for _, lane := range p.Lanes {
		units = append(units, lane...)
	}
	return units
}

// Size returns the total number of units
func (p *Plan) Size() int {
	return len(p.laneOf)
}

package runner

import (
	"sort"
	"time"

	"github.com/ethereum-optimism/infra/op-lanes/types"
)

// UnitResult captures the outcome of one work unit
type UnitResult struct {
	UnitID      string
	Lane        int
	Status      types.TestStatus
	Duration    time.Duration
	Events      int
	Failures    int
	ReplayOrder int // position of the unit's replay in the merged stream
	Error       error
}

// LaneResult aggregates the units of one lane
type LaneResult struct {
	Lane     int
	Stats    ResultStats
	Duration time.Duration // sum of unit durations, the lane ran them back to back
}

// ResultStats tracks unit statistics
type ResultStats struct {
	Total     int
	Passed    int
	Failed    int
	Skipped   int
	Errored   int
	StartTime time.Time
	EndTime   time.Time
}

// RunResult captures a complete orchestration run
type RunResult struct {
	RunID         string
	Status        types.TestStatus
	Units         []*UnitResult // in replay order
	Lanes         []*LaneResult
	Stats         ResultStats
	WallClockTime time.Duration
}

func newRunResult(runID string, lanes int, start time.Time) *RunResult {
	result := &RunResult{
		RunID:  runID,
		Status: types.TestStatusSkip,
		Lanes:  make([]*LaneResult, lanes),
		Stats:  ResultStats{StartTime: start},
	}
	for i := range result.Lanes {
		result.Lanes[i] = &LaneResult{Lane: i, Stats: ResultStats{StartTime: start}}
	}
	return result
}

func (r *RunResult) add(unit *UnitResult) {
	unit.ReplayOrder = len(r.Units)
	r.Units = append(r.Units, unit)
	lane := r.Lanes[unit.Lane]
	lane.Duration += unit.Duration
	lane.Stats.add(unit.Status)
	r.Stats.add(unit.Status)
}

func (s *ResultStats) add(status types.TestStatus) {
	s.Total++
	switch status {
	case types.TestStatusPass:
		s.Passed++
	case types.TestStatusFail:
		s.Failed++
	case types.TestStatusSkip:
		s.Skipped++
	case types.TestStatusError:
		s.Errored++
	}
}

func (r *RunResult) finalize(end time.Time) {
	r.Stats.EndTime = end
	r.WallClockTime = end.Sub(r.Stats.StartTime)
	for _, lane := range r.Lanes {
		lane.Stats.EndTime = end
	}
	r.Status = determineRunStatus(r.Stats)
}

// Unit returns the result of the unit with the given ID
func (r *RunResult) Unit(id string) (*UnitResult, bool) {
	for _, u := range r.Units {
		if u.UnitID == id {
			return u, true
		}
	}
	return nil, false
}

// LaneUnits returns the results of one lane's units in the order they ran
func (r *RunResult) LaneUnits(lane int) []*UnitResult {
	var units []*UnitResult
	for _, u := range r.Units {
		if u.Lane == lane {
			units = append(units, u)
		}
	}
	// replays of one lane happen in its run order already, keep it stable anyway
	sort.SliceStable(units, func(i, j int) bool { return units[i].ReplayOrder < units[j].ReplayOrder })
	return units
}

func determineRunStatus(stats ResultStats) types.TestStatus {
	switch {
	case stats.Total == 0:
		return types.TestStatusSkip
	case stats.Errored > 0 || stats.Failed > 0:
		return types.TestStatusFail
	case stats.Passed == 0:
		return types.TestStatusSkip
	default:
		return types.TestStatusPass
	}
}

// unitStatus derives a unit's status from its recorded events and execution error
func unitStatus(events []types.ReportEvent, err error) (types.TestStatus, int) {
	var failures, started, ignored int
	for _, e := range events {
		switch e.Kind {
		case types.EventTestFailure:
			failures++
		case types.EventTestStarted:
			started++
		case types.EventTestIgnored:
			ignored++
		}
	}
	switch {
	case err != nil:
		return types.TestStatusError, failures
	case failures > 0:
		return types.TestStatusFail, failures
	case started == 0 && ignored > 0:
		return types.TestStatusSkip, failures
	default:
		return types.TestStatusPass, failures
	}
}

// Package recorder buffers the report events of one work unit, together with the output
// produced around them, and replays them into the real sink in recording order.
package recorder

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/op-lanes/isolation"
	"github.com/ethereum-optimism/infra/op-lanes/metrics"
	"github.com/ethereum-optimism/infra/op-lanes/output"
	"github.com/ethereum-optimism/infra/op-lanes/types"
	"github.com/ethereum/go-ethereum/log"
)

var (
	ErrAlreadyReplayed = errors.New("recording already replayed")
	ErrDiscarded       = errors.New("recording discarded")
)

// State is the lifecycle state of a Recorder
type State int

const (
	StateRecording State = iota
	StateReplayed
	StateDiscarded
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateReplayed:
		return "replayed"
	case StateDiscarded:
		return "discarded"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Recorder is a write-only Notifier that defers delivery of a unit's events until Replay
type Recorder struct {
	unitID string
	scope  *isolation.Context
	mux    *output.Multiplexer
	log    log.Logger

	mu      sync.Mutex
	state   State
	leading []byte
	events  []types.ReportEvent
}

var _ types.Notifier = (*Recorder)(nil)

// New creates a Recorder for the unit running under scope. Output is attributed through mux.
func New(unitID string, scope *isolation.Context, mux *output.Multiplexer, logger log.Logger) *Recorder {
	if logger == nil {
		logger = log.NewLogger(log.DiscardHandler())
	}
	return &Recorder{
		unitID: unitID,
		scope:  scope,
		mux:    mux,
		log:    logger.New("component", "recorder", "unit", unitID),
	}
}

// Begin captures output that the lane produced before the unit started, so it is replayed
// ahead of the unit's first event.
func (r *Recorder) Begin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return
	}
	r.leading = append(r.leading, r.mux.TakeAndReset(r.scope)...)
	r.leading = append(r.leading, r.mux.TakeAndResetGeneral()...)
}

func (r *Recorder) RunStarted(d *types.Description) {
	r.record(types.EventRunStarted, d)
}

func (r *Recorder) RunFinished(res *types.Result) {
	r.record(types.EventRunFinished, res)
}

func (r *Recorder) SuiteStarted(d *types.Description) {
	r.record(types.EventSuiteStarted, d)
}

func (r *Recorder) SuiteFinished(d *types.Description) {
	r.record(types.EventSuiteFinished, d)
}

func (r *Recorder) TestStarted(d *types.Description) {
	r.record(types.EventTestStarted, d)
}

func (r *Recorder) TestFailure(f *types.Failure) {
	r.record(types.EventTestFailure, f)
}

func (r *Recorder) AssumptionFailed(f *types.Failure) {
	r.record(types.EventAssumptionFailed, f)
}

func (r *Recorder) TestIgnored(d *types.Description) {
	r.record(types.EventTestIgnored, d)
}

func (r *Recorder) TestFinished(d *types.Description) {
	r.record(types.EventTestFinished, d)
}

func (r *Recorder) Stop() {
	r.record(types.EventStop, nil)
}

func (r *Recorder) AddListener(types.Listener) error {
	return fmt.Errorf("recorder.AddListener: %w", types.ErrUnsupportedOperation)
}

func (r *Recorder) AddFirstListener(types.Listener) error {
	return fmt.Errorf("recorder.AddFirstListener: %w", types.ErrUnsupportedOperation)
}

func (r *Recorder) RemoveListener(types.Listener) error {
	return fmt.Errorf("recorder.RemoveListener: %w", types.ErrUnsupportedOperation)
}

func (r *Recorder) record(kind types.EventKind, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		r.log.Warn("Dropping event after recording ended", "kind", kind, "state", r.state)
		return
	}
	r.events = append(r.events, types.ReportEvent{
		Kind:      kind,
		Payload:   payload,
		Preceding: r.mux.TakeAndReset(r.scope),
		General:   r.mux.TakeAndResetGeneral(),
	})
}

// Replay writes the recorded output to out and forwards every event to sink, in
// recording order. It may succeed only once. Callers must hold the merge lock so that
// replays of different units never interleave.
func (r *Recorder) Replay(sink types.Sink, out io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case StateReplayed:
		return ErrAlreadyReplayed
	case StateDiscarded:
		return ErrDiscarded
	}
	r.state = StateReplayed

	start := time.Now()
	var errs []error
	write := func(p []byte) {
		if len(p) == 0 {
			return
		}
		if _, err := out.Write(p); err != nil {
			errs = append(errs, fmt.Errorf("write output: %w", err))
		}
	}

	write(r.leading)
	for _, e := range r.events {
		write(e.General)
		write(e.Preceding)
		if err := e.Deliver(sink); err != nil {
			errs = append(errs, err)
			continue
		}
		metrics.RecordReplayedEvent(e.Kind)
	}
	// output produced after the last event but before this replay
	write(r.mux.TakeAndReset(r.scope))
	write(r.mux.TakeAndResetGeneral())

	metrics.RecordReplay(r.laneID(), time.Since(start))
	r.log.Debug("Replayed recording", "events", len(r.events), "duration", time.Since(start))
	r.leading = nil
	r.events = nil
	return errors.Join(errs...)
}

// Discard abandons the recording. Buffered events are dropped and Replay fails afterwards.
func (r *Recorder) Discard() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateReplayed {
		return ErrAlreadyReplayed
	}
	r.state = StateDiscarded
	r.leading = nil
	r.events = nil
	return nil
}

// Events returns a copy of the events recorded so far
func (r *Recorder) Events() []types.ReportEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.ReportEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of recorded events
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) laneID() int {
	if r.scope == nil {
		return isolation.RootLane
	}
	return r.scope.LaneID()
}

func (r *Recorder) UnitID() string {
	return r.unitID
}

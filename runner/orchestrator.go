package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/op-lanes/isolation"
	"github.com/ethereum-optimism/infra/op-lanes/metrics"
	"github.com/ethereum-optimism/infra/op-lanes/output"
	"github.com/ethereum-optimism/infra/op-lanes/recorder"
	"github.com/ethereum-optimism/infra/op-lanes/scheduler"
	"github.com/ethereum-optimism/infra/op-lanes/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Config holds configuration for creating a new Orchestrator
type Config struct {
	Log     log.Logger
	Sink    types.Sink      // real downstream sink, required
	Channel *output.Channel // process-wide output channel, defaults to output.Stdout
	Isolate []string        // prefixes isolated in addition to the plan's own
	Tracer  trace.Tracer
}

// Lane is one partition of a run: a dedicated worker plus an isolation scope
type Lane struct {
	ID    int
	Scope *isolation.Context
	Units []WorkUnit
}

// Orchestrator runs plans. Only one run may be active at a time since a run redirects the
// process-wide output channel.
type Orchestrator struct {
	log     log.Logger
	sink    types.Sink
	channel *output.Channel
	isolate []string
	tracer  trace.Tracer

	background sync.WaitGroup // interrupted runs still draining their units
}

// New creates a new Orchestrator
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Sink == nil {
		return nil, errors.New("sink is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Channel == nil {
		cfg.Channel = output.Stdout
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("lane orchestrator")
	}
	return &Orchestrator{
		log:     cfg.Log.New("component", "orchestrator"),
		sink:    cfg.Sink,
		channel: cfg.Channel,
		isolate: cfg.Isolate,
		tracer:  cfg.Tracer,
	}, nil
}

// runState is shared by the tasks of one run
type runState struct {
	sink   types.Sink
	out    io.Writer // the channel's real target while redirected
	mux    *output.Multiplexer
	merge  sync.Mutex
	result *RunResult
	errs   []error // in completion order
}

// Run executes every unit of the plan on its lane and replays each unit's report events
// into the configured sink as the unit completes. It returns once all units finished.
// When units fail, the first error in completion order is returned after all replays
// were flushed; the RunResult is returned alongside.
// If ctx ends while waiting the error wraps types.ErrInterruptedWait and the run must not be
// retried. Units still running keep replaying into the sink and the output channel stays
// redirected until they finished, so further runs on the channel are rejected until then.
func (o *Orchestrator) Run(ctx context.Context, plan *Plan) (*RunResult, error) {
	if plan == nil {
		return nil, errors.New("plan is required")
	}
	if plan.laneOf == nil {
		indexed, err := NewPlan(plan.Lanes, plan.Isolate, plan.Description)
		if err != nil {
			return nil, fmt.Errorf("invalid plan: %w", err)
		}
		plan = indexed
	}
	runID := uuid.New().String()
	start := time.Now()
	logger := o.log.New("run", runID)

	ctx, span := o.tracer.Start(ctx, fmt.Sprintf("run %s", runID))
	defer span.End()
	span.SetAttributes(attribute.Int("lanes", len(plan.Lanes)), attribute.Int("units", plan.Size()))

	lanes, err := o.buildLanes(plan)
	if err != nil {
		return nil, err
	}

	mux := output.NewMultiplexer()
	realOut, restore, err := o.channel.Redirect(mux)
	if err != nil {
		return nil, fmt.Errorf("redirect output channel: %w", err)
	}
	interrupted := false
	defer func() {
		// an interrupted run keeps the channel until its units drained
		if !interrupted {
			restore()
		}
	}()

	sched, err := scheduler.New(len(lanes), logger)
	if err != nil {
		return nil, fmt.Errorf("create lane scheduler: %w", err)
	}

	run := &runState{
		sink:   o.sink,
		out:    realOut,
		mux:    mux,
		result: newRunResult(runID, len(lanes), start),
	}

	defer func() {
		if interrupted {
			o.background.Add(1)
			go o.drain(run, sched, restore, plan.Description, logger)
			return
		}
		if err := sched.Close(); err != nil {
			logger.Error("Failed to stop lane workers", "err", err)
		}
	}()

	logger.Info("Starting lane run", "lanes", len(lanes), "units", plan.Size(), "isolate", lanes[0].Scope.Prefixes())
	if plan.Description != nil {
		o.sink.SuiteStarted(plan.Description)
	}

	var scheduleErr error
	for _, unit := range plan.Units() {
		laneID, ok := plan.LaneOf(unit)
		if !ok {
			scheduleErr = fmt.Errorf("unit %s has no lane: %w", unit.ID(), types.ErrIllegalLane)
			break
		}
		if laneID < 0 || laneID >= len(lanes) {
			scheduleErr = fmt.Errorf("unit %s assigned to lane %d: %w", unit.ID(), laneID, types.ErrIllegalLane)
			break
		}
		lane := lanes[laneID]
		rec := recorder.New(unit.ID(), lane.Scope, mux, logger)
		if err := sched.Schedule(o.unitTask(ctx, run, unit, lane, rec, logger), laneID); err != nil {
			scheduleErr = fmt.Errorf("schedule unit %s: %w", unit.ID(), err)
			break
		}
	}

	if err := sched.AwaitCompletion(ctx); err != nil {
		interrupted = true
		logger.Error("Interrupted while waiting for lanes", "err", err)
		metrics.RecordErrorDetails("await_completion", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "interrupted")
		return nil, errors.Join(scheduleErr, err)
	}

	run.merge.Lock()
	// output written outside any unit after the last replay
	if p := mux.TakeAndResetGeneral(); len(p) > 0 {
		if _, err := run.out.Write(p); err != nil {
			logger.Warn("Failed to flush trailing output", "err", err)
		}
	}
	run.merge.Unlock()

	if plan.Description != nil {
		o.sink.SuiteFinished(plan.Description)
	}

	result := run.result
	result.finalize(time.Now())
	metrics.RecordRun(runID, result.Status, result.WallClockTime)
	logger.Info("Lane run completed",
		"status", result.Status,
		"units", result.Stats.Total,
		"passed", result.Stats.Passed,
		"failed", result.Stats.Failed+result.Stats.Errored,
		"duration", result.WallClockTime)

	if scheduleErr != nil {
		span.RecordError(scheduleErr)
		span.SetStatus(codes.Error, "schedule failed")
		return result, scheduleErr
	}
	if len(run.errs) > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d units failed", len(run.errs)))
		return result, run.errs[0]
	}
	return result, nil
}

// drain lets the units of an interrupted run finish and replay, flushes what is left in
// the general bucket and only then releases the output channel
func (o *Orchestrator) drain(run *runState, sched *scheduler.Scheduler, restore func(), description *types.Description, logger log.Logger) {
	defer o.background.Done()
	defer restore()

	if err := sched.Close(); err != nil {
		logger.Error("Failed to stop lane workers", "err", err)
	}

	run.merge.Lock()
	defer run.merge.Unlock()
	if p := run.mux.TakeAndResetGeneral(); len(p) > 0 {
		if _, err := run.out.Write(p); err != nil {
			logger.Warn("Failed to flush trailing output", "err", err)
		}
	}
	if description != nil {
		o.sink.SuiteFinished(description)
	}
	logger.Info("Interrupted run drained", "units", len(run.result.Units))
}

// Wait blocks until the units of every interrupted run have finished replaying and the
// output channel was released
func (o *Orchestrator) Wait() {
	o.background.Wait()
}

func (o *Orchestrator) buildLanes(plan *Plan) ([]*Lane, error) {
	prefixes := append(append([]string{}, plan.Isolate...), o.isolate...)
	root := isolation.NewRoot(prefixes)
	lanes := make([]*Lane, len(plan.Lanes))
	for i, units := range plan.Lanes {
		scope, err := root.Lane(i)
		if err != nil {
			return nil, fmt.Errorf("create lane %d: %w", i, err)
		}
		lanes[i] = &Lane{ID: i, Scope: scope, Units: units}
	}
	return lanes, nil
}

// unitTask builds the task run on the unit's lane worker: execute against the recorder,
// then replay under the merge lock. Replay always happens before the unit's error is
// reported.
func (o *Orchestrator) unitTask(ctx context.Context, run *runState, unit WorkUnit, lane *Lane, rec *recorder.Recorder, logger log.Logger) scheduler.Task {
	return func() {
		unitLog := logger.New("unit", unit.ID(), "lane", lane.ID)
		ctx, span := o.tracer.Start(ctx, fmt.Sprintf("unit %s", unit.ID()),
			trace.WithAttributes(attribute.Int("lane", lane.ID)))
		defer span.End()

		exec := &Execution{
			Lane:     lane.ID,
			Scope:    lane.Scope,
			Out:      run.mux.Writer(lane.Scope),
			Notifier: rec,
		}

		start := time.Now()
		rec.Begin()
		err := runUnit(ctx, unit, exec)
		duration := time.Since(start)
		if err != nil {
			err = types.NewUnitExecutionError(unit.ID(), lane.ID, err)
			unitLog.Warn("Unit failed", "err", err, "events", rec.Len())
			span.RecordError(err)
			span.SetStatus(codes.Error, "unit failed")
		}
		status, failures := unitStatus(rec.Events(), err)
		events := rec.Len()

		waitStart := time.Now()
		run.merge.Lock()
		defer run.merge.Unlock()
		metrics.RecordMergeLockWait(time.Since(waitStart))

		_, replaySpan := o.tracer.Start(ctx, fmt.Sprintf("replay %s", unit.ID()))
		if replayErr := rec.Replay(run.sink, run.out); replayErr != nil {
			unitLog.Error("Replay failed", "err", replayErr)
			metrics.RecordErrorDetails("replay", replayErr)
			replaySpan.RecordError(replayErr)
			if err == nil {
				err = fmt.Errorf("replay unit %s: %w", unit.ID(), replayErr)
				status = types.TestStatusError
			}
		}
		replaySpan.End()

		metrics.RecordCompleted(lane.ID, status)
		run.result.add(&UnitResult{
			UnitID:   unit.ID(),
			Lane:     lane.ID,
			Status:   status,
			Duration: duration,
			Events:   events,
			Failures: failures,
			Error:    err,
		})
		if err != nil {
			run.errs = append(run.errs, err)
		}
		unitLog.Debug("Unit replayed", "status", status, "events", events, "duration", duration)
	}
}

// runUnit invokes the unit, converting a panic into an error
func runUnit(ctx context.Context, unit WorkUnit, exec *Execution) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected panic in unit: %v\n%s", r, string(debug.Stack()))
		}
	}()
	return unit.Run(ctx, exec)
}

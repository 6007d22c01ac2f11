package lanes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum-optimism/infra/op-lanes/metrics"
	"github.com/ethereum-optimism/infra/op-lanes/output"
	"github.com/ethereum-optimism/infra/op-lanes/reporting"
	"github.com/ethereum-optimism/infra/op-lanes/runner"
	"github.com/ethereum-optimism/infra/op-lanes/types"
	"github.com/ethereum-optimism/optimism/op-service/httputil"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

// Lanes runs plans against a broadcaster of report listeners and keeps the ambient
// services (metrics server, summary output) around them.
type Lanes struct {
	config      *Config
	broadcaster *reporting.Broadcaster
	channel     *output.Channel
	summaryOut  io.Writer

	metricsServer *httputil.HTTPServer
	running       atomic.Bool

	active     sync.Mutex     // held from RunStarted until RunFinished was delivered
	background sync.WaitGroup // interrupted runs waiting for their units
}

// ErrRunActive is returned when a run is started while another one, possibly an
// interrupted one still draining its units, has not finished
var ErrRunActive = errors.New("another run is still active")

// Option customises a Lanes instance
type Option func(*Lanes)

// WithChannel sets the output channel that runs redirect, output.Stdout by default
func WithChannel(ch *output.Channel) Option {
	return func(l *Lanes) { l.channel = ch }
}

// WithSummaryOutput sets where the per-lane result table is written, os.Stdout by default
func WithSummaryOutput(w io.Writer) Option {
	return func(l *Lanes) { l.summaryOut = w }
}

func New(config *Config, listeners []types.Listener, opts ...Option) (*Lanes, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Log == nil {
		return nil, errors.New("config log is required")
	}
	broadcaster := reporting.NewBroadcaster(reporting.NewLogListener(config.Log))
	for _, l := range listeners {
		if err := broadcaster.AddListener(l); err != nil {
			return nil, fmt.Errorf("failed to add listener: %w", err)
		}
	}
	l := &Lanes{
		config:      config,
		broadcaster: broadcaster,
		channel:     output.Stdout,
		summaryOut:  os.Stdout,
	}
	for _, opt := range opts {
		opt(l)
	}
	config.Log.Debug("Created lanes",
		"profile", config.Profile,
		"isolate", config.Isolate,
		"maxLanes", config.MaxLanes,
		"metrics", config.MetricsConfig.Enabled)
	return l, nil
}

// Notifier returns the broadcaster every run reports into
func (l *Lanes) Notifier() types.Notifier {
	return l.broadcaster
}

// Start starts the metrics server when enabled
func (l *Lanes) Start(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("already running")
	}
	if !l.config.MetricsConfig.Enabled {
		return nil
	}
	registry := opmetrics.NewRegistry()
	registry.MustRegister(metrics.Collectors()...)

	cfg := l.config.MetricsConfig
	l.config.Log.Info("Starting metrics server", "addr", cfg.ListenAddr, "port", cfg.ListenPort)
	server, err := opmetrics.StartServer(registry, cfg.ListenAddr, cfg.ListenPort)
	if err != nil {
		l.running.Store(false)
		return NewRuntimeError(fmt.Errorf("failed to start metrics server: %w", err))
	}
	l.config.Log.Info("Started metrics server", "endpoint", server.Addr())
	l.metricsServer = server
	return nil
}

// Stop stops the metrics server, if any
func (l *Lanes) Stop(ctx context.Context) error {
	if !l.running.CompareAndSwap(true, false) {
		return nil
	}
	if l.metricsServer == nil {
		return nil
	}
	if err := l.metricsServer.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop metrics server: %w", err)
	}
	l.metricsServer = nil
	return nil
}

func (l *Lanes) Stopped() bool {
	return !l.running.Load()
}

// Run executes the plan. Failures of work units are returned as they are, every other
// error is wrapped in a RuntimeError.
func (l *Lanes) Run(ctx context.Context, plan *runner.Plan) (*runner.RunResult, error) {
	if plan == nil {
		return nil, NewRuntimeError(errors.New("plan is required"))
	}
	if l.config.MaxLanes > 0 && len(plan.Lanes) > l.config.MaxLanes {
		return nil, NewRuntimeError(fmt.Errorf("plan uses %d lanes, at most %d allowed: %w",
			len(plan.Lanes), l.config.MaxLanes, types.ErrIllegalLane))
	}

	if !l.active.TryLock() {
		return nil, NewRuntimeError(ErrRunActive)
	}

	counter := reporting.NewCountingSink(l.broadcaster)
	orchestrator, err := runner.New(runner.Config{
		Log:     l.config.Log,
		Sink:    counter,
		Channel: l.channel,
		Isolate: l.config.Isolate,
	})
	if err != nil {
		l.active.Unlock()
		return nil, NewRuntimeError(err)
	}

	description := plan.Description
	if description == nil {
		description = types.NewSuiteDescription("lanes")
	}
	start := time.Now()
	counter.RunStarted(description)
	result, runErr := orchestrator.Run(ctx, plan)

	finish := func() {
		defer l.active.Unlock()
		summary := counter.Result()
		summary.RunTime = time.Since(start)
		counter.RunFinished(summary)
	}
	if errors.Is(runErr, types.ErrInterruptedWait) {
		// units of the interrupted run still replay; the run ends once they are done
		l.background.Add(1)
		go func() {
			defer l.background.Done()
			orchestrator.Wait()
			finish()
			l.config.Log.Info("Interrupted run finished")
		}()
		return nil, NewRuntimeError(runErr)
	}
	finish()

	if result != nil && l.config.Summary {
		reporting.WriteLaneSummary(l.summaryOut, result)
	}
	if runErr != nil && !types.IsUnitExecutionError(runErr) {
		return result, NewRuntimeError(runErr)
	}
	return result, runErr
}

// Wait blocks until every interrupted run delivered its remaining events
func (l *Lanes) Wait() {
	l.background.Wait()
}

package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-lanes/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "op_lanes"
)

var (
	Debug                bool = false
	validResults              = []types.TestStatus{types.TestStatusPass, types.TestStatusFail, types.TestStatusSkip, types.TestStatusError}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	unitsScheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "units_scheduled_total",
		Help:      "Count of work units scheduled onto a lane",
	}, []string{
		"lane",
	})

	unitsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "units_completed_total",
		Help:      "Count of work units that finished on a lane",
	}, []string{
		"lane",
		"result",
	})

	workerPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "worker_panics_total",
		Help:      "Count of tasks that panicked on a lane worker",
	}, []string{
		"lane",
	})

	replayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "replay_duration_seconds",
		Help:      "Time spent replaying one unit's recorded events",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{
		"lane",
	})

	mergeLockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "merge_lock_wait_seconds",
		Help:      "Time spent waiting for the merge lock before a replay",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	replayedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "replayed_events_total",
		Help:      "Count of report events forwarded to the real sink",
	}, []string{
		"kind",
	})

	capturedOutputBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "captured_output_bytes_total",
		Help:      "Bytes of output captured per lane, general output is reported as lane -1",
	}, []string{
		"lane",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of orchestration runs",
	}, []string{
		"result",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall clock duration of the last orchestration run",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func laneLabel(lane int) string {
	return strconv.Itoa(lane)
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordScheduled(lane int) {
	unitsScheduled.WithLabelValues(laneLabel(lane)).Inc()
}

func RecordCompleted(lane int, result types.TestStatus) {
	if !isValidResult(result) {
		log.Error("RecordCompleted - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "units_completed_total",
			"lane", lane,
			"result", result)
	}
	unitsCompleted.WithLabelValues(laneLabel(lane), string(result)).Inc()
}

func RecordWorkerPanic(lane int) {
	workerPanics.WithLabelValues(laneLabel(lane)).Inc()
}

func RecordReplay(lane int, duration time.Duration) {
	replayDuration.WithLabelValues(laneLabel(lane)).Observe(duration.Seconds())
}

func RecordMergeLockWait(wait time.Duration) {
	mergeLockWait.Observe(wait.Seconds())
}

func RecordReplayedEvent(kind types.EventKind) {
	replayedEvents.WithLabelValues(kind.String()).Inc()
}

func RecordCapturedOutput(lane int, n int) {
	if n <= 0 {
		return
	}
	capturedOutputBytes.WithLabelValues(laneLabel(lane)).Add(float64(n))
}

func RecordRun(runID string, result types.TestStatus, duration time.Duration) {
	runsTotal.WithLabelValues(string(result)).Inc()
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}

// Collectors lists every collector of this package, for registries other than the default one
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		errorsTotal,
		unitsScheduled,
		unitsCompleted,
		workerPanics,
		replayDuration,
		mergeLockWait,
		replayedEvents,
		capturedOutputBytes,
		runsTotal,
		runDuration,
	}
}

package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/ethereum-optimism/infra/op-lanes/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name: "simple error",
			err:  errors.New("test error"),
		},
		{
			name: "error with special chars",
			err:  errors.New("test@error#123"),
		},
		{
			name: "error with multiple spaces",
			err:  errors.New("test   error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			validLabelRegex := regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
			if !validLabelRegex.MatchString(result) {
				t.Errorf("errLabel() = %v, is not a valid Prometheus label", result)
			}
		})
	}
}

func TestRecordErrorDetails(t *testing.T) {
	// Test with nil error
	RecordErrorDetails("test", nil)

	// Test with actual error
	RecordErrorDetails("test", errors.New("sample error"))
}

func TestRecordScheduledAndCompleted(t *testing.T) {
	before := testutil.ToFloat64(unitsScheduled.WithLabelValues("7"))
	RecordScheduled(7)
	RecordScheduled(7)
	assert.Equal(t, before+2, testutil.ToFloat64(unitsScheduled.WithLabelValues("7")))

	passBefore := testutil.ToFloat64(unitsCompleted.WithLabelValues("7", "pass"))
	RecordCompleted(7, types.TestStatusPass)
	RecordCompleted(7, "bogus")
	assert.Equal(t, passBefore+1, testutil.ToFloat64(unitsCompleted.WithLabelValues("7", "pass")))
}

func TestRecordCapturedOutputIgnoresEmptyWrites(t *testing.T) {
	before := testutil.ToFloat64(capturedOutputBytes.WithLabelValues("9"))
	RecordCapturedOutput(9, 0)
	RecordCapturedOutput(9, 5)
	assert.Equal(t, before+5, testutil.ToFloat64(capturedOutputBytes.WithLabelValues("9")))
}

func TestRecordReplayMetrics(t *testing.T) {
	// just test that it doesn't panic
	RecordReplay(0, 3*time.Millisecond)
	RecordMergeLockWait(time.Millisecond)
	RecordWorkerPanic(0)
	RecordRun("run1", types.TestStatusFail, time.Second)

	before := testutil.ToFloat64(replayedEvents.WithLabelValues("test_started"))
	RecordReplayedEvent(types.EventTestStarted)
	assert.Equal(t, before+1, testutil.ToFloat64(replayedEvents.WithLabelValues("test_started")))
}

func TestCollectorsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	for _, c := range Collectors() {
		require.NoError(t, reg.Register(c))
	}
}

package runner

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/ethereum-optimism/infra/op-lanes/output"
	"github.com/ethereum-optimism/infra/op-lanes/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

// lockedBuffer is the shared stream that both replayed output and sink markers land in
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// markerSink writes "[kind name]" into the stream for every event it receives
type markerSink struct {
	out *lockedBuffer

	mu     sync.Mutex
	events []types.EventKind
}

func (s *markerSink) mark(kind types.EventKind, name string) {
	s.mu.Lock()
	s.events = append(s.events, kind)
	s.mu.Unlock()
	fmt.Fprintf(s.out, "[%s %s]", kind, name)
}

func (s *markerSink) Kinds() []types.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.EventKind{}, s.events...)
}

func (s *markerSink) RunStarted(d *types.Description)    { s.mark(types.EventRunStarted, d.DisplayName) }
func (s *markerSink) RunFinished(r *types.Result)        { s.mark(types.EventRunFinished, "") }
func (s *markerSink) SuiteStarted(d *types.Description)  { s.mark(types.EventSuiteStarted, d.DisplayName) }
func (s *markerSink) SuiteFinished(d *types.Description) { s.mark(types.EventSuiteFinished, d.DisplayName) }
func (s *markerSink) TestStarted(d *types.Description)   { s.mark(types.EventTestStarted, d.DisplayName) }
func (s *markerSink) TestFailure(f *types.Failure)       { s.mark(types.EventTestFailure, f.Description.DisplayName) }
func (s *markerSink) AssumptionFailed(f *types.Failure) {
	s.mark(types.EventAssumptionFailed, f.Description.DisplayName)
}
func (s *markerSink) TestIgnored(d *types.Description)  { s.mark(types.EventTestIgnored, d.DisplayName) }
func (s *markerSink) TestFinished(d *types.Description) { s.mark(types.EventTestFinished, d.DisplayName) }
func (s *markerSink) Stop()                             { s.mark(types.EventStop, "") }

type harness struct {
	stream  *lockedBuffer
	sink    *markerSink
	channel *output.Channel
	orch    *Orchestrator
}

func setupHarness(t *testing.T, opts ...func(*Config)) *harness {
	t.Helper()
	stream := &lockedBuffer{}
	sink := &markerSink{out: stream}
	channel := output.NewChannel(stream)
	cfg := Config{
		Log:     log.NewLogger(log.DiscardHandler()),
		Sink:    sink,
		Channel: channel,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	orch, err := New(cfg)
	require.NoError(t, err)
	return &harness{stream: stream, sink: sink, channel: channel, orch: orch}
}

func desc(name string) *types.Description {
	return &types.Description{DisplayName: name, Suite: "S", Method: name}
}

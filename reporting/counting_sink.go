package reporting

import (
	"sync"

	"github.com/ethereum-optimism/infra/op-lanes/types"
)

// CountingSink forwards every event to the wrapped sink and counts events per kind
type CountingSink struct {
	next types.Sink

	mu     sync.Mutex
	counts map[types.EventKind]int
}

var _ types.Sink = (*CountingSink)(nil)

func NewCountingSink(next types.Sink) *CountingSink {
	if next == nil {
		next = types.NopSink{}
	}
	return &CountingSink{next: next, counts: make(map[types.EventKind]int)}
}

// Count returns how many events of kind passed through
func (s *CountingSink) Count(kind types.EventKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[kind]
}

// Result summarises the counted events the way a finished run reports them
func (s *CountingSink) Result() *types.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &types.Result{
		RunCount:               s.counts[types.EventTestFinished],
		FailureCount:           s.counts[types.EventTestFailure],
		IgnoreCount:            s.counts[types.EventTestIgnored],
		AssumptionFailureCount: s.counts[types.EventAssumptionFailed],
	}
}

func (s *CountingSink) inc(kind types.EventKind) {
	s.mu.Lock()
	s.counts[kind]++
	s.mu.Unlock()
}

func (s *CountingSink) RunStarted(d *types.Description) {
	s.inc(types.EventRunStarted)
	s.next.RunStarted(d)
}

func (s *CountingSink) RunFinished(r *types.Result) {
	s.inc(types.EventRunFinished)
	s.next.RunFinished(r)
}

func (s *CountingSink) SuiteStarted(d *types.Description) {
	s.inc(types.EventSuiteStarted)
	s.next.SuiteStarted(d)
}

func (s *CountingSink) SuiteFinished(d *types.Description) {
	s.inc(types.EventSuiteFinished)
	s.next.SuiteFinished(d)
}

func (s *CountingSink) TestStarted(d *types.Description) {
	s.inc(types.EventTestStarted)
	s.next.TestStarted(d)
}

func (s *CountingSink) TestFailure(f *types.Failure) {
	s.inc(types.EventTestFailure)
	s.next.TestFailure(f)
}

func (s *CountingSink) AssumptionFailed(f *types.Failure) {
	s.inc(types.EventAssumptionFailed)
	s.next.AssumptionFailed(f)
}

func (s *CountingSink) TestIgnored(d *types.Description) {
	s.inc(types.EventTestIgnored)
	s.next.TestIgnored(d)
}

func (s *CountingSink) TestFinished(d *types.Description) {
	s.inc(types.EventTestFinished)
	s.next.TestFinished(d)
}

func (s *CountingSink) Stop() {
	s.inc(types.EventStop)
	s.next.Stop()
}

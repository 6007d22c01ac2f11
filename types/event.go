package types

import "fmt"

// EventKind enumerates the report sink operations that can be recorded and replayed
type EventKind int

const (
	EventRunStarted EventKind = iota
	EventRunFinished
	EventSuiteStarted
	EventSuiteFinished
	EventTestStarted
	EventTestFailure
	EventAssumptionFailed
	EventTestIgnored
	EventTestFinished
	EventStop
)

var eventKindNames = map[EventKind]string{
	EventRunStarted:       "run_started",
	EventRunFinished:      "run_finished",
	EventSuiteStarted:     "suite_started",
	EventSuiteFinished:    "suite_finished",
	EventTestStarted:      "test_started",
	EventTestFailure:      "test_failure",
	EventAssumptionFailed: "assumption_failed",
	EventTestIgnored:      "test_ignored",
	EventTestFinished:     "test_finished",
	EventStop:             "stop",
}

// AllEventKinds lists every kind in declaration order
var AllEventKinds = []EventKind{
	EventRunStarted, EventRunFinished, EventSuiteStarted, EventSuiteFinished, EventTestStarted,
	EventTestFailure, EventAssumptionFailed, EventTestIgnored, EventTestFinished, EventStop,
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// ReportEvent is one recorded sink call together with the output captured right before it.
// General holds output written without a lane handle, Preceding the output of the unit's own lane.
type ReportEvent struct {
	Kind      EventKind
	Payload   any
	Preceding []byte
	General   []byte
}

// Deliver forwards the event's kind and payload to sink
func (e ReportEvent) Deliver(sink Sink) error {
	switch e.Kind {
	case EventRunStarted:
		sink.RunStarted(asDescription(e.Payload))
	case EventRunFinished:
		r, _ := e.Payload.(*Result)
		sink.RunFinished(r)
	case EventSuiteStarted:
		sink.SuiteStarted(asDescription(e.Payload))
	case EventSuiteFinished:
		sink.SuiteFinished(asDescription(e.Payload))
	case EventTestStarted:
		sink.TestStarted(asDescription(e.Payload))
	case EventTestFailure:
		sink.TestFailure(asFailure(e.Payload))
	case EventAssumptionFailed:
		sink.AssumptionFailed(asFailure(e.Payload))
	case EventTestIgnored:
		sink.TestIgnored(asDescription(e.Payload))
	case EventTestFinished:
		sink.TestFinished(asDescription(e.Payload))
	case EventStop:
		sink.Stop()
	default:
		return fmt.Errorf("unhandled event kind %s", e.Kind)
	}
	return nil
}

func asDescription(v any) *Description {
	d, _ := v.(*Description)
	return d
}

func asFailure(v any) *Failure {
	f, _ := v.(*Failure)
	return f
}

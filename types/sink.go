package types

// Sink is the downstream consumer of report events. The orchestration core only ever
// calls these operations and never queries the sink.
type Sink interface {
	RunStarted(d *Description)
	RunFinished(r *Result)
	SuiteStarted(d *Description)
	SuiteFinished(d *Description)
	TestStarted(d *Description)
	TestFailure(f *Failure)
	AssumptionFailed(f *Failure)
	TestIgnored(d *Description)
	TestFinished(d *Description)
	Stop()
}

// Listener receives report events from a Notifier
type Listener interface {
	Sink
}

// Notifier is the sink handed to a running work unit. Besides the report operations it
// exposes listener registration, which not every implementation supports.
type Notifier interface {
	Sink
	AddListener(l Listener) error
	AddFirstListener(l Listener) error
	RemoveListener(l Listener) error
}

// NopSink ignores every event
type NopSink struct{}

func (NopSink) RunStarted(*Description)    {}
func (NopSink) RunFinished(*Result)        {}
func (NopSink) SuiteStarted(*Description)  {}
func (NopSink) SuiteFinished(*Description) {}
func (NopSink) TestStarted(*Description)   {}
func (NopSink) TestFailure(*Failure)       {}
func (NopSink) AssumptionFailed(*Failure)  {}
func (NopSink) TestIgnored(*Description)   {}
func (NopSink) TestFinished(*Description)  {}
func (NopSink) Stop()                      {}

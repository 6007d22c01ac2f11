package reporting

import (
	"github.com/acarl005/stripansi"
	"github.com/ethereum-optimism/infra/op-lanes/types"
	"github.com/ethereum/go-ethereum/log"
)

// LogListener writes every report event to a logger
type LogListener struct {
	log log.Logger
}

var _ types.Listener = (*LogListener)(nil)

func NewLogListener(logger log.Logger) *LogListener {
	return &LogListener{log: logger.New("component", "report")}
}

func (l *LogListener) RunStarted(d *types.Description) {
	l.log.Info("Run started", "run", d, "tests", d.TestCount())
}

func (l *LogListener) RunFinished(r *types.Result) {
	if r == nil {
		l.log.Info("Run finished")
		return
	}
	l.log.Info("Run finished",
		"run", r.RunCount,
		"failed", r.FailureCount,
		"ignored", r.IgnoreCount,
		"duration", r.RunTime)
}

func (l *LogListener) SuiteStarted(d *types.Description) {
	l.log.Debug("Suite started", "suite", d)
}

func (l *LogListener) SuiteFinished(d *types.Description) {
	l.log.Debug("Suite finished", "suite", d)
}

func (l *LogListener) TestStarted(d *types.Description) {
	l.log.Debug("Test started", "test", d)
}

func (l *LogListener) TestFailure(f *types.Failure) {
	l.log.Error("Test failed", "test", f.Description, "error", stripansi.Strip(f.Message()))
}

func (l *LogListener) AssumptionFailed(f *types.Failure) {
	l.log.Warn("Test assumption failed", "test", f.Description, "reason", stripansi.Strip(f.Message()))
}

func (l *LogListener) TestIgnored(d *types.Description) {
	l.log.Info("Test ignored", "test", d)
}

func (l *LogListener) TestFinished(d *types.Description) {
	l.log.Debug("Test finished", "test", d)
}

func (l *LogListener) Stop() {
	l.log.Warn("Stop requested")
}

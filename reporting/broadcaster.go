package reporting

import (
	"errors"
	"sync"

	"github.com/ethereum-optimism/infra/op-lanes/types"
)

// ErrListenerNotFound is returned when removing a listener that was never added
var ErrListenerNotFound = errors.New("listener not found")

// Broadcaster is a real Notifier that fans every event out to its listeners in
// registration order
type Broadcaster struct {
	mu        sync.RWMutex
	listeners []types.Listener
	stopped   bool
}

var _ types.Notifier = (*Broadcaster)(nil)

func NewBroadcaster(listeners ...types.Listener) *Broadcaster {
	return &Broadcaster{listeners: listeners}
}

func (b *Broadcaster) AddListener(l types.Listener) error {
	if l == nil {
		return errors.New("listener cannot be nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
	return nil
}

// AddFirstListener registers l ahead of every existing listener
func (b *Broadcaster) AddFirstListener(l types.Listener) error {
	if l == nil {
		return errors.New("listener cannot be nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append([]types.Listener{l}, b.listeners...)
	return nil
}

func (b *Broadcaster) RemoveListener(l types.Listener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.listeners {
		if existing == l {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return nil
		}
	}
	return ErrListenerNotFound
}

// Stopped reports whether Stop was requested
func (b *Broadcaster) Stopped() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stopped
}

func (b *Broadcaster) each(fn func(types.Listener)) {
	b.mu.RLock()
	listeners := make([]types.Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()
	for _, l := range listeners {
		fn(l)
	}
}

func (b *Broadcaster) RunStarted(d *types.Description) {
	b.each(func(l types.Listener) { l.RunStarted(d) })
}

func (b *Broadcaster) RunFinished(r *types.Result) {
	b.each(func(l types.Listener) { l.RunFinished(r) })
}

func (b *Broadcaster) SuiteStarted(d *types.Description) {
	b.each(func(l types.Listener) { l.SuiteStarted(d) })
}

func (b *Broadcaster) SuiteFinished(d *types.Description) {
	b.each(func(l types.Listener) { l.SuiteFinished(d) })
}

func (b *Broadcaster) TestStarted(d *types.Description) {
	b.each(func(l types.Listener) { l.TestStarted(d) })
}

func (b *Broadcaster) TestFailure(f *types.Failure) {
	b.each(func(l types.Listener) { l.TestFailure(f) })
}

func (b *Broadcaster) AssumptionFailed(f *types.Failure) {
	b.each(func(l types.Listener) { l.AssumptionFailed(f) })
}

func (b *Broadcaster) TestIgnored(d *types.Description) {
	b.each(func(l types.Listener) { l.TestIgnored(d) })
}

func (b *Broadcaster) TestFinished(d *types.Description) {
	b.each(func(l types.Listener) { l.TestFinished(d) })
}

func (b *Broadcaster) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
	b.each(func(l types.Listener) { l.Stop() })
}

package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum-optimism/infra/op-lanes/types"
)

// phase counts registrations and arrivals between two AwaitCompletion calls
type phase struct {
	number     int
	registered int
	arrived    int
	sealed     bool
	done       chan struct{}
}

func newPhase(number int) *phase {
	return &phase{number: number, done: make(chan struct{})}
}

func (p *phase) complete() bool {
	return p.arrived == p.registered
}

// Barrier releases a waiter once every registered party of the current phase has arrived.
// Each Await seals the current phase and opens a fresh one, so a barrier can be reused
// across runs without arrivals of one phase leaking into the next.
type Barrier struct {
	mu      sync.Mutex
	current *phase
}

func NewBarrier() *Barrier {
	return &Barrier{current: newPhase(0)}
}

// Token identifies the phase a party registered in; it is passed back to Arrive
type Token struct {
	p *phase
}

// Register adds a party to the current phase
func (b *Barrier) Register() Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current.registered++
	return Token{p: b.current}
}

// Arrive signals that the party holding t is done
func (b *Barrier) Arrive(t Token) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := t.p
	if p == nil {
		return fmt.Errorf("arrive with zero token")
	}
	if p.arrived >= p.registered {
		return fmt.Errorf("phase %d: arrived %d of %d registered", p.number, p.arrived+1, p.registered)
	}
	p.arrived++
	if p.sealed && p.complete() {
		close(p.done)
	}
	return nil
}

// Await seals the current phase and blocks until all of its parties arrived or ctx is done.
// On cancellation ErrInterruptedWait is returned; the sealed phase is abandoned and must
// not be awaited again.
func (b *Barrier) Await(ctx context.Context) error {
	b.mu.Lock()
	p := b.current
	p.sealed = true
	b.current = newPhase(p.number + 1)
	if p.complete() {
		close(p.done)
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("phase %d: %w: %w", p.number, types.ErrInterruptedWait, context.Cause(ctx))
	}
}

// Phase returns the number of the phase currently accepting registrations
func (b *Barrier) Phase() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current.number
}

// Counts returns the registered and arrived counts of the current phase
func (b *Barrier) Counts() (registered, arrived int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current.registered, b.current.arrived
}

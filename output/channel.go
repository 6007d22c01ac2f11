package output

import (
	"errors"
	"io"
	"os"
	"sync"
)

// ErrAlreadyRedirected is returned when a channel that is already redirected is redirected again
var ErrAlreadyRedirected = errors.New("output channel already redirected")

// Stdout is the process-wide output channel test units print to
var Stdout = NewChannel(os.Stdout)

// Channel is a byte sink whose target can be temporarily replaced
type Channel struct {
	mu         sync.RWMutex
	target     io.Writer
	redirected bool
}

func NewChannel(target io.Writer) *Channel {
	if target == nil {
		target = io.Discard
	}
	return &Channel{target: target}
}

func (c *Channel) Write(p []byte) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.target.Write(p)
}

// Target returns the writer the channel currently forwards to
func (c *Channel) Target() io.Writer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.target
}

// Redirected reports whether a redirect is in place
func (c *Channel) Redirected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.redirected
}

// Redirect makes w the channel's target. It returns the previous target, which callers
// use to reach the real output while redirected, and a restore function that reinstalls
// it. Restore is idempotent and is meant to be deferred. Redirects do not nest.
func (c *Channel) Redirect(w io.Writer) (prev io.Writer, restore func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.redirected {
		return nil, nil, ErrAlreadyRedirected
	}
	prev = c.target
	c.target = w
	c.redirected = true

	var once sync.Once
	restore = func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.target = prev
			c.redirected = false
		})
	}
	return prev, restore, nil
}

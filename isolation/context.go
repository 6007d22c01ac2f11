package isolation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// RootLane is the lane ID reported by the shared root context
const RootLane = -1

// ErrNestedScope is returned when a lane context is asked for a child context
var ErrNestedScope = errors.New("lane contexts cannot be nested")

// Initializer produces the initial value of a binding
type Initializer func() any

// Binding is a mutable named value owned by exactly one Context
type Binding struct {
	name  string
	scope *Context

	mu    sync.RWMutex
	value any
}

// Name returns the name the binding was resolved under
func (b *Binding) Name() string { return b.name }

// Scope returns the context owning the binding
func (b *Binding) Scope() *Context { return b.scope }

func (b *Binding) Load() any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value
}

func (b *Binding) Store(v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = v
}

// Update atomically replaces the value with fn(old) and returns the new value
func (b *Binding) Update(fn func(any) any) any {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = fn(b.value)
	return b.value
}

// Context resolves names to bindings. The root context is shared by all lanes; lane
// contexts own fresh bindings for isolated names.
type Context struct {
	laneID   int
	parent   *Context
	prefixes []string

	mu       sync.Mutex
	bindings map[string]*Binding
	inits    map[string]Initializer // root only
	lanes    map[int]*Context       // root only
}

// NewRoot creates the shared context. Names starting with any of prefixes are isolated
// in lane contexts created from it.
func NewRoot(prefixes []string) *Context {
	var cleaned []string
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return &Context{
		laneID:   RootLane,
		prefixes: cleaned,
		bindings: make(map[string]*Binding),
		inits:    make(map[string]Initializer),
		lanes:    make(map[int]*Context),
	}
}

// Lane returns the context for the given lane, creating it on first use
func (c *Context) Lane(id int) (*Context, error) {
	if !c.IsRoot() {
		return nil, fmt.Errorf("lane %d from lane %d: %w", id, c.laneID, ErrNestedScope)
	}
	if id < 0 {
		return nil, fmt.Errorf("invalid lane id %d", id)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if lane, ok := c.lanes[id]; ok {
		return lane, nil
	}
	lane := &Context{
		laneID:   id,
		parent:   c,
		prefixes: c.prefixes,
		bindings: make(map[string]*Binding),
	}
	c.lanes[id] = lane
	return lane, nil
}

// Define registers the initializer used whenever a binding for name is created,
// both for the shared binding and for every lane-local copy. Concurrent first resolves
// may each run the initializer, only one result is kept. An initializer must not resolve
// its own name.
func (c *Context) Define(name string, init Initializer) {
	root := c.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	root.inits[name] = init
}

// Resolve returns the binding for name as seen from this context
func (c *Context) Resolve(name string) *Binding {
	if c.IsRoot() || !c.IsIsolated(name) {
		return c.root().local(name)
	}
	return c.local(name)
}

// IsIsolated reports whether name gets a lane-local binding
func (c *Context) IsIsolated(name string) bool {
	for _, p := range c.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Prefixes returns the isolated name prefixes
func (c *Context) Prefixes() []string {
	out := make([]string, len(c.prefixes))
	copy(out, c.prefixes)
	return out
}

// LaneID returns the lane this context belongs to, or RootLane for the shared context
func (c *Context) LaneID() int { return c.laneID }

func (c *Context) Parent() *Context { return c.parent }

func (c *Context) IsRoot() bool { return c.parent == nil }

func (c *Context) String() string {
	if c.IsRoot() {
		return "root"
	}
	return fmt.Sprintf("lane-%d", c.laneID)
}

func (c *Context) root() *Context {
	if c.parent == nil {
		return c
	}
	return c.parent
}

func (c *Context) local(name string) *Binding {
	c.mu.Lock()
	b, ok := c.bindings[name]
	c.mu.Unlock()
	if ok {
		return b
	}

	// initializers may resolve other names, so they run before anything is locked
	b = &Binding{name: name, scope: c}
	if init := c.root().initializer(name); init != nil {
		b.value = init()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.bindings[name]; ok {
		return existing
	}
	c.bindings[name] = b
	return b
}

func (c *Context) initializer(name string) Initializer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inits[name]
}

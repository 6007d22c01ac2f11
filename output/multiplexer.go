package output

import (
	"io"
	"sync"

	"github.com/ethereum-optimism/infra/op-lanes/isolation"
	"github.com/ethereum-optimism/infra/op-lanes/metrics"
)

// Multiplexer routes writes into per-lane buffers keyed by an explicit scope handle.
// Writes without a lane scope, including writes made through the Multiplexer's own
// Write method, land in the general bucket.
type Multiplexer struct {
	buckets sync.Map // *isolation.Context -> *segmentBuffer
	general segmentBuffer
}

func NewMultiplexer() *Multiplexer {
	return &Multiplexer{}
}

// Write appends p to the general bucket, so the multiplexer can be installed on a Channel
func (m *Multiplexer) Write(p []byte) (int, error) {
	return m.WriteScoped(nil, p)
}

// WriteScoped appends p to scope's bucket. Only lane scopes own buckets; a nil or root
// scope writes to the general bucket.
func (m *Multiplexer) WriteScoped(scope *isolation.Context, p []byte) (int, error) {
	if !isLaneScope(scope) {
		metrics.RecordCapturedOutput(isolation.RootLane, len(p))
		return m.general.Write(p)
	}
	metrics.RecordCapturedOutput(scope.LaneID(), len(p))
	return m.bucket(scope).Write(p)
}

// Writer returns an io.Writer bound to scope
func (m *Multiplexer) Writer(scope *isolation.Context) io.Writer {
	return &scopedWriter{mux: m, scope: scope}
}

// TakeAndReset returns and clears the output buffered for scope
func (m *Multiplexer) TakeAndReset(scope *isolation.Context) []byte {
	if !isLaneScope(scope) {
		return m.TakeAndResetGeneral()
	}
	b, ok := m.buckets.Load(scope)
	if !ok {
		return nil
	}
	return b.(*segmentBuffer).Take()
}

// TakeAndResetGeneral returns and clears the general bucket
func (m *Multiplexer) TakeAndResetGeneral() []byte {
	return m.general.Take()
}

// Pending returns the number of buffered bytes not yet taken for scope
func (m *Multiplexer) Pending(scope *isolation.Context) int {
	if !isLaneScope(scope) {
		return m.general.Len()
	}
	b, ok := m.buckets.Load(scope)
	if !ok {
		return 0
	}
	return b.(*segmentBuffer).Len()
}

// TotalBytes returns how many bytes were ever written for scope
func (m *Multiplexer) TotalBytes(scope *isolation.Context) int64 {
	if !isLaneScope(scope) {
		return m.general.TotalBytes()
	}
	b, ok := m.buckets.Load(scope)
	if !ok {
		return 0
	}
	return b.(*segmentBuffer).TotalBytes()
}

func (m *Multiplexer) bucket(scope *isolation.Context) *segmentBuffer {
	if b, ok := m.buckets.Load(scope); ok {
		return b.(*segmentBuffer)
	}
	b, _ := m.buckets.LoadOrStore(scope, &segmentBuffer{})
	return b.(*segmentBuffer)
}

func isLaneScope(scope *isolation.Context) bool {
	return scope != nil && !scope.IsRoot()
}

type scopedWriter struct {
	mux   *Multiplexer
	scope *isolation.Context
}

func (w *scopedWriter) Write(p []byte) (int, error) {
	return w.mux.WriteScoped(w.scope, p)
}

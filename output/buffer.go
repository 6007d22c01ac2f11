package output

import (
	"sync"
)

// segmentBuffer accumulates the output attributed to one bucket between two takes
type segmentBuffer struct {
	mu       sync.Mutex
	total    int64
	contents []byte
}

func (b *segmentBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total += int64(len(p))
	b.contents = append(b.contents, p...)
	return len(p), nil
}

// Take returns the buffered bytes and clears the buffer. It returns nil when nothing
// was written since the last take.
func (b *segmentBuffer) Take() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.contents) == 0 {
		return nil
	}
	out := b.contents
	b.contents = nil
	return out
}

func (b *segmentBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.contents)
}

// TotalBytes returns the number of bytes ever written to the buffer
func (b *segmentBuffer) TotalBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

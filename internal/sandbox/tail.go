package sandbox

import (
	"strings"
	"sync"
)

// DefaultTailSize is how many trailing bytes of stderr are kept for error
// messages. pip and Python tracebacks put the useful part at the end.
const DefaultTailSize = 4096

// Tail is an io.Writer that keeps only the last n bytes written to it.
type Tail struct {
	mu  sync.Mutex
	n   int
	buf []byte
}

// NewTail returns a Tail that keeps the last n bytes.
func NewTail(n int) *Tail {
	if n <= 0 {
		n = DefaultTailSize
	}
	return &Tail{n: n}
}

// Write appends p, discarding the oldest bytes beyond the limit.
func (t *Tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.n; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

// String returns the retained bytes with surrounding whitespace trimmed.
func (t *Tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}

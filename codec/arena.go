package codec

// Arena is a reusable scratch buffer. It grows to the exact size requested
// and keeps its capacity across uses.
type Arena struct {
	buf []byte
}

// NewArena returns an arena with capacity preallocated bytes.
func NewArena(capacity int) *Arena {
	return &Arena{buf: make([]byte, 0, capacity)}
}

// Alloc returns a zeroed slice of length n backed by the arena. The slice is
// valid until the next Alloc.
func (a *Arena) Alloc(n int) []byte {
	if cap(a.buf) < n {
		a.buf = make([]byte, n)
		return a.buf
	}
	a.buf = a.buf[:n]
	clear(a.buf)
	return a.buf
}

// Cap reports the arena's current capacity.
func (a *Arena) Cap() int { return cap(a.buf) }

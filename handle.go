package tuning

import "sync/atomic"

// a tuning shared by one or more handles
type sharedTuning struct {
	t    atomic.Pointer[Tuning]
	refs atomic.Int32
}

// Handle is one owner's reference to a possibly shared tuning. Reads through
// Tuning see a consistent value; edits go through Mutate, which never changes
// what other owners see. A single Handle must not be used from several
// goroutines at once, but distinct handles to the same tuning may.
type Handle struct {
	s *sharedTuning
}

// NewHandle takes ownership of t.
func NewHandle(t *Tuning) *Handle {
	s := &sharedTuning{}
	s.t.Store(t)
	s.refs.Store(1)
	return &Handle{s: s}
}

// Share returns a new handle to the same tuning.
func (h *Handle) Share() *Handle {
	h.s.refs.Add(1)
	return &Handle{s: h.s}
}

// Release drops h's reference and reports whether it was the last one. The
// handle must not be used afterwards.
func (h *Handle) Release() bool {
	if h.s == nil {
		return false
	}
	last := h.s.refs.Add(-1) == 0
	h.s = nil
	return last
}

// Refs returns the number of handles sharing h's tuning.
func (h *Handle) Refs() int {
	return int(h.s.refs.Load())
}

// Tuning returns the current tuning. It must be treated as read-only.
func (h *Handle) Tuning() *Tuning {
	return h.s.t.Load()
}

// Mutate applies fn to a private copy of the tuning and publishes the copy if
// fn succeeds. A shared handle is detached first, so other owners keep the
// old tuning.
func (h *Handle) Mutate(fn func(*Tuning) error) error {
	c := h.s.t.Load().Clone()
	if err := fn(c); err != nil {
		return err
	}
	h.detach()
	h.s.t.Store(c)
	return nil
}

// give h its own sharedTuning unless it is the only owner
func (h *Handle) detach() {
	for {
		n := h.s.refs.Load()
		if n <= 1 {
			return
		}
		if h.s.refs.CompareAndSwap(n, n-1) {
			h.s = &sharedTuning{}
			h.s.refs.Store(1)
			return
		}
	}
}

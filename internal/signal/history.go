package signal

// #region history

// History is a bounded FIFO of signals in arrival order. When capacity is
// exceeded the oldest arrival is evicted. Late-arriving signals with older
// timestamps are still appended at the tail: ordering is by arrival, the
// decay math orders by timestamp on its own.
type History struct {
	items    []Signal
	capacity int
}

// NewHistory creates a history with the given capacity (minimum 1).
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{capacity: capacity}
}

// Append adds a signal at the tail, evicting the oldest arrival if full.
// Duplicates are kept: repeated signals of the same kind raise confidence.
func (h *History) Append(s Signal) {
	if len(h.items) == h.capacity {
		copy(h.items, h.items[1:])
		h.items = h.items[:len(h.items)-1]
	}
	h.items = append(h.items, s)
}

// Items returns a copy of the history in arrival order.
func (h *History) Items() []Signal {
	out := make([]Signal, len(h.items))
	copy(out, h.items)
	return out
}

// Len returns the number of signals currently held.
func (h *History) Len() int {
	return len(h.items)
}

// Capacity returns the fixed capacity.
func (h *History) Capacity() int {
	return h.capacity
}

// #endregion history

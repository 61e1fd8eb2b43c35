// Wayfinder - Navigation Transition Engine for Branching Narratives
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wayfinder

package navigation

import "sync"

// History is a bounded ring buffer of past decisions for tests and the
// debug endpoint. It is never persisted.
type History struct {
	mu   sync.Mutex
	buf  []*TransitionDecision
	next int
	full bool
}

// NewHistory creates a ring buffer holding up to size decisions.
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{buf: make([]*TransitionDecision, size)}
}

// Record stores a copy of d, evicting the oldest entry when full.
func (h *History) Record(d *TransitionDecision) {
	cp := d.Clone()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.next] = cp
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

// Snapshot returns copies of the stored decisions, oldest first.
func (h *History) Snapshot() []*TransitionDecision {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.next
	start := 0
	if h.full {
		n = len(h.buf)
		start = h.next
	}
	out := make([]*TransitionDecision, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, h.buf[(start+i)%len(h.buf)].Clone())
	}
	return out
}

// Last returns a copy of the most recent decision.
func (h *History) Last() (*TransitionDecision, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.full && h.next == 0 {
		return nil, false
	}
	i := (h.next - 1 + len(h.buf)) % len(h.buf)
	return h.buf[i].Clone(), true
}

// Len returns the number of stored decisions.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.full {
		return len(h.buf)
	}
	return h.next
}

// Cap returns the buffer capacity.
func (h *History) Cap() int {
	return len(h.buf)
}

// Reset drops all stored decisions.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.buf)
	h.next = 0
	h.full = false
}

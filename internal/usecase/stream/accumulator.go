package stream

import "sync"

// Accumulator holds the latest cumulative content snapshot. Each snapshot
// replaces the previous one; nothing is concatenated.
type Accumulator struct {
	mu     sync.RWMutex
	value  string
	shrunk int
}

// Apply replaces the held value with snapshot and returns it. A snapshot
// shorter than the current value is accepted as-is and counted.
func (a *Accumulator) Apply(snapshot string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(snapshot) < len(a.value) {
		a.shrunk++
	}
	a.value = snapshot
	return a.value
}

// Value returns the latest snapshot.
func (a *Accumulator) Value() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.value
}

// Shrunk returns how many applied snapshots were shorter than their predecessor.
func (a *Accumulator) Shrunk() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.shrunk
}

// Reset clears the held value.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.value = ""
	a.shrunk = 0
}

// Package mocks provides in-memory test doubles for every port.
package mocks

import (
	"fmt"
	"sync"
)

// Journal is an ordered log of mutating calls shared between fakes, so
// tests can assert the order in which different collaborators were used.
type Journal struct {
	mu      sync.Mutex
	entries []string
}

// NewJournal creates an empty Journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Record appends a formatted entry. A nil Journal ignores the call.
func (j *Journal) Record(format string, args ...interface{}) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the recorded entries.
func (j *Journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.entries))
	copy(out, j.entries)
	return out
}

// Index returns the position of the first entry equal to entry, or -1.
func (j *Journal) Index(entry string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i, e := range j.entries {
		if e == entry {
			return i
		}
	}
	return -1
}

package episode

import (
	"fmt"
	"slices"
)

// Counters holds the current episode id of every environment. Ids start at
// zero and only grow; they are never reset across segments.
type Counters struct {
	ids []int
}

// NewCounters returns counters for n environments, all at episode 0.
func NewCounters(n int) *Counters {
	return &Counters{ids: make([]int, n)}
}

// Increment advances every environment whose done flag is set.
func (c *Counters) Increment(dones []bool) error {
	if len(dones) != len(c.ids) {
		return fmt.Errorf("episode: %d done flags for %d environments", len(dones), len(c.ids))
	}
	for i, done := range dones {
		if done {
			c.ids[i]++
		}
	}
	return nil
}

// Snapshot returns a copy of the current ids.
func (c *Counters) Snapshot() []int {
	return slices.Clone(c.ids)
}

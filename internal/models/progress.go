package models

import (
	"encoding/json"
	"sort"
)

// CompletionSet holds completed curriculum leaf ids. Membership carries no order.
type CompletionSet map[string]struct{}

// NewCompletionSet builds a set from ids, ignoring blanks and duplicates.
func NewCompletionSet(ids ...string) CompletionSet {
	set := make(CompletionSet, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// Has reports membership.
func (c CompletionSet) Has(id string) bool {
	_, ok := c[id]
	return ok
}

// Clone returns an independent copy.
func (c CompletionSet) Clone() CompletionSet {
	out := make(CompletionSet, len(c))
	for id := range c {
		out[id] = struct{}{}
	}
	return out
}

// Slice returns members sorted for stable serialization.
func (c CompletionSet) Slice() []string {
	out := make([]string, 0, len(c))
	for id := range c {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (c CompletionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Slice())
}

// UnmarshalJSON decodes an array of ids.
func (c *CompletionSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*c = NewCompletionSet(ids...)
	return nil
}

// CompletionStatus is the read model for a student's curriculum progress.
type CompletionStatus struct {
	StudentID      string        `json:"student_id"`
	Completed      CompletionSet `json:"completed"`
	CompletedCount int           `json:"completed_count"`
	TotalLeaves    int           `json:"total_leaves"`
	Ratio          float64       `json:"ratio"`
	GateOpen       bool          `json:"gate_open"`
}

// Package progress holds the curriculum completion rules shared by the API and
// the navigation gate.
package progress

import "github.com/noah-isme/classroom-api/internal/models"

// Toggle flips membership of leafID and returns a new set; the input is not modified.
func Toggle(set models.CompletionSet, leafID string) models.CompletionSet {
	next := set.Clone()
	if next.Has(leafID) {
		delete(next, leafID)
	} else {
		next[leafID] = struct{}{}
	}
	return next
}

// Ratio returns completed/total clamped to [0,1]. An empty catalog yields 0.
func Ratio(completed, totalLeaves int) float64 {
	if totalLeaves <= 0 || completed <= 0 {
		return 0
	}
	if completed >= totalLeaves {
		return 1
	}
	return float64(completed) / float64(totalLeaves)
}

// IsGateOpen reports whether every leaf is complete. It fails closed: an empty
// or unloaded catalog (totalLeaves == 0) never opens the gate.
func IsGateOpen(completed, totalLeaves int) bool {
	return totalLeaves > 0 && completed == totalLeaves
}

// CountKnown counts members of set that belong to the catalog's leaves.
// A nil known set counts every member.
func CountKnown(set models.CompletionSet, known map[string]struct{}) int {
	if known == nil {
		return len(set)
	}
	count := 0
	for id := range set {
		if _, ok := known[id]; ok {
			count++
		}
	}
	return count
}

// Status assembles the read model for a student's progress.
func Status(studentID string, set models.CompletionSet, known map[string]struct{}, totalLeaves int) models.CompletionStatus {
	if set == nil {
		set = models.CompletionSet{}
	}
	completed := CountKnown(set, known)
	return models.CompletionStatus{
		StudentID:      studentID,
		Completed:      set,
		CompletedCount: completed,
		TotalLeaves:    totalLeaves,
		Ratio:          Ratio(completed, totalLeaves),
		GateOpen:       IsGateOpen(completed, totalLeaves),
	}
}

// Package ranking turns raw exam attempts into a totally ordered leaderboard.
//
// Each student is represented by a single best attempt (highest score, then
// fastest, then earliest). The comparable metric combines that attempt's score
// with a speed factor normalized against a fixed ceiling and a 1/attempts penalty.
// All functions are pure; callers own any caching.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/noah-isme/classroom-api/internal/models"
)

// DefaultTimeCeiling is the normalization ceiling for attempt durations.
const DefaultTimeCeiling = 20 * time.Minute

// Engine computes leaderboards for a fixed time ceiling.
type Engine struct {
	ceiling float64
}

// NewEngine returns an Engine. A non-positive ceiling falls back to DefaultTimeCeiling.
func NewEngine(ceiling time.Duration) *Engine {
	if ceiling <= 0 {
		ceiling = DefaultTimeCeiling
	}
	return &Engine{ceiling: ceiling.Seconds()}
}

// Ceiling returns the normalization ceiling in seconds.
func (e *Engine) Ceiling() float64 {
	return e.ceiling
}

// Better reports whether a outranks b: higher score, then lower duration, then lower attempt.
func Better(a, b models.ExamResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Duration != b.Duration {
		return a.Duration < b.Duration
	}
	return a.Attempt < b.Attempt
}

// BestAttempt selects the representative attempt among results for one exam.
// ok is false when results is empty.
func BestAttempt(results []models.ExamResult) (best models.ExamResult, ok bool) {
	for i, result := range results {
		if i == 0 || Better(result, best) {
			best = result
		}
	}
	return best, len(results) > 0
}

// SpeedFactor maps a duration onto [0,1]; durations at or beyond the ceiling score 0.
func (e *Engine) SpeedFactor(duration float64) float64 {
	clamped := math.Min(math.Max(duration, 0), e.ceiling)
	return (e.ceiling - clamped) / e.ceiling
}

// WeightedScore combines the best attempt with the number of attempts taken.
func (e *Engine) WeightedScore(best models.ExamResult, attemptCount int) float64 {
	if attemptCount < 1 {
		attemptCount = 1
	}
	return best.Score * e.SpeedFactor(best.Duration) * (1 / float64(attemptCount))
}

// Entry builds the leaderboard row for one student, or ok=false when they have no attempts.
func (e *Engine) Entry(student models.Student, results []models.ExamResult) (models.RankingEntry, bool) {
	best, ok := BestAttempt(results)
	if !ok {
		return models.RankingEntry{}, false
	}
	return models.RankingEntry{
		StudentID:     student.ID,
		Name:          student.FullName(),
		Score:         best.Score,
		Duration:      best.Duration,
		Attempts:      len(results),
		WeightedScore: e.WeightedScore(best, len(results)),
	}, true
}

// Compute ranks every roster student with at least one attempt on examID.
//
// resultsByStudent may hold attempts for other exams; they are filtered out.
// Results keyed by ids absent from the roster are ignored. Ties on weighted
// score keep roster order.
func (e *Engine) Compute(examID string, roster []models.Student, resultsByStudent map[string][]models.ExamResult) []models.RankingEntry {
	entries := make([]models.RankingEntry, 0, len(roster))
	seen := make(map[string]struct{}, len(roster))
	for _, student := range roster {
		if _, dup := seen[student.ID]; dup {
			continue
		}
		seen[student.ID] = struct{}{}

		attempts := filterExam(resultsByStudent[student.ID], examID)
		entry, ok := e.Entry(student, attempts)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].WeightedScore > entries[j].WeightedScore
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Find returns the entry for studentID, if ranked.
func Find(entries []models.RankingEntry, studentID string) (*models.RankingEntry, bool) {
	for i := range entries {
		if entries[i].StudentID == studentID {
			entry := entries[i]
			return &entry, true
		}
	}
	return nil, false
}

func filterExam(results []models.ExamResult, examID string) []models.ExamResult {
	filtered := make([]models.ExamResult, 0, len(results))
	for _, result := range results {
		if result.ExamID == examID {
			filtered = append(filtered, result)
		}
	}
	return filtered
}

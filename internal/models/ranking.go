package models

// RankingEntry is one leaderboard row, derived per request and never persisted.
type RankingEntry struct {
	Rank          int     `json:"rank"`
	StudentID     string  `json:"student_id"`
	Name          string  `json:"name"`
	Score         float64 `json:"score"`
	Duration      float64 `json:"duration"`
	Attempts      int     `json:"attempts"`
	WeightedScore float64 `json:"weighted_score"`
}

// Leaderboard is the ranked output for one exam.
type Leaderboard struct {
	ExamID    string         `json:"exam_id"`
	ExamTitle string         `json:"exam_title,omitempty"`
	Entries   []RankingEntry `json:"entries"`
}

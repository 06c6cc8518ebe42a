package models

// StudentProfile joins a roster identity with its progress and, optionally, exam standing.
type StudentProfile struct {
	Student    Student          `json:"student"`
	Completion CompletionStatus `json:"completion"`
	ExamID     string           `json:"exam_id,omitempty"`
	Ranking    *RankingEntry    `json:"ranking"`
}

// GradeSheet lists a student's attempts most-recent-first.
type GradeSheet struct {
	StudentID string            `json:"student_id"`
	Results   []GradeSheetEntry `json:"results"`
}

// GradeSheetEntry decorates a result with its point ceiling.
type GradeSheetEntry struct {
	ExamResult
	PointsPossible float64 `json:"points_possible"`
}

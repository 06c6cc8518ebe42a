package models

import "time"

// Score bounds for a graded exam attempt.
const (
	MinExamScore = 0.0
	MaxExamScore = 20.0
)

// Exam is read-only catalog metadata; question content and grading live elsewhere.
type Exam struct {
	ID            string `json:"id" mapstructure:"id"`
	Title         string `json:"title" mapstructure:"title"`
	Description   string `json:"description,omitempty" mapstructure:"description"`
	QuestionCount int    `json:"question_count,omitempty" mapstructure:"question_count"`
}

// AnswerDetail records how a single question was graded.
type AnswerDetail struct {
	QuestionID     int         `json:"question_id"`
	QuestionText   string      `json:"question_text,omitempty"`
	UserAnswer     interface{} `json:"user_answer"`
	CorrectAnswer  interface{} `json:"correct_answer"`
	IsCorrect      bool        `json:"is_correct"`
	PointsEarned   float64     `json:"points_earned"`
	PointsPossible float64     `json:"points_possible"`
}

// ExamResult is one immutable submitted attempt.
type ExamResult struct {
	ID        string         `json:"id"`
	ExamID    string         `json:"exam_id"`
	ExamTitle string         `json:"exam_title"`
	Score     float64        `json:"score"`
	Timestamp time.Time      `json:"timestamp"`
	Attempt   int            `json:"attempt"`
	Duration  float64        `json:"duration"`
	Answers   []AnswerDetail `json:"answers"`
}

// PointsPossible sums the maximum points across all graded answers.
func (r ExamResult) PointsPossible() float64 {
	var total float64
	for _, answer := range r.Answers {
		total += answer.PointsPossible
	}
	return total
}

package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/repository"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

type resultRepository interface {
	Append(ctx context.Context, studentID string, result models.ExamResult) (*models.ExamResult, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.ExamResult, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type examObserver interface {
	ExamUpdated(ctx context.Context, examID string)
}

// AnswerDetailRequest is one graded answer inside a submission.
type AnswerDetailRequest struct {
	QuestionID     int         `json:"question_id" validate:"gte=0"`
	QuestionText   string      `json:"question_text"`
	UserAnswer     interface{} `json:"user_answer"`
	CorrectAnswer  interface{} `json:"correct_answer"`
	IsCorrect      bool        `json:"is_correct"`
	PointsEarned   float64     `json:"points_earned" validate:"gte=0"`
	PointsPossible float64     `json:"points_possible" validate:"gte=0"`
}

// SubmitResultRequest carries an already graded exam attempt.
type SubmitResultRequest struct {
	ExamID    string                `json:"exam_id" validate:"required"`
	ExamTitle string                `json:"exam_title"`
	Score     *float64              `json:"score" validate:"required,gte=0,lte=20"`
	Duration  *float64              `json:"duration" validate:"required,gte=0"`
	Timestamp time.Time             `json:"timestamp"`
	Answers   []AnswerDetailRequest `json:"answers" validate:"dive"`
}

// ResultService is the write boundary for exam attempts and the grade-sheet read model.
type ResultService struct {
	repo      resultRepository
	students  studentLookup
	exams     examCatalog
	observer  examObserver
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewResultService constructs a ResultService.
func NewResultService(repo resultRepository, students studentLookup, exams examCatalog, observer examObserver, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{
		repo:      repo,
		students:  students,
		exams:     exams,
		observer:  observer,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit validates an attempt and appends it with the next attempt number.
func (s *ResultService) Submit(ctx context.Context, studentID string, req SubmitResultRequest) (*models.ExamResult, error) {
	req.ExamID = strings.TrimSpace(req.ExamID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid exam result")
	}
	if !finite(*req.Score) || !finite(*req.Duration) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score and duration must be finite")
	}
	exam, known := s.exams.Exam(req.ExamID)
	if s.exams.HasExams() && !known {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown exam")
	}
	if _, err := findStudent(ctx, s.students, studentID); err != nil {
		return nil, err
	}

	result := models.ExamResult{
		ID:        uuid.NewString(),
		ExamID:    req.ExamID,
		ExamTitle: strings.TrimSpace(req.ExamTitle),
		Score:     *req.Score,
		Timestamp: req.Timestamp.UTC(),
		Duration:  *req.Duration,
		Answers:   make([]models.AnswerDetail, 0, len(req.Answers)),
	}
	if result.ExamTitle == "" {
		result.ExamTitle = exam.Title
	}
	if result.ExamTitle == "" {
		result.ExamTitle = req.ExamID
	}
	if req.Timestamp.IsZero() {
		result.Timestamp = s.now().UTC()
	}
	for _, answer := range req.Answers {
		result.Answers = append(result.Answers, models.AnswerDetail{
			QuestionID:     answer.QuestionID,
			QuestionText:   answer.QuestionText,
			UserAnswer:     answer.UserAnswer,
			CorrectAnswer:  answer.CorrectAnswer,
			IsCorrect:      answer.IsCorrect,
			PointsEarned:   answer.PointsEarned,
			PointsPossible: answer.PointsPossible,
		})
	}

	stored, err := s.repo.Append(ctx, studentID, result)
	if err != nil {
		s.metrics.IncStoreError("append_result")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store exam result")
	}
	s.metrics.IncResultsAppended(examMetricLabel(s.exams, stored.ExamID))
	if s.observer != nil {
		s.observer.ExamUpdated(ctx, stored.ExamID)
	}
	s.logger.Info("exam result recorded",
		zap.String("student_id", studentID),
		zap.String("exam_id", stored.ExamID),
		zap.Int("attempt", stored.Attempt),
		zap.Float64("score", stored.Score),
	)
	return stored, nil
}

// GradeSheet lists the student's attempts most-recent-first. An unreadable store yields an empty sheet.
func (s *ResultService) GradeSheet(ctx context.Context, studentID string) (*models.GradeSheet, error) {
	if _, err := findStudent(ctx, s.students, studentID); err != nil {
		return nil, err
	}
	sheet := &models.GradeSheet{StudentID: studentID, Results: []models.GradeSheetEntry{}}
	results, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		s.metrics.IncStoreError("list_results")
		s.logger.Warn("grade sheet unavailable", zap.String("student_id", studentID), zap.Error(err))
		return sheet, nil
	}
	for _, result := range results {
		sheet.Results = append(sheet.Results, models.GradeSheetEntry{ExamResult: result, PointsPossible: result.PointsPossible()})
	}
	return sheet, nil
}

func findStudent(ctx context.Context, students studentLookup, studentID string) (*models.Student, error) {
	student, err := students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

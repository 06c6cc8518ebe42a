package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/progress"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

type progressRepository interface {
	Get(ctx context.Context, studentID string) (models.CompletionSet, error)
	Update(ctx context.Context, studentID string, fn func(models.CompletionSet) models.CompletionSet) (models.CompletionSet, error)
}

type curriculumCatalog interface {
	TotalLeaves() int
	HasLeaf(id string) bool
	Leaves() map[string]struct{}
}

// ToggleCompletionRequest names the curriculum leaf to flip.
type ToggleCompletionRequest struct {
	LeafID string `json:"leaf_id"`
}

// CompletionService tracks completed curriculum leaves and evaluates the dashboard gate.
type CompletionService struct {
	repo       progressRepository
	students   studentLookup
	curriculum curriculumCatalog
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewCompletionService constructs a CompletionService.
func NewCompletionService(repo progressRepository, students studentLookup, curriculum curriculumCatalog, metrics *MetricsService, logger *zap.Logger) *CompletionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionService{repo: repo, students: students, curriculum: curriculum, metrics: metrics, logger: logger}
}

// Toggle flips leafID for the student and returns the updated status.
func (s *CompletionService) Toggle(ctx context.Context, studentID string, req ToggleCompletionRequest) (*models.CompletionStatus, error) {
	leafID := strings.TrimSpace(req.LeafID)
	if leafID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "leaf_id is required")
	}
	if s.curriculum.TotalLeaves() > 0 && !s.curriculum.HasLeaf(leafID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown curriculum leaf")
	}
	if _, err := findStudent(ctx, s.students, studentID); err != nil {
		return nil, err
	}

	set, err := s.repo.Update(ctx, studentID, func(current models.CompletionSet) models.CompletionSet {
		return progress.Toggle(current, leafID)
	})
	if err != nil {
		s.metrics.IncStoreError("toggle_progress")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update progress")
	}
	status := s.status(studentID, set)
	s.logger.Debug("completion toggled",
		zap.String("student_id", studentID),
		zap.String("leaf_id", leafID),
		zap.Bool("completed", set.Has(leafID)),
		zap.Bool("gate_open", status.GateOpen),
	)
	return &status, nil
}

// Status returns the student's progress. An unreadable store reads as no progress.
func (s *CompletionService) Status(ctx context.Context, studentID string) (*models.CompletionStatus, error) {
	if _, err := findStudent(ctx, s.students, studentID); err != nil {
		return nil, err
	}
	status := s.statusOrEmpty(ctx, studentID)
	return &status, nil
}

// GateOpen reports whether studentID has completed the whole curriculum. Any failure keeps it closed.
func (s *CompletionService) GateOpen(ctx context.Context, studentID string) bool {
	if s.curriculum.TotalLeaves() == 0 {
		return false
	}
	return s.statusOrEmpty(ctx, studentID).GateOpen
}

func (s *CompletionService) statusOrEmpty(ctx context.Context, studentID string) models.CompletionStatus {
	set, err := s.repo.Get(ctx, studentID)
	if err != nil {
		s.metrics.IncStoreError("get_progress")
		s.logger.Warn("progress unavailable", zap.String("student_id", studentID), zap.Error(err))
		set = models.NewCompletionSet()
	}
	return s.status(studentID, set)
}

func (s *CompletionService) status(studentID string, set models.CompletionSet) models.CompletionStatus {
	return progress.Status(studentID, set, s.curriculum.Leaves(), s.curriculum.TotalLeaves())
}

package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/models"
)

type completionReader interface {
	Status(ctx context.Context, studentID string) (*models.CompletionStatus, error)
}

type rankingReader interface {
	Entry(ctx context.Context, examID, studentID string) (*models.RankingEntry, error)
}

// ProfileService composes a student's identity, progress and optional exam standing.
type ProfileService struct {
	students   studentLookup
	completion completionReader
	rankings   rankingReader
	logger     *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(students studentLookup, completion completionReader, rankings rankingReader, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{students: students, completion: completion, rankings: rankings, logger: logger}
}

// Get returns the profile for studentID as seen by viewer. examID is optional; when set the
// profile carries the student's leaderboard entry, or nil if they have not attempted that exam.
// A student viewer sees the entry only once their curriculum gate is open.
func (s *ProfileService) Get(ctx context.Context, studentID, examID string, viewer models.UserRole) (*models.StudentProfile, error) {
	student, err := findStudent(ctx, s.students, studentID)
	if err != nil {
		return nil, err
	}
	completion, err := s.completion.Status(ctx, studentID)
	if err != nil {
		return nil, err
	}

	profile := &models.StudentProfile{Student: student.Public(), Completion: *completion}
	examID = strings.TrimSpace(examID)
	if examID == "" {
		return profile, nil
	}
	profile.ExamID = examID
	if viewer != models.RoleTeacher && !completion.GateOpen {
		return profile, nil
	}
	entry, err := s.rankings.Entry(ctx, examID, studentID)
	if err != nil {
		s.logger.Warn("profile ranking unavailable", zap.String("student_id", studentID), zap.String("exam_id", examID), zap.Error(err))
		return profile, nil
	}
	profile.Ranking = entry
	return profile, nil
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/models"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

type stubCompletion struct {
	status models.CompletionStatus
}

func (s *stubCompletion) Status(ctx context.Context, studentID string) (*models.CompletionStatus, error) {
	status := s.status
	status.StudentID = studentID
	return &status, nil
}

type stubRanking struct {
	entries map[string]*models.RankingEntry
	err     error
	calls   int
}

func (s *stubRanking) Entry(ctx context.Context, examID, studentID string) (*models.RankingEntry, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.entries[examID+"|"+studentID], nil
}

func newProfileService(rankings *stubRanking) *ProfileService {
	return newProfileServiceWithStatus(rankings, models.CompletionStatus{CompletedCount: 3, TotalLeaves: 4, Ratio: 0.75})
}

func newProfileServiceWithStatus(rankings *stubRanking, status models.CompletionStatus) *ProfileService {
	students := &mockStudentRepo{students: []models.Student{{ID: "s1", FirstName: "Amina", LastName: "Benali", PasswordHash: "hash"}}}
	return NewProfileService(students, &stubCompletion{status: status}, rankings, nil)
}

func TestProfileServiceWithoutExam(t *testing.T) {
	rankings := &stubRanking{}
	svc := newProfileService(rankings)

	profile, err := svc.Get(context.Background(), "s1", "", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, "Amina", profile.Student.FirstName)
	assert.Empty(t, profile.Student.PasswordHash)
	assert.Equal(t, 0.75, profile.Completion.Ratio)
	assert.Nil(t, profile.Ranking)
	assert.Zero(t, rankings.calls)
}

func TestProfileServiceWithExam(t *testing.T) {
	rankings := &stubRanking{entries: map[string]*models.RankingEntry{"exam-1|s1": {Rank: 2, StudentID: "s1", WeightedScore: 6.75}}}
	svc := newProfileService(rankings)

	profile, err := svc.Get(context.Background(), "s1", "exam-1", models.RoleTeacher)
	require.NoError(t, err)
	require.NotNil(t, profile.Ranking)
	assert.Equal(t, 2, profile.Ranking.Rank)
	assert.Equal(t, "exam-1", profile.ExamID)

	unranked, err := svc.Get(context.Background(), "s1", "exam-2", models.RoleTeacher)
	require.NoError(t, err)
	assert.Nil(t, unranked.Ranking)
}

func TestProfileServiceNotFound(t *testing.T) {
	svc := newProfileService(&stubRanking{})

	_, err := svc.Get(context.Background(), "ghost", "exam-1", models.RoleTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestProfileServiceRankingFailureKeepsProfile(t *testing.T) {
	svc := newProfileService(&stubRanking{err: errors.New("boom")})

	profile, err := svc.Get(context.Background(), "s1", "exam-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Nil(t, profile.Ranking)
}

func TestProfileServiceHidesRankingBehindGate(t *testing.T) {
	rankings := &stubRanking{entries: map[string]*models.RankingEntry{"exam-1|s1": {Rank: 1, StudentID: "s1"}}}
	svc := newProfileService(rankings)

	profile, err := svc.Get(context.Background(), "s1", "exam-1", models.RoleStudent)
	require.NoError(t, err)
	assert.False(t, profile.Completion.GateOpen)
	assert.Equal(t, "exam-1", profile.ExamID)
	assert.Nil(t, profile.Ranking)
	assert.Zero(t, rankings.calls)
}

func TestProfileServiceShowsRankingOnceGateOpens(t *testing.T) {
	rankings := &stubRanking{entries: map[string]*models.RankingEntry{"exam-1|s1": {Rank: 1, StudentID: "s1"}}}
	svc := newProfileServiceWithStatus(rankings, models.CompletionStatus{CompletedCount: 4, TotalLeaves: 4, Ratio: 1, GateOpen: true})

	profile, err := svc.Get(context.Background(), "s1", "exam-1", models.RoleStudent)
	require.NoError(t, err)
	require.NotNil(t, profile.Ranking)
	assert.Equal(t, 1, profile.Ranking.Rank)
}

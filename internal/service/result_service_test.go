package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/catalog"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/repository"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
	"github.com/noah-isme/classroom-api/pkg/kvstore"
)

type recordingExamObserver struct {
	exams []string
}

func (r *recordingExamObserver) ExamUpdated(ctx context.Context, examID string) {
	r.exams = append(r.exams, examID)
}

type failingResultRepo struct{ err error }

func (f *failingResultRepo) Append(context.Context, string, models.ExamResult) (*models.ExamResult, error) {
	return nil, f.err
}

func (f *failingResultRepo) ListByStudent(context.Context, string) ([]models.ExamResult, error) {
	return nil, f.err
}

func floatPtr(v float64) *float64 { return &v }

var resultExams = catalog.New(nil, []models.Exam{{ID: "exam-1", Title: "Examen 1"}, {ID: "exam-2", Title: "Examen 2"}})

func newResultService(t *testing.T) (*ResultService, *repository.ResultRepository, *recordingExamObserver) {
	t.Helper()
	store := kvstore.NewMemoryStore()
	students := &mockStudentRepo{students: []models.Student{{ID: "2APIC-1-1", FirstName: "Amina", LastName: "Benali"}}}
	results := repository.NewResultRepository(store, "")
	observer := &recordingExamObserver{}
	svc := NewResultService(results, students, resultExams, observer, NewMetricsService(), nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }
	return svc, results, observer
}

func TestResultServiceSubmit(t *testing.T) {
	svc, _, observer := newResultService(t)

	req := SubmitResultRequest{
		ExamID:   "exam-1",
		Score:    floatPtr(18),
		Duration: floatPtr(300),
		Answers: []AnswerDetailRequest{
			{QuestionID: 1, UserAnswer: "a", CorrectAnswer: "a", IsCorrect: true, PointsEarned: 10, PointsPossible: 10},
			{QuestionID: 2, UserAnswer: []interface{}{"x"}, CorrectAnswer: []interface{}{"x"}, IsCorrect: true, PointsEarned: 8, PointsPossible: 10},
		},
	}
	first, err := svc.Submit(context.Background(), "2APIC-1-1", req)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, 1, first.Attempt)
	assert.Equal(t, "Examen 1", first.ExamTitle)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), first.Timestamp)
	assert.Len(t, first.Answers, 2)

	second, err := svc.Submit(context.Background(), "2APIC-1-1", req)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Attempt)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, []string{"exam-1", "exam-1"}, observer.exams)
}

func TestResultServiceSubmitValidation(t *testing.T) {
	svc, results, _ := newResultService(t)

	cases := map[string]SubmitResultRequest{
		"missing exam":      {Score: floatPtr(10), Duration: floatPtr(10)},
		"unknown exam":      {ExamID: "exam-9", Score: floatPtr(10), Duration: floatPtr(10)},
		"missing score":     {ExamID: "exam-1", Duration: floatPtr(10)},
		"score above range": {ExamID: "exam-1", Score: floatPtr(20.5), Duration: floatPtr(10)},
		"negative score":    {ExamID: "exam-1", Score: floatPtr(-1), Duration: floatPtr(10)},
		"negative duration": {ExamID: "exam-1", Score: floatPtr(10), Duration: floatPtr(-3)},
		"nan duration":      {ExamID: "exam-1", Score: floatPtr(10), Duration: floatPtr(math.NaN())},
		"bad answer":        {ExamID: "exam-1", Score: floatPtr(10), Duration: floatPtr(10), Answers: []AnswerDetailRequest{{QuestionID: 1, PointsEarned: -2}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), "2APIC-1-1", req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}

	stored, err := results.ListByStudent(context.Background(), "2APIC-1-1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestResultServiceSubmitUnknownStudent(t *testing.T) {
	svc, _, _ := newResultService(t)

	_, err := svc.Submit(context.Background(), "ghost", SubmitResultRequest{ExamID: "exam-1", Score: floatPtr(10), Duration: floatPtr(10)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResultServiceSubmitWithoutExamCatalog(t *testing.T) {
	students := &mockStudentRepo{students: []models.Student{{ID: "s1"}}}
	results := repository.NewResultRepository(kvstore.NewMemoryStore(), "")
	svc := NewResultService(results, students, catalog.Empty(), nil, nil, nil, nil)

	stored, err := svc.Submit(context.Background(), "s1", SubmitResultRequest{ExamID: "free-exam", ExamTitle: " Quiz ", Score: floatPtr(0), Duration: floatPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, "Quiz", stored.ExamTitle)
	assert.Equal(t, 0.0, stored.Score)
}

func TestResultServiceSubmitStoreFailure(t *testing.T) {
	students := &mockStudentRepo{students: []models.Student{{ID: "s1"}}}
	svc := NewResultService(&failingResultRepo{err: errors.New("write failed")}, students, catalog.Empty(), nil, nil, nil, nil)

	_, err := svc.Submit(context.Background(), "s1", SubmitResultRequest{ExamID: "exam-1", Score: floatPtr(10), Duration: floatPtr(10)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestResultServiceGradeSheet(t *testing.T) {
	svc, _, _ := newResultService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, "2APIC-1-1", SubmitResultRequest{ExamID: "exam-1", Score: floatPtr(12), Duration: floatPtr(100), Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Answers: []AnswerDetailRequest{{QuestionID: 1, PointsEarned: 12, PointsPossible: 20}}})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "2APIC-1-1", SubmitResultRequest{ExamID: "exam-2", Score: floatPtr(15), Duration: floatPtr(100), Timestamp: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	sheet, err := svc.GradeSheet(ctx, "2APIC-1-1")
	require.NoError(t, err)
	require.Len(t, sheet.Results, 2)
	assert.Equal(t, "exam-2", sheet.Results[0].ExamID)
	assert.Equal(t, "exam-1", sheet.Results[1].ExamID)
	assert.Equal(t, 20.0, sheet.Results[1].PointsPossible)

	_, err = svc.GradeSheet(ctx, "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResultServiceGradeSheetDegrades(t *testing.T) {
	students := &mockStudentRepo{students: []models.Student{{ID: "s1"}}}
	svc := NewResultService(&failingResultRepo{err: errors.New("read failed")}, students, catalog.Empty(), nil, nil, nil, nil)

	sheet, err := svc.GradeSheet(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, sheet.Results)
}

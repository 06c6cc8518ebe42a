package service

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/models"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
	"github.com/noah-isme/classroom-api/pkg/storage"
)

type stubLeaderboards struct {
	board models.Leaderboard
}

func (s stubLeaderboards) Leaderboard(ctx context.Context, examID string) (*models.Leaderboard, bool, error) {
	board := s.board
	board.ExamID = examID
	return &board, false, nil
}

type stubGradeSheets struct{}

func (stubGradeSheets) GradeSheet(ctx context.Context, studentID string) (*models.GradeSheet, error) {
	if studentID == "ghost" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &models.GradeSheet{StudentID: studentID, Results: []models.GradeSheetEntry{
		{ExamResult: models.ExamResult{ExamTitle: "Examen 1", Attempt: 1, Score: 14, Duration: 320, Timestamp: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)}, PointsPossible: 20},
	}}, nil
}

func newExportServiceForTest(t *testing.T) *ExportService {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	rankings := stubLeaderboards{board: models.Leaderboard{ExamTitle: "Examen 1", Entries: []models.RankingEntry{
		{Rank: 1, StudentID: "2APIC-1-2", Name: "Bilal X", Score: 12, Duration: 0, Attempts: 1, WeightedScore: 12},
		{Rank: 2, StudentID: "2APIC-1-1", Name: "Amina X", Score: 18, Duration: 300, Attempts: 2, WeightedScore: 6.75},
	}}}
	return NewExportService(rankings, stubGradeSheets{}, files, signer, ExportConfig{APIPrefix: "/api/v1/", ResultTTL: time.Hour}, zap.NewNop())
}

func readDownload(t *testing.T, svc *ExportService, token string) (*ExportDownload, []byte) {
	t.Helper()
	download, err := svc.Open(token)
	require.NoError(t, err)
	defer download.File.Close()
	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	return download, body
}

func TestExportServiceLeaderboardCSV(t *testing.T) {
	svc := newExportServiceForTest(t)

	ticket, err := svc.ExportLeaderboard(context.Background(), "exam-1", "csv")
	require.NoError(t, err)
	assert.Contains(t, ticket.URL, "/api/v1/exports/")
	assert.Contains(t, ticket.FileName, "rankings-exam-1-")

	download, body := readDownload(t, svc, ticket.Token)
	assert.Equal(t, "text/csv; charset=utf-8", download.ContentType)
	assert.Equal(t, ticket.FileName, download.FileName)
	assert.Contains(t, string(body), "1,2APIC-1-2,Bilal X,12.00,0.00,1,12.00")
	assert.Contains(t, string(body), "2,2APIC-1-1,Amina X,18.00,300.00,2,6.75")
}

func TestExportServiceGradeSheetPDF(t *testing.T) {
	svc := newExportServiceForTest(t)

	ticket, err := svc.ExportGradeSheet(context.Background(), "2APIC-1-1", "pdf")
	require.NoError(t, err)

	download, body := readDownload(t, svc, ticket.Token)
	assert.Equal(t, "application/pdf", download.ContentType)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestExportServiceErrors(t *testing.T) {
	svc := newExportServiceForTest(t)

	_, err := svc.ExportLeaderboard(context.Background(), "exam-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.ExportGradeSheet(context.Background(), "ghost", "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Open("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestDatasetsCarryTitles(t *testing.T) {
	board := LeaderboardDataset(models.Leaderboard{ExamID: "exam-1"})
	assert.Equal(t, "Classement - exam-1", board.Title)
	assert.Empty(t, board.Rows)

	sheet := GradeSheetDataset(models.GradeSheet{StudentID: "s1"})
	assert.Equal(t, "Relevé de notes - s1", sheet.Title)
}

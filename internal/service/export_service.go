package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/models"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
	"github.com/noah-isme/classroom-api/pkg/export"
	"github.com/noah-isme/classroom-api/pkg/storage"
)

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type leaderboardSource interface {
	Leaderboard(ctx context.Context, examID string) (*models.Leaderboard, bool, error)
}

type gradeSheetSource interface {
	GradeSheet(ctx context.Context, studentID string) (*models.GradeSheet, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportTicket describes a rendered file and how to download it.
type ExportTicket struct {
	ID        string        `json:"id"`
	Format    export.Format `json:"format"`
	FileName  string        `json:"file_name"`
	Token     string        `json:"token"`
	URL       string        `json:"url"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// ExportDownload is an opened export ready to stream.
type ExportDownload struct {
	File        *os.File
	FileName    string
	ContentType string
}

// ExportService renders leaderboards and grade sheets and hands out signed download links.
type ExportService struct {
	rankings leaderboardSource
	results  gradeSheetSource
	storage  fileStorage
	signer   *storage.SignedURLSigner
	cfg      ExportConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(rankings leaderboardSource, results gradeSheetSource, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	cfg.APIPrefix = strings.TrimRight(cfg.APIPrefix, "/")
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportService{rankings: rankings, results: results, storage: files, signer: signer, cfg: cfg, logger: logger, now: time.Now}
}

// ExportLeaderboard renders the current leaderboard for examID.
func (s *ExportService) ExportLeaderboard(ctx context.Context, examID, format string) (*ExportTicket, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Validation(err, "unsupported export format")
	}
	board, _, err := s.rankings.Leaderboard(ctx, examID)
	if err != nil {
		return nil, err
	}
	return s.store(f, "rankings", board.ExamID, LeaderboardDataset(*board))
}

// ExportGradeSheet renders studentID's attempts.
func (s *ExportService) ExportGradeSheet(ctx context.Context, studentID, format string) (*ExportTicket, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Validation(err, "unsupported export format")
	}
	sheet, err := s.results.GradeSheet(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return s.store(f, "grades", studentID, GradeSheetDataset(*sheet))
}

// Open validates token and opens the referenced file. Callers close the file.
func (s *ExportService) Open(token string) (*ExportDownload, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download link")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not found")
	}
	format := export.FormatCSV
	if strings.HasSuffix(relPath, "."+export.FormatPDF.Extension()) {
		format = export.FormatPDF
	}
	name := relPath
	if idx := strings.LastIndex(relPath, "/"); idx >= 0 {
		name = relPath[idx+1:]
	}
	return &ExportDownload{File: file, FileName: name, ContentType: format.ContentType()}, nil
}

// Cleanup removes exports older than the configured TTL.
func (s *ExportService) Cleanup() {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
}

func (s *ExportService) store(format export.Format, kind, subject string, data export.Dataset) (*ExportTicket, error) {
	payload, err := export.Render(format, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	id := uuid.NewString()
	fileName := fmt.Sprintf("%s-%s-%s.%s", kind, sanitizeFileComponent(subject), s.now().UTC().Format("20060102-150405"), format.Extension())
	relPath, err := s.storage.Save(id+"/"+fileName, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}
	s.logger.Info("export generated", zap.String("id", id), zap.String("file", relPath))
	return &ExportTicket{
		ID:        id,
		Format:    format,
		FileName:  fileName,
		Token:     token,
		URL:       fmt.Sprintf("%s/exports/%s", s.cfg.APIPrefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// LeaderboardDataset flattens a leaderboard for export.
func LeaderboardDataset(board models.Leaderboard) export.Dataset {
	title := "Classement - " + board.ExamID
	if board.ExamTitle != "" {
		title = "Classement - " + board.ExamTitle
	}
	data := export.Dataset{
		Title:   title,
		Headers: []string{"Rang", "Identifiant", "Nom", "Score", "Durée (s)", "Tentatives", "Score pondéré"},
		Rows:    make([]map[string]string, 0, len(board.Entries)),
	}
	for _, entry := range board.Entries {
		data.Rows = append(data.Rows, map[string]string{
			"Rang":          strconv.Itoa(entry.Rank),
			"Identifiant":   entry.StudentID,
			"Nom":           entry.Name,
			"Score":         formatFloat(entry.Score),
			"Durée (s)":     formatFloat(entry.Duration),
			"Tentatives":    strconv.Itoa(entry.Attempts),
			"Score pondéré": formatFloat(entry.WeightedScore),
		})
	}
	return data
}

// GradeSheetDataset flattens a grade sheet for export.
func GradeSheetDataset(sheet models.GradeSheet) export.Dataset {
	data := export.Dataset{
		Title:   "Relevé de notes - " + sheet.StudentID,
		Headers: []string{"Date", "Examen", "Tentative", "Score", "Points max", "Durée (s)"},
		Rows:    make([]map[string]string, 0, len(sheet.Results)),
	}
	for _, entry := range sheet.Results {
		data.Rows = append(data.Rows, map[string]string{
			"Date":       entry.Timestamp.UTC().Format("2006-01-02 15:04"),
			"Examen":     entry.ExamTitle,
			"Tentative":  strconv.Itoa(entry.Attempt),
			"Score":      formatFloat(entry.Score),
			"Points max": formatFloat(entry.PointsPossible),
			"Durée (s)":  formatFloat(entry.Duration),
		})
	}
	return data
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func sanitizeFileComponent(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "export"
	}
	return b.String()
}

package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/ranking"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
	"github.com/noah-isme/classroom-api/pkg/jobs"
)

const (
	rankingCachePrefix  = "ranking:"
	rankingCachePattern = rankingCachePrefix + "*"

	// JobTypeRankingWarmup recomputes and caches one exam's leaderboard.
	JobTypeRankingWarmup = "ranking_warmup"

	// unknownExamLabel groups exam ids missing from the catalog under one metric label.
	unknownExamLabel = "unknown"
)

func rankingCacheKey(examID string) string {
	return rankingCachePrefix + examID
}

type rosterLister interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
}

type examResultSource interface {
	ListByExam(ctx context.Context, examID string) (map[string][]models.ExamResult, error)
}

type examCatalog interface {
	Exam(id string) (models.Exam, bool)
	HasExams() bool
}

type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) error
}

// RankingService feeds the ranking engine from the repositories and caches its output.
type RankingService struct {
	engine   *ranking.Engine
	students rosterLister
	results  examResultSource
	exams    examCatalog
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	warmer   jobEnqueuer

	// generation counts cache invalidations. A computed board is cached only when no
	// invalidation ran while it was being built.
	cacheMu    sync.Mutex
	generation uint64
}

// NewRankingService constructs a RankingService. cache and metrics may be nil.
func NewRankingService(engine *ranking.Engine, students rosterLister, results examResultSource, exams examCatalog, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *RankingService {
	if engine == nil {
		engine = ranking.NewEngine(ranking.DefaultTimeCeiling)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankingService{
		engine:   engine,
		students: students,
		results:  results,
		exams:    exams,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// UseWarmer routes post-write cache refreshes through a background queue.
func (s *RankingService) UseWarmer(q jobEnqueuer) {
	s.warmer = q
}

// Leaderboard returns the ranked entries for examID and whether they came from cache.
// Store failures degrade to an empty leaderboard that is served but never cached.
func (s *RankingService) Leaderboard(ctx context.Context, examID string) (*models.Leaderboard, bool, error) {
	examID = strings.TrimSpace(examID)
	if examID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "exam id is required")
	}

	start := time.Now()
	var cached models.Leaderboard
	if hit, _ := s.cache.Get(ctx, rankingCacheKey(examID), &cached); hit {
		s.metrics.ObserveRanking(s.examLabel(examID), RankingSourceCache, len(cached.Entries), time.Since(start))
		return &cached, true, nil
	}

	generation := s.cacheGeneration()
	board, err := s.Compute(ctx, examID)
	if err != nil {
		return &board, false, nil
	}
	s.storeIfCurrent(ctx, board, generation)
	return &board, false, nil
}

// Compute always rebuilds the leaderboard from the store. When the roster or the results
// cannot be read it returns an empty leaderboard together with the store error.
func (s *RankingService) Compute(ctx context.Context, examID string) (models.Leaderboard, error) {
	start := time.Now()
	board := models.Leaderboard{ExamID: examID, Entries: []models.RankingEntry{}}
	if exam, ok := s.exams.Exam(examID); ok {
		board.ExamTitle = exam.Title
	}

	roster, err := s.students.List(ctx, models.StudentFilter{})
	if err != nil {
		s.metrics.IncStoreError("list_students")
		s.logger.Warn("ranking: roster unavailable, returning empty leaderboard", zap.String("exam_id", examID), zap.Error(err))
		return board, fmt.Errorf("ranking: list students: %w", err)
	}
	byStudent, err := s.results.ListByExam(ctx, examID)
	if err != nil {
		s.metrics.IncStoreError("list_results")
		s.logger.Warn("ranking: results unavailable, returning empty leaderboard", zap.String("exam_id", examID), zap.Error(err))
		return board, fmt.Errorf("ranking: list results: %w", err)
	}

	board.Entries = s.engine.Compute(examID, roster, byStudent)
	if board.ExamTitle == "" {
		board.ExamTitle = snapshotTitle(byStudent)
	}
	s.metrics.ObserveRanking(s.examLabel(examID), RankingSourceCompute, len(board.Entries), time.Since(start))
	return board, nil
}

// Entry returns studentID's standing on examID, or nil when the student has no attempt.
func (s *RankingService) Entry(ctx context.Context, examID, studentID string) (*models.RankingEntry, error) {
	board, _, err := s.Leaderboard(ctx, examID)
	if err != nil {
		return nil, err
	}
	entry, ok := ranking.Find(board.Entries, studentID)
	if !ok {
		return nil, nil
	}
	return entry, nil
}

// ExamUpdated drops the cached leaderboard for examID and schedules a rebuild.
func (s *RankingService) ExamUpdated(ctx context.Context, examID string) {
	if !s.cache.Enabled() {
		return
	}
	s.invalidate(ctx, rankingCacheKey(examID))
	if s.warmer == nil {
		return
	}
	job := jobs.Job{ID: JobTypeRankingWarmup + ":" + examID, Type: JobTypeRankingWarmup, Payload: examID}
	if err := s.warmer.TryEnqueue(job); err != nil {
		s.logger.Debug("ranking warm-up skipped", zap.String("exam_id", examID), zap.Error(err))
	}
}

// RosterChanged drops every cached leaderboard.
func (s *RankingService) RosterChanged(ctx context.Context) {
	s.invalidate(ctx, rankingCachePattern)
}

// HandleWarmup is the jobs.Handler for JobTypeRankingWarmup. A degraded compute is
// returned as an error so the queue retries it.
func (s *RankingService) HandleWarmup(ctx context.Context, job jobs.Job) error {
	examID, ok := job.Payload.(string)
	if !ok || examID == "" {
		return fmt.Errorf("ranking warm-up: unexpected payload %T", job.Payload)
	}
	generation := s.cacheGeneration()
	board, err := s.Compute(ctx, examID)
	if err != nil {
		return err
	}
	s.storeIfCurrent(ctx, board, generation)
	return nil
}

func (s *RankingService) invalidate(ctx context.Context, pattern string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	_ = s.cache.Invalidate(ctx, pattern)
}

func (s *RankingService) cacheGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

// storeIfCurrent caches board unless an invalidation ran after generation was read.
func (s *RankingService) storeIfCurrent(ctx context.Context, board models.Leaderboard, generation uint64) bool {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generation != generation {
		s.logger.Debug("ranking: leaderboard changed while computing, not caching", zap.String("exam_id", board.ExamID))
		return false
	}
	_ = s.cache.Set(ctx, rankingCacheKey(board.ExamID), board, 0)
	return true
}

// examLabel keeps metric cardinality bounded by the catalog.
func (s *RankingService) examLabel(examID string) string {
	return examMetricLabel(s.exams, examID)
}

func examMetricLabel(exams examCatalog, examID string) string {
	if exams == nil {
		return unknownExamLabel
	}
	if _, ok := exams.Exam(examID); ok {
		return examID
	}
	return unknownExamLabel
}

func snapshotTitle(byStudent map[string][]models.ExamResult) string {
	for _, results := range byStudent {
		for _, result := range results {
			if result.ExamTitle != "" {
				return result.ExamTitle
			}
		}
	}
	return ""
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/kvstore"
)

// ResultRepository is the append-only per-student log of exam attempts.
type ResultRepository struct {
	store kvstore.Store
	key   string
	mu    sync.Mutex
}

// NewResultRepository constructs a ResultRepository.
func NewResultRepository(store kvstore.Store, prefix string) *ResultRepository {
	return &ResultRepository{store: store, key: Key(prefix, KeyExamResults)}
}

func (r *ResultRepository) load(ctx context.Context) (map[string][]models.ExamResult, error) {
	raw, err := readBlob(ctx, r.store, r.key)
	if err != nil {
		return nil, err
	}
	return decodeResults(raw), nil
}

func (r *ResultRepository) save(ctx context.Context, results map[string][]models.ExamResult) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal exam results: %w", err)
	}
	return writeBlob(ctx, r.store, r.key, payload)
}

// Append assigns the next attempt number for (studentID, result.ExamID) and stores the record.
func (r *ResultRepository) Append(ctx context.Context, studentID string, result models.ExamResult) (*models.ExamResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	history := all[studentID]
	// max+1 equals count+1 for a well-formed log and stays unique if entries were dropped on decode
	next := 1
	for _, existing := range history {
		if existing.ExamID == result.ExamID && existing.Attempt >= next {
			next = existing.Attempt + 1
		}
	}
	result.Attempt = next
	all[studentID] = append(history, result)
	if err := r.save(ctx, all); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListByStudent returns attempts most-recent-first, stable for equal timestamps.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ExamResult, error) {
	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	history := all[studentID]
	out := make([]models.ExamResult, len(history))
	copy(out, history)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// ListByExam groups one exam's attempts by student in insertion order.
func (r *ResultRepository) ListByExam(ctx context.Context, examID string) (map[string][]models.ExamResult, error) {
	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]models.ExamResult)
	for studentID, history := range all {
		for _, result := range history {
			if result.ExamID == examID {
				out[studentID] = append(out[studentID], result)
			}
		}
	}
	return out, nil
}

// RemoveAllForStudent drops the student's whole history. Missing students are a no-op.
func (r *ResultRepository) RemoveAllForStudent(ctx context.Context, studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := all[studentID]; !ok {
		return nil
	}
	delete(all, studentID)
	return r.save(ctx, all)
}

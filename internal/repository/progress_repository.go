package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/kvstore"
)

// ProgressRepository stores completion sets keyed by student id.
type ProgressRepository struct {
	store kvstore.Store
	key   string
	mu    sync.Mutex
}

// NewProgressRepository constructs a ProgressRepository.
func NewProgressRepository(store kvstore.Store, prefix string) *ProgressRepository {
	return &ProgressRepository{store: store, key: Key(prefix, KeyStudentProgress)}
}

func (r *ProgressRepository) load(ctx context.Context) (map[string]models.CompletionSet, error) {
	raw, err := readBlob(ctx, r.store, r.key)
	if err != nil {
		return nil, err
	}
	return decodeProgress(raw), nil
}

func (r *ProgressRepository) save(ctx context.Context, progress map[string]models.CompletionSet) error {
	payload, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("marshal student progress: %w", err)
	}
	return writeBlob(ctx, r.store, r.key, payload)
}

// Get returns the student's set, empty when nothing was recorded.
func (r *ProgressRepository) Get(ctx context.Context, studentID string) (models.CompletionSet, error) {
	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if set, ok := all[studentID]; ok {
		return set, nil
	}
	return models.NewCompletionSet(), nil
}

// Update applies fn to the stored set under the repository lock and persists the result.
func (r *ProgressRepository) Update(ctx context.Context, studentID string, fn func(models.CompletionSet) models.CompletionSet) (models.CompletionSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	current, ok := all[studentID]
	if !ok {
		current = models.NewCompletionSet()
	}
	next := fn(current)
	all[studentID] = next
	if err := r.save(ctx, all); err != nil {
		return nil, err
	}
	return next.Clone(), nil
}

// RemoveAllForStudent drops the student's set. Missing students are a no-op.
func (r *ProgressRepository) RemoveAllForStudent(ctx context.Context, studentID string) error {
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

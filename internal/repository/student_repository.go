package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/kvstore"
)

// StudentRepository persists the roster as a single ordered collection.
type StudentRepository struct {
	store kvstore.Store
	key   string
	mu    sync.Mutex
	now   func() time.Time
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(store kvstore.Store, prefix string) *StudentRepository {
	return &StudentRepository{store: store, key: Key(prefix, KeyStudents), now: time.Now}
}

func (r *StudentRepository) load(ctx context.Context) ([]models.Student, error) {
	raw, err := readBlob(ctx, r.store, r.key)
	if err != nil {
		return nil, err
	}
	return decodeStudents(raw), nil
}

func (r *StudentRepository) save(ctx context.Context, students []models.Student) error {
	payload, err := json.Marshal(students)
	if err != nil {
		return fmt.Errorf("marshal students: %w", err)
	}
	return writeBlob(ctx, r.store, r.key, payload)
}

// List returns students matching the filter in registration order.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	students, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	result := make([]models.Student, 0, len(students))
	for _, student := range students {
		if filter.Class != "" && student.Class != filter.Class {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(student.FullName()), search) {
			continue
		}
		result = append(result, student)
	}
	return result, nil
}

// FindByID returns ErrNotFound when id is not on the roster.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	students, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range students {
		if students[i].ID == id {
			student := students[i]
			return &student, nil
		}
	}
	return nil, ErrNotFound
}

// Create appends a student, stamping timestamps. Returns ErrDuplicate if the id exists.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	students, err := r.load(ctx)
	if err != nil {
		return err
	}
	for _, existing := range students {
		if existing.ID == student.ID {
			return ErrDuplicate
		}
	}
	now := r.now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	students = append(students, *student)
	return r.save(ctx, students)
}

// Update replaces the record with the same id in place.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	students, err := r.load(ctx)
	if err != nil {
		return err
	}
	for i := range students {
		if students[i].ID != student.ID {
			continue
		}
		student.CreatedAt = students[i].CreatedAt
		student.UpdatedAt = r.now().UTC()
		students[i] = *student
		return r.save(ctx, students)
	}
	return ErrNotFound
}

// Delete removes the identity record only; callers cascade dependent data.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	students, err := r.load(ctx)
	if err != nil {
		return err
	}
	kept := students[:0]
	found := false
	for _, student := range students {
		if student.ID == id {
			found = true
			continue
		}
		kept = append(kept, student)
	}
	if !found {
		return ErrNotFound
	}
	return r.save(ctx, kept)
}

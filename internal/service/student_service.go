package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/repository"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// StudentDataRemover is implemented by every collection keyed by student id.
type StudentDataRemover interface {
	RemoveAllForStudent(ctx context.Context, studentID string) error
}

type rosterObserver interface {
	RosterChanged(ctx context.Context)
}

// RegisterStudentRequest holds the payload for self-registration.
type RegisterStudentRequest struct {
	FirstName string `json:"first_name" validate:"required,max=80"`
	LastName  string `json:"last_name" validate:"required,max=80"`
	Class     string `json:"class" validate:"required"`
	Number    int    `json:"number" validate:"required,min=1,max=40"`
	Password  string `json:"password" validate:"required,len=8,numeric"`
	Premium   bool   `json:"premium"`
}

// UpdateStudentRequest holds the editable profile fields. Class and number form the id and stay fixed.
type UpdateStudentRequest struct {
	FirstName string `json:"first_name" validate:"required,max=80"`
	LastName  string `json:"last_name" validate:"required,max=80"`
	Premium   *bool  `json:"premium"`
}

// StudentService manages the roster and the cascade that keeps dependent data consistent.
type StudentService struct {
	repo      studentRepository
	dependent []StudentDataRemover
	observer  rosterObserver
	classes   map[string]struct{}
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service. An empty classes list accepts any class.
func NewStudentService(repo studentRepository, dependent []StudentDataRemover, observer rosterObserver, classes []string, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]struct{}, len(classes))
	for _, class := range classes {
		allowed[class] = struct{}{}
	}
	return &StudentService{repo: repo, dependent: dependent, observer: observer, classes: allowed, validator: validate, logger: logger}
}

// List returns public student records and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	public := make([]models.Student, len(students))
	for i, student := range students {
		public[i] = student.Public()
	}
	pagination := &models.Pagination{Page: 1, PageSize: len(public), TotalCount: len(public)}
	return public, pagination, nil
}

// Get returns one student without credential material.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	public := student.Public()
	return &public, nil
}

// Register validates and adds a student to the roster.
func (s *StudentService) Register(ctx context.Context, req RegisterStudentRequest) (*models.Student, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Class = strings.TrimSpace(req.Class)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid student payload")
	}
	if !s.knownClass(req.Class) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown class")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	student := &models.Student{
		ID:           models.StudentID(req.Class, req.Number),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Class:        req.Class,
		Number:       req.Number,
		PasswordHash: string(hash),
		Premium:      req.Premium,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.invalidateLeaderboards(ctx)
	s.logger.Info("student registered", zap.String("student_id", student.ID))

	public := student.Public()
	return &public, nil
}

// Update edits names and the premium flag.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	student.FirstName = req.FirstName
	student.LastName = req.LastName
	if req.Premium != nil {
		student.Premium = *req.Premium
	}
	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.invalidateLeaderboards(ctx)

	public := student.Public()
	return &public, nil
}

// Delete removes the student's results and progress, then the identity record.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	for _, dep := range s.dependent {
		if err := dep.RemoveAllForStudent(ctx, id); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove student data")
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.invalidateLeaderboards(ctx)
	s.logger.Info("student removed", zap.String("student_id", id))
	return nil
}

func (s *StudentService) knownClass(class string) bool {
	if len(s.classes) == 0 {
		return true
	}
	_, ok := s.classes[class]
	return ok
}

func (s *StudentService) invalidateLeaderboards(ctx context.Context) {
	if s.observer != nil {
		s.observer.RosterChanged(ctx)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/repository"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

const teacherDisplayName = "Professeur"

type authStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	TeacherPassword   string
}

// AuthService authenticates students against the roster and the teacher against a shared secret.
type AuthService struct {
	repo        authStudentRepository
	validator   *validator.Validate
	logger      *zap.Logger
	config      AuthConfig
	teacherHash []byte
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authStudentRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) (*AuthService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 12 * time.Hour
	}
	svc := &AuthService{repo: repo, validator: validate, logger: logger, config: config}
	if config.TeacherPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(config.TeacherPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash teacher password: %w", err)
		}
		svc.teacherHash = hash
	}
	return svc, nil
}

// Login authenticates a caller and returns an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.StudentID = strings.TrimSpace(req.StudentID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid login payload")
	}

	var user models.UserInfo
	if req.Role == models.RoleTeacher {
		if len(s.teacherHash) == 0 || bcrypt.CompareHashAndPassword(s.teacherHash, []byte(req.Password)) != nil {
			s.logger.Info("teacher login rejected")
			return nil, appErrors.ErrInvalidCredentials
		}
		user = models.UserInfo{ID: models.TeacherUserID, FullName: teacherDisplayName, Role: models.RoleTeacher}
	} else {
		student, err := s.repo.FindByID(ctx, req.StudentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, appErrors.ErrInvalidCredentials
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		if student.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte(req.Password)) != nil {
			return nil, appErrors.ErrInvalidCredentials
		}
		user = models.UserInfo{ID: student.ID, FullName: student.FullName(), Class: student.Class, Role: models.RoleStudent}
	}

	token, issuedAt, err := s.generateAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	s.logger.Debug("login succeeded", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		User:        user,
		IssuedAt:    issuedAt,
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) generateAccessToken(user models.UserInfo) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}

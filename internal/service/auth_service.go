package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sf10-api/internal/models"
	appErrors "github.com/noah-isme/sf10-api/pkg/errors"
)

type authTeacherRepository interface {
	FindByEmployeeNumber(ctx context.Context, employeeNumber int) (*models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret     string
	Expiration time.Duration
}

// AuthService authenticates teachers and issues role-bearing tokens.
type AuthService struct {
	repo      authTeacherRepository
	audits    auditSink
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authTeacherRepository, audits auditSink, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{repo: repo, audits: audits, validator: validate, logger: logger, config: config}
}

// Login verifies employee number and password and returns a signed token
// carrying the teacher's role levels.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	teacher, err := s.repo.FindByEmployeeNumber(ctx, req.EmployeeNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "unregistered employee number")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(teacher.PasswordHash), []byte(req.Password)); err != nil {
		s.audit(ctx, teacher.ID, fmt.Sprintf("%s is trying to login with an invalid password", teacher.FullName()))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid employee number or password")
	}

	token, err := s.generateToken(teacher)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	s.audit(ctx, teacher.ID, fmt.Sprintf("%s logged in", teacher.FullName()))

	return &models.LoginResponse{
		Token:          token,
		Name:           teacher.FullName(),
		EmployeeNumber: teacher.FormattedEmployeeNumber(),
		Roles:          teacher.RoleLevels(),
	}, nil
}

// Logout records the logout event; tokens are stateless so there is nothing
// to revoke.
func (s *AuthService) Logout(ctx context.Context, claims *models.JWTClaims) {
	if claims == nil {
		return
	}
	s.audit(ctx, claims.TeacherID, fmt.Sprintf("%s logged out", claims.Name))
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) generateToken(teacher *models.Teacher) (string, error) {
	issuedAt := time.Now().UTC()
	claims := &models.JWTClaims{
		TeacherID: teacher.ID,
		Name:      teacher.FullName(),
		Roles:     teacher.RoleLevels(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   teacher.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.Expiration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *AuthService) audit(ctx context.Context, accountID, message string) {
	if s.audits == nil {
		return
	}
	if err := s.audits.Append(ctx, accountID, message); err != nil {
		s.logger.Warn("failed to append audit entry", zap.Error(err))
	}
}

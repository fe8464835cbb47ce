package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sf10-api/internal/models"
	appErrors "github.com/noah-isme/sf10-api/pkg/errors"
)

type teacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	FindByEmployeeNumber(ctx context.Context, employeeNumber int) (*models.Teacher, error)
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// AssignmentInput is one (category, grade levels) grant in a teacher payload.
type AssignmentInput struct {
	Category    string  `json:"category" validate:"required"`
	GradeLevels []int64 `json:"grade_levels" validate:"omitempty,dive,min=7,max=10"`
}

// SaveTeacherRequest carries the teacher master data for create and update.
type SaveTeacherRequest struct {
	LastName       string            `json:"last_name" validate:"required,min=2,max=20"`
	FirstName      string            `json:"first_name" validate:"required,min=2,max=50"`
	MiddleName     string            `json:"middle_name" validate:"required,min=2,max=20"`
	Birthdate      time.Time         `json:"birthdate" validate:"required"`
	Gender         string            `json:"gender" validate:"required,oneof=Male Female"`
	EmployeeNumber int               `json:"employee_number" validate:"required,min=1,max=9999999"`
	Password       string            `json:"password" validate:"omitempty,min=8"`
	Active         *bool             `json:"active"`
	Assignments    []AssignmentInput `json:"assignments" validate:"omitempty,dive"`
}

// ResetPasswordRequest carries the replacement password.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

// TeacherService manages faculty accounts and their role assignments.
type TeacherService struct {
	repo      teacherRepository
	cache     cacheInvalidator
	audits    auditSink
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs TeacherService.
func NewTeacherService(repo teacherRepository, cache cacheInvalidator, audits auditSink, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, cache: cache, audits: audits, validator: validate, logger: logger}
}

// Get returns one teacher with assignments.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher with the given id cannot be found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// List pages through teachers matching the filter.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Create registers a teacher account. The employee number must be unused and
// the initial password is bcrypt-hashed.
func (s *TeacherService) Create(ctx context.Context, claims *models.JWTClaims, req SaveTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	if req.Password == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "password is required")
	}
	assignments, err := buildAssignments(req.Assignments)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmployeeNumber(ctx, req.EmployeeNumber); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "employee number is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher uniqueness")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	teacher := &models.Teacher{
		Active:         active,
		LastName:       normalizeName(req.LastName),
		FirstName:      normalizeName(req.FirstName),
		MiddleName:     normalizeName(req.MiddleName),
		Birthdate:      req.Birthdate,
		Gender:         req.Gender,
		EmployeeNumber: req.EmployeeNumber,
		PasswordHash:   string(hash),
		Assignments:    assignments,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}

	s.invalidate(ctx)
	s.audit(ctx, claims, fmt.Sprintf("%s registers teacher %s", actorName(claims), teacher.FullName()))
	return teacher, nil
}

// Update overwrites a teacher's master data and replaces the assignment set.
// The password is untouched; use ResetPassword for that.
func (s *TeacherService) Update(ctx context.Context, claims *models.JWTClaims, id string, req SaveTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	assignments, err := buildAssignments(req.Assignments)
	if err != nil {
		return nil, err
	}
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing, err := s.repo.FindByEmployeeNumber(ctx, req.EmployeeNumber); err == nil {
		if existing.ID != id {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "employee number is already registered")
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher uniqueness")
	}

	teacher.LastName = normalizeName(req.LastName)
	teacher.FirstName = normalizeName(req.FirstName)
	teacher.MiddleName = normalizeName(req.MiddleName)
	teacher.Birthdate = req.Birthdate
	teacher.Gender = req.Gender
	teacher.EmployeeNumber = req.EmployeeNumber
	teacher.Assignments = assignments
	if req.Active != nil {
		teacher.Active = *req.Active
	}
	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}

	s.invalidate(ctx)
	s.audit(ctx, claims, fmt.Sprintf("%s updates teacher %s", actorName(claims), teacher.FullName()))
	return teacher, nil
}

// ResetPassword re-hashes and stores a replacement password.
func (s *TeacherService) ResetPassword(ctx context.Context, claims *models.JWTClaims, id string, req ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid password payload")
	}
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, teacher.ID, string(hash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset password")
	}

	s.audit(ctx, claims, fmt.Sprintf("%s resets the password of %s", actorName(claims), teacher.FullName()))
	return nil
}

func buildAssignments(inputs []AssignmentInput) ([]models.TeacherAssignment, error) {
	assignments := make([]models.TeacherAssignment, 0, len(inputs))
	for _, input := range inputs {
		category := models.AssignmentCategory(input.Category)
		if !category.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown assignment category %q", input.Category))
		}
		assignments = append(assignments, models.TeacherAssignment{
			Category:    category,
			GradeLevels: pq.Int64Array(input.GradeLevels),
		})
	}
	return assignments, nil
}

func normalizeName(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func (s *TeacherService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, "students:handled:*")
}

func (s *TeacherService) audit(ctx context.Context, claims *models.JWTClaims, message string) {
	if s.audits == nil {
		return
	}
	accountID := ""
	if claims != nil {
		accountID = claims.TeacherID
	}
	if err := s.audits.Append(ctx, accountID, message); err != nil {
		s.logger.Warn("failed to append audit entry", zap.Error(err))
	}
}

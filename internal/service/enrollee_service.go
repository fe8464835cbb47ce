package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sf10-api/internal/models"
	appErrors "github.com/noah-isme/sf10-api/pkg/errors"
)

type enrolleeRepository interface {
	FindByLRN(ctx context.Context, lrn int64) (*models.Enrollee, error)
	FindByID(ctx context.Context, id string) (*models.Enrollee, error)
	Create(ctx context.Context, enrollee *models.Enrollee) error
	Delete(ctx context.Context, id string) error
}

// EnrollRequest registers a learner ahead of full student processing.
type EnrollRequest struct {
	LRN            int64                 `json:"lrn" validate:"required,min=1,max=999999999999"`
	Name           models.PersonName     `json:"name" validate:"required"`
	Classification models.Classification `json:"classification"`
}

// EnrolleeService covers the pre-classification learner lifecycle. Enrollees
// are the only learner rows that may be hard-deleted.
type EnrolleeService struct {
	repo      enrolleeRepository
	audits    auditSink
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrolleeService constructs EnrolleeService.
func NewEnrolleeService(repo enrolleeRepository, audits auditSink, validate *validator.Validate, logger *zap.Logger) *EnrolleeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrolleeService{repo: repo, audits: audits, validator: validate, logger: logger}
}

// Enroll creates an enrollee. The learner reference number must be unused.
func (s *EnrolleeService) Enroll(ctx context.Context, claims *models.JWTClaims, req EnrollRequest) (*models.Enrollee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollee payload")
	}
	if err := s.validator.Struct(req.Name); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollee name")
	}

	if _, err := s.repo.FindByLRN(ctx, req.LRN); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "learner reference number is already enrolled")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollee uniqueness")
	}

	enrollee := &models.Enrollee{
		LRN:            req.LRN,
		Name:           req.Name,
		Classification: req.Classification,
	}
	enrollee.Name.Normalize()
	if err := s.repo.Create(ctx, enrollee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollee")
	}

	s.audit(ctx, claims, fmt.Sprintf("%s enrolls %s", actorName(claims), enrollee.Name.Full()))
	return enrollee, nil
}

// Unenroll removes an enrollee by learner reference number.
func (s *EnrolleeService) Unenroll(ctx context.Context, claims *models.JWTClaims, lrn int64) (*models.Enrollee, error) {
	enrollee, err := s.repo.FindByLRN(ctx, lrn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollee with the given learner reference number cannot be found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollee")
	}
	if err := s.repo.Delete(ctx, enrollee.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollee")
	}

	s.audit(ctx, claims, fmt.Sprintf("%s unenrolls %s", actorName(claims), enrollee.Name.Full()))
	return enrollee, nil
}

func (s *EnrolleeService) audit(ctx context.Context, claims *models.JWTClaims, message string) {
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

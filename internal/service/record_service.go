package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/sf10-api/internal/models"
	"github.com/noah-isme/sf10-api/pkg/config"
	appErrors "github.com/noah-isme/sf10-api/pkg/errors"
)

type recordRepository interface {
	FindByID(ctx context.Context, id string) (*models.ScholasticRecord, error)
	FindDuplicate(ctx context.Context, ownerID string, schoolID, gradeLevel int, sectionLabel string, syStart int, excludeID string) (*models.ScholasticRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.ScholasticRecord, error)
	Create(ctx context.Context, record *models.ScholasticRecord) error
	Update(ctx context.Context, record *models.ScholasticRecord) error
}

type recordStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// SchoolInput overrides the institution block for records transferred from
// another school.
type SchoolInput struct {
	Name     string `json:"name" validate:"required,min=2"`
	ID       int    `json:"id" validate:"required"`
	District string `json:"district" validate:"required"`
	Division string `json:"division" validate:"required"`
	Region   string `json:"region" validate:"required"`
}

// SubjectInput is one learning area's historical ratings.
type SubjectInput struct {
	LearningArea   string    `json:"learning_area" validate:"required"`
	QuarterRatings []float64 `json:"quarter_rating" validate:"required,max=4,dive,min=0,max=100"`
	Remarks        string    `json:"remarks"`
}

// SaveRecordRequest carries a manually encoded scholastic record, typically a
// prior-school-year page transcribed from a paper form.
type SaveRecordRequest struct {
	School           *SchoolInput      `json:"school" validate:"omitempty"`
	GradeLevel       int               `json:"grade_level" validate:"required,min=1,max=12"`
	SectionLabel     string            `json:"section" validate:"required"`
	SchoolYear       models.SchoolYear `json:"school_year" validate:"required"`
	Adviser          string            `json:"adviser" validate:"required,min=2"`
	GenAverage       float64           `json:"gen_average" validate:"omitempty,min=0,max=100"`
	ScholasticStatus string            `json:"scholastic_status"`
	Completed        bool              `json:"completed"`
	Subjects         []SubjectInput    `json:"subjects" validate:"required,min=1,dive"`
}

// RecordService manages manually transcribed scholastic records. Grade-by-grade
// encoding goes through GradeService instead.
type RecordService struct {
	repo      recordRepository
	students  recordStudentRepository
	audits    auditSink
	school    config.SchoolConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRecordService constructs RecordService.
func NewRecordService(repo recordRepository, students recordStudentRepository, audits auditSink, school config.SchoolConfig, validate *validator.Validate, logger *zap.Logger) *RecordService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordService{repo: repo, students: students, audits: audits, school: school, validator: validate, logger: logger}
}

// ListByStudent returns every record owned by the student, oldest grade first.
func (s *RecordService) ListByStudent(ctx context.Context, studentID string) ([]models.ScholasticRecord, error) {
	if _, err := s.resolveStudent(ctx, studentID); err != nil {
		return nil, err
	}
	records, err := s.repo.ListByOwner(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scholastic records")
	}
	return records, nil
}

// Add persists a transcribed record after checking that no record for the same
// (school, grade level, section, school year) tuple already exists.
func (s *RecordService) Add(ctx context.Context, claims *models.JWTClaims, studentID string, req SaveRecordRequest) (*models.ScholasticRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid record payload")
	}
	student, err := s.resolveStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	record := s.buildRecord(studentID, req)
	if err := s.requireUnique(ctx, record, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create scholastic record")
	}

	s.audit(ctx, claims, fmt.Sprintf("%s adds a grade %d scholastic record for %s", actorName(claims), record.GradeLevel, student.Name.Full()))
	return record, nil
}

// Edit replaces the contents of an existing record, re-checking the tuple
// against every other record of the student.
func (s *RecordService) Edit(ctx context.Context, claims *models.JWTClaims, studentID, recordID string, req SaveRecordRequest) (*models.ScholasticRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid record payload")
	}
	student, err := s.resolveStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "scholastic record with the given id cannot be found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scholastic record")
	}
	if existing.OwnerID != studentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "scholastic record does not belong to the student")
	}

	record := s.buildRecord(studentID, req)
	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	if err := s.requireUnique(ctx, record, record.ID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update scholastic record")
	}

	s.audit(ctx, claims, fmt.Sprintf("%s edits a grade %d scholastic record of %s", actorName(claims), record.GradeLevel, student.Name.Full()))
	return record, nil
}

func (s *RecordService) buildRecord(studentID string, req SaveRecordRequest) *models.ScholasticRecord {
	school := models.School{
		Name:     s.school.Name,
		ID:       s.school.ID,
		District: s.school.District,
		Division: s.school.Division,
		Region:   s.school.Region,
	}
	if req.School != nil {
		school = models.School{
			Name:     req.School.Name,
			ID:       req.School.ID,
			District: req.School.District,
			Division: req.School.Division,
			Region:   req.School.Region,
		}
	}
	record := &models.ScholasticRecord{
		OwnerID:          studentID,
		School:           school,
		GradeLevel:       req.GradeLevel,
		SectionLabel:     req.SectionLabel,
		SchoolYear:       req.SchoolYear,
		Adviser:          req.Adviser,
		GenAverage:       req.GenAverage,
		ScholasticStatus: req.ScholasticStatus,
		Completed:        req.Completed,
	}
	for _, subject := range req.Subjects {
		entry := models.SubjectRecord{
			LearningArea:   subject.LearningArea,
			QuarterRatings: pq.Float64Array(subject.QuarterRatings),
			Remarks:        subject.Remarks,
		}
		entry.RecomputeAverage()
		record.Subjects = append(record.Subjects, entry)
	}
	return record
}

func (s *RecordService) requireUnique(ctx context.Context, record *models.ScholasticRecord, excludeID string) error {
	if _, err := s.repo.FindDuplicate(ctx, record.OwnerID, record.School.ID, record.GradeLevel, record.SectionLabel, record.SchoolYear.Start, excludeID); err == nil {
		return appErrors.Clone(appErrors.ErrDuplicate, "scholastic record for the school year already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check record uniqueness")
	}
	return nil
}

func (s *RecordService) resolveStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student with the given id cannot be found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *RecordService) audit(ctx context.Context, claims *models.JWTClaims, message string) {
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

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/sf10-api/internal/models"
	"github.com/noah-isme/sf10-api/pkg/config"
	appErrors "github.com/noah-isme/sf10-api/pkg/errors"
)

type gradeSectionRepository interface {
	FindForGradeEncoding(ctx context.Context, studentID, teacherID, learningArea string, yearNow int) (*models.Section, error)
}

type gradeRecordRepository interface {
	FindOpen(ctx context.Context, ownerID string, gradeLevel, syStart int) (*models.ScholasticRecord, error)
	FindWithQuarterCount(ctx context.Context, ownerID string, gradeLevel, syStart int, learningArea string, quarterCount int, completed bool) (*models.ScholasticRecord, error)
	HasCompletedSubject(ctx context.Context, ownerID string, gradeLevel int, learningArea string) (bool, error)
	Create(ctx context.Context, record *models.ScholasticRecord) error
	Update(ctx context.Context, record *models.ScholasticRecord) error
	UpdateSubjectRatings(ctx context.Context, recordID, learningArea string, ratings []float64, average float64) error
}

type gradeStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type gradeTeacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// EncodeGradeRequest is the grade entry payload.
type EncodeGradeRequest struct {
	LearningArea string  `json:"learning_area" validate:"required"`
	Quarter      int     `json:"quarter" validate:"required,min=1,max=4"`
	Grade        float64 `json:"grade" validate:"required,min=0,max=100"`
}

// UnencodeGradeRequest retracts the most recent quarter grade.
type UnencodeGradeRequest struct {
	LearningArea string `json:"learning_area" validate:"required"`
	Quarter      int    `json:"quarter" validate:"required,min=1,max=4"`
}

// GradeService drives the per-subject quarter state machine. Quarter ratings
// form an append-only sequence whose length is the frontier: quarter n can be
// written only when exactly n-1 ratings exist, and a grade level opens only
// after every lower level's record carries all four quarters for the subject.
type GradeService struct {
	sections gradeSectionRepository
	records  gradeRecordRepository
	students gradeStudentRepository
	teachers gradeTeacherRepository
	cache    cacheInvalidator
	audits   auditSink
	school   config.SchoolConfig

	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewGradeService constructs GradeService.
func NewGradeService(sections gradeSectionRepository, records gradeRecordRepository, students gradeStudentRepository, teachers gradeTeacherRepository, cache cacheInvalidator, audits auditSink, school config.SchoolConfig, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		sections:  sections,
		records:   records,
		students:  students,
		teachers:  teachers,
		cache:     cache,
		audits:    audits,
		school:    school,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Encode writes one quarter grade for a student's learning area.
func (s *GradeService) Encode(ctx context.Context, claims *models.JWTClaims, studentID string, req EncodeGradeRequest) (*models.ScholasticRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if !models.IsLearningArea(req.LearningArea) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown learning area")
	}

	section, err := s.resolveSection(ctx, claims, studentID, req.LearningArea)
	if err != nil {
		return nil, err
	}
	if err := s.requireCompletedPriorLevels(ctx, studentID, section.GradeLevel, req.LearningArea); err != nil {
		return nil, err
	}

	var record *models.ScholasticRecord
	if req.Quarter > 1 {
		record, err = s.resolveOpenRecordAtFrontier(ctx, studentID, section, req.LearningArea, req.Quarter)
	} else {
		record, err = s.resolveOrOpenFirstQuarterRecord(ctx, studentID, section)
	}
	if err != nil {
		return nil, err
	}

	subject := record.Subject(req.LearningArea)
	if subject == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "learning area is missing from the scholastic record")
	}
	if req.Quarter == 1 && subject.EncodedQuarters() > 0 {
		subject.QuarterRatings[0] = req.Grade
	} else {
		subject.QuarterRatings = append(subject.QuarterRatings, req.Grade)
	}
	subject.RecomputeAverage()
	if err := s.records.UpdateSubjectRatings(ctx, record.ID, req.LearningArea, subject.QuarterRatings, subject.QuarterAverage); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist grade")
	}

	s.invalidate(ctx)
	s.auditGrade(ctx, claims, studentID, fmt.Sprintf("encodes the quarter %d %s grade", req.Quarter, req.LearningArea))
	return record, nil
}

// Unencode removes the most recently encoded quarter grade. Only the frontier
// quarter may be retracted.
func (s *GradeService) Unencode(ctx context.Context, claims *models.JWTClaims, studentID string, req UnencodeGradeRequest) (*models.ScholasticRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if !models.IsLearningArea(req.LearningArea) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown learning area")
	}

	section, err := s.resolveSection(ctx, claims, studentID, req.LearningArea)
	if err != nil {
		return nil, err
	}
	record, err := s.records.FindOpen(ctx, studentID, section.GradeLevel, section.SchoolYear.Start)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no open scholastic record")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scholastic record")
	}

	subject := record.Subject(req.LearningArea)
	if subject == nil || subject.EncodedQuarters() != req.Quarter {
		return nil, appErrors.Clone(appErrors.ErrSequence, "only the most recently encoded quarter may be removed")
	}
	subject.QuarterRatings = subject.QuarterRatings[:len(subject.QuarterRatings)-1]
	subject.RecomputeAverage()
	if err := s.records.UpdateSubjectRatings(ctx, record.ID, req.LearningArea, subject.QuarterRatings, subject.QuarterAverage); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist grade removal")
	}

	s.invalidate(ctx)
	s.auditGrade(ctx, claims, studentID, fmt.Sprintf("removes the quarter %d %s grade", req.Quarter, req.LearningArea))
	return record, nil
}

// resolveSection finds the current-year section where the acting teacher is
// the registered subject teacher for the learning area.
func (s *GradeService) resolveSection(ctx context.Context, claims *models.JWTClaims, studentID, learningArea string) (*models.Section, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not handled by the teacher for the learning area")
	}
	section, err := s.sections.FindForGradeEncoding(ctx, studentID, claims.TeacherID, learningArea, s.now().Year())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not handled by the teacher for the learning area")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve section")
	}
	return section, nil
}

// requireCompletedPriorLevels walks every grade level below the section's,
// down to the program floor, and requires a four-quarter record for the
// subject at each.
func (s *GradeService) requireCompletedPriorLevels(ctx context.Context, studentID string, gradeLevel int, learningArea string) error {
	for level := gradeLevel - 1; level >= models.GradeLevelFloor; level-- {
		done, err := s.records.HasCompletedSubject(ctx, studentID, level, learningArea)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prior records")
		}
		if !done {
			return appErrors.Clone(appErrors.ErrSequence, fmt.Sprintf("grade %d scholastic record for %s is incomplete", level, learningArea))
		}
	}
	return nil
}

// resolveOpenRecordAtFrontier locates the open record whose subject sits at
// exactly quarter-1 encoded ratings. When the current grade level has no such
// record the previous level's completed record is promoted and becomes the
// open record.
func (s *GradeService) resolveOpenRecordAtFrontier(ctx context.Context, studentID string, section *models.Section, learningArea string, quarter int) (*models.ScholasticRecord, error) {
	record, err := s.records.FindWithQuarterCount(ctx, studentID, section.GradeLevel, section.SchoolYear.Start, learningArea, quarter-1, false)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scholastic record")
	}

	source, err := s.records.FindWithQuarterCount(ctx, studentID, section.GradeLevel-1, 0, learningArea, quarter-1, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrSequence, fmt.Sprintf("quarter %d for %s has not been encoded yet", quarter-1, learningArea))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scholastic record")
	}

	// Promotion: the completed lower-level record carries forward into the
	// new grade level and re-opens.
	source.Completed = false
	source.ScholasticStatus = ""
	source.GradeLevel = section.GradeLevel
	source.SectionLabel = section.Label()
	source.SchoolYear = section.SchoolYear
	source.School = s.schoolBlock()
	source.Adviser = s.adviserName(ctx, section)
	if err := s.records.Update(ctx, source); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote scholastic record")
	}
	return source, nil
}

// resolveOrOpenFirstQuarterRecord returns the open record for quarter one,
// creating and seeding one when the grade level has none yet. Every
// curriculum subject is seeded with the placeholder first-quarter value and
// the record is re-read before the submitted grade overwrites the target
// subject.
func (s *GradeService) resolveOrOpenFirstQuarterRecord(ctx context.Context, studentID string, section *models.Section) (*models.ScholasticRecord, error) {
	record, err := s.records.FindOpen(ctx, studentID, section.GradeLevel, section.SchoolYear.Start)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scholastic record")
	}

	fresh := &models.ScholasticRecord{
		OwnerID:      studentID,
		School:       s.schoolBlock(),
		GradeLevel:   section.GradeLevel,
		SectionLabel: section.Label(),
		SchoolYear:   section.SchoolYear,
		Adviser:      s.adviserName(ctx, section),
		Completed:    false,
	}
	for _, area := range models.LearningAreas {
		fresh.Subjects = append(fresh.Subjects, models.SubjectRecord{
			LearningArea:   area,
			QuarterRatings: pq.Float64Array{models.PlaceholderRating},
			QuarterAverage: models.PlaceholderRating,
		})
	}
	if err := s.records.Create(ctx, fresh); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create scholastic record")
	}

	record, err = s.records.FindOpen(ctx, studentID, section.GradeLevel, section.SchoolYear.Start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload scholastic record")
	}
	return record, nil
}

func (s *GradeService) schoolBlock() models.School {
	return models.School{
		Name:     s.school.Name,
		ID:       s.school.ID,
		District: s.school.District,
		Division: s.school.Division,
		Region:   s.school.Region,
	}
}

func (s *GradeService) adviserName(ctx context.Context, section *models.Section) string {
	if section.AdviserID == nil || s.teachers == nil {
		return ""
	}
	adviser, err := s.teachers.FindByID(ctx, *section.AdviserID)
	if err != nil {
		s.logger.Warn("failed to resolve section adviser", zap.Error(err))
		return ""
	}
	return adviser.FullName()
}

func (s *GradeService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, "students:handled:*")
}

func (s *GradeService) auditGrade(ctx context.Context, claims *models.JWTClaims, studentID, action string) {
	if s.audits == nil {
		return
	}
	subjectName := "a student"
	if student, err := s.students.FindByID(ctx, studentID); err == nil {
		subjectName = student.Name.Full()
	}
	accountID := ""
	if claims != nil {
		accountID = claims.TeacherID
	}
	message := fmt.Sprintf("%s %s of %s", actorName(claims), action, subjectName)
	if err := s.audits.Append(ctx, accountID, message); err != nil {
		s.logger.Warn("failed to append audit entry", zap.Error(err))
	}
}

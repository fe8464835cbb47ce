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

type sectionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	FindByTuple(ctx context.Context, gradeLevel, number, syStart, syEnd int) (*models.Section, error)
	List(ctx context.Context, filter models.SectionFilter) ([]models.Section, error)
	Create(ctx context.Context, section *models.Section) error
	Update(ctx context.Context, section *models.Section) error
	SetAdviser(ctx context.Context, sectionID string, teacherID *string) error
	AddSubjectTeacher(ctx context.Context, sectionID, learningArea, teacherID string) error
	RemoveSubjectTeacher(ctx context.Context, sectionID, learningArea string) error
	RemoveStudent(ctx context.Context, sectionID, studentID string) error
	FindByStudentAndYear(ctx context.Context, studentID string, syStart int) (*models.Section, error)
	DeleteWithCleanup(ctx context.Context, section *models.Section) error
}

type enrolleeReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollee, error)
}

type sectionTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type recordExistenceReader interface {
	ExistsForStudentsAndYear(ctx context.Context, studentIDs []string, syStart int) (bool, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// CreateSectionRequest describes the section creation payload.
type CreateSectionRequest struct {
	IsRegular  *bool             `json:"isRegular"`
	SchoolYear models.SchoolYear `json:"school_year" validate:"required"`
	GradeLevel int               `json:"grade_level" validate:"required,min=7,max=10"`
	Number     int               `json:"number" validate:"required,min=1,max=15"`
	Name       string            `json:"name" validate:"omitempty,min=2"`
	AdviserID  string            `json:"adviser_id"`
	ChairmanID string            `json:"chairman_id"`
	Students   []string          `json:"students" validate:"omitempty,dive,required"`
}

// UpdateSectionRequest describes the mutable section fields.
type UpdateSectionRequest struct {
	IsRegular  *bool             `json:"isRegular"`
	SchoolYear models.SchoolYear `json:"school_year" validate:"required"`
	GradeLevel int               `json:"grade_level" validate:"required,min=7,max=10"`
	Number     int               `json:"number" validate:"required,min=1,max=15"`
	Name       string            `json:"name" validate:"omitempty,min=2"`
}

// AssignTeacherRequest binds a teacher to a section role.
type AssignTeacherRequest struct {
	TeacherID    string `json:"teacher_id" validate:"required"`
	LearningArea string `json:"learning_area"`
}

// SectionService enforces the section membership rules: uniqueness of the
// (grade_level, number, school_year) tuple, single classification per student
// per school year, adviser and per-learning-area teacher uniqueness, and the
// guarded deletion cascade.
type SectionService struct {
	repo      sectionRepository
	enrollees enrolleeReader
	teachers  sectionTeacherReader
	records   recordExistenceReader
	cache     cacheInvalidator
	audits    auditSink
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSectionService constructs SectionService.
func NewSectionService(repo sectionRepository, enrollees enrolleeReader, teachers sectionTeacherReader, records recordExistenceReader, cache cacheInvalidator, audits auditSink, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, enrollees: enrollees, teachers: teachers, records: records, cache: cache, audits: audits, validator: validate, logger: logger}
}

// Get returns a section by ID.
func (s *SectionService) Get(ctx context.Context, id string) (*models.Section, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section with the given id cannot be found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// List returns sections matching the filter.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, error) {
	sections, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return sections, nil
}

// Create validates membership rules and persists a new section. Any conflict
// rejects the whole operation; nothing is written partially.
func (s *SectionService) Create(ctx context.Context, claims *models.JWTClaims, req CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	if _, err := s.repo.FindByTuple(ctx, req.GradeLevel, req.Number, req.SchoolYear.Start, req.SchoolYear.End); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "section already registered for the school year")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section uniqueness")
	}

	// Short-circuits on the first conflicting student; any conflict rejects
	// the whole operation.
	for _, studentID := range req.Students {
		if _, err := s.enrollees.FindByID(ctx, studentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s is not enrolled", studentID))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve enrollee")
		}
		if _, err := s.repo.FindByStudentAndYear(ctx, studentID, req.SchoolYear.Start); err == nil {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, fmt.Sprintf("student %s already belongs to a section for the school year", studentID))
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student classification")
		}
	}

	isRegular := true
	if req.IsRegular != nil {
		isRegular = *req.IsRegular
	}
	section := &models.Section{
		IsRegular:  isRegular,
		SchoolYear: req.SchoolYear,
		GradeLevel: req.GradeLevel,
		Number:     req.Number,
		Name:       req.Name,
		Students:   req.Students,
	}
	if req.AdviserID != "" {
		section.AdviserID = &req.AdviserID
	}
	if req.ChairmanID != "" {
		section.ChairmanID = &req.ChairmanID
	} else if claims != nil {
		section.ChairmanID = &claims.TeacherID
	}

	if err := s.repo.Create(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}

	s.invalidate(ctx)
	s.audit(ctx, claims, fmt.Sprintf("%s creates section %s of grade %d", actorName(claims), section.Label(), section.GradeLevel))
	return section, nil
}

// Update overwrites the section's scalar fields, re-checking tuple uniqueness.
func (s *SectionService) Update(ctx context.Context, claims *models.JWTClaims, id string, req UpdateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	section, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing, err := s.repo.FindByTuple(ctx, req.GradeLevel, req.Number, req.SchoolYear.Start, req.SchoolYear.End); err == nil {
		if existing.ID != id {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "section already registered for the school year")
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section uniqueness")
	}

	if req.IsRegular != nil {
		section.IsRegular = *req.IsRegular
	}
	section.SchoolYear = req.SchoolYear
	section.GradeLevel = req.GradeLevel
	section.Number = req.Number
	section.Name = req.Name
	if err := s.repo.Update(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}

	s.invalidate(ctx)
	s.audit(ctx, claims, fmt.Sprintf("%s updates section %s of grade %d", actorName(claims), section.Label(), section.GradeLevel))
	return section, nil
}

// AssignAdviser sets the section adviser; a section holds at most one.
func (s *SectionService) AssignAdviser(ctx context.Context, claims *models.JWTClaims, sectionID string, req AssignTeacherRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	section, err := s.Get(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	teacher, err := s.resolveTeacher(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}
	if section.AdviserID != nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "section already has an adviser")
	}
	if err := s.repo.SetAdviser(ctx, sectionID, &teacher.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign adviser")
	}
	section.AdviserID = &teacher.ID

	s.invalidate(ctx)
	s.audit(ctx, claims, fmt.Sprintf("%s assigns %s as adviser of section %s", actorName(claims), teacher.FullName(), section.Label()))
	return section, nil
}

// UnassignAdviser clears the adviser when the given teacher is the incumbent.
func (s *SectionService) UnassignAdviser(ctx context.Context, claims *models.JWTClaims, sectionID string, req AssignTeacherRequest) (*models.Section, error) {
	section, err := s.Get(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if section.AdviserID == nil || *section.AdviserID != req.TeacherID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher is not the adviser of the section")
	}
	if err := s.repo.SetAdviser(ctx, sectionID, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign adviser")
	}
	section.AdviserID = nil

	s.invalidate(ctx)
	s.audit(ctx, claims, fmt.Sprintf("%s unassigns the adviser of section %s", actorName(claims), section.Label()))
	return section, nil
}

// AssignSubjectTeacher appends a (learning_area, teacher) pair; each learning
// area of a section is taught by at most one teacher.
func (s *SectionService) AssignSubjectTeacher(ctx context.Context, claims *models.JWTClaims, sectionID string, req AssignTeacherRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if !models.IsLearningArea(req.LearningArea) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown learning area")
	}
	section, err := s.Get(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	teacher, err := s.resolveTeacher(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}
	for _, entry := range section.SubjectTeachers {
		if entry.LearningArea == req.LearningArea {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "learning area already has a subject teacher")
		}
	}
	if err := s.repo.AddSubjectTeacher(ctx, sectionID, req.LearningArea, teacher.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign subject teacher")
	}
	section.SubjectTeachers = append(section.SubjectTeachers, models.SubjectTeacherEntry{LearningArea: req.LearningArea, TeacherID: teacher.ID})

	s.invalidate(ctx)
	s.audit(ctx, claims, fmt.Sprintf("%s assigns %s to teach %s in section %s", actorName(claims), teacher.FullName(), req.LearningArea, section.Label()))
	return section, nil
}

// UnassignSubjectTeacher removes the pair when the teacher is the incumbent
// for the learning area.
func (s *SectionService) UnassignSubjectTeacher(ctx context.Context, claims *models.JWTClaims, sectionID string, req AssignTeacherRequest) (*models.Section, error) {
	section, err := s.Get(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	found := false
	for _, entry := range section.SubjectTeachers {
		if entry.LearningArea == req.LearningArea && entry.TeacherID == req.TeacherID {
			found = true
			break
		}
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher is not handling the learning area in the section")
	}
	if err := s.repo.RemoveSubjectTeacher(ctx, sectionID, req.LearningArea); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign subject teacher")
	}
	remaining := section.SubjectTeachers[:0]
	for _, entry := range section.SubjectTeachers {
		if entry.LearningArea != req.LearningArea {
			remaining = append(remaining, entry)
		}
	}
	section.SubjectTeachers = remaining

	s.invalidate(ctx)
	s.audit(ctx, claims, fmt.Sprintf("%s unassigns the %s teacher of section %s", actorName(claims), req.LearningArea, section.Label()))
	return section, nil
}

// RemoveStudent detaches a classified student. Only the recorded chairman may
// modify membership.
func (s *SectionService) RemoveStudent(ctx context.Context, claims *models.JWTClaims, sectionID, studentID string) (*models.Section, error) {
	section, err := s.Get(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireChairman(section, claims); err != nil {
		return nil, err
	}
	present := false
	for _, id := range section.Students {
		if id == studentID {
			present = true
			break
		}
	}
	if !present {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not classified to the section")
	}
	if err := s.repo.RemoveStudent(ctx, sectionID, studentID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove student")
	}
	remaining := section.Students[:0]
	for _, id := range section.Students {
		if id != studentID {
			remaining = append(remaining, id)
		}
	}
	section.Students = remaining

	s.invalidate(ctx)
	s.audit(ctx, claims, fmt.Sprintf("%s removes a student from section %s", actorName(claims), section.Label()))
	return section, nil
}

// Delete removes a section after verifying the requester is its chairman and
// no member student owns a scholastic record for the section's school year.
// Teacher assignment cleanup and the section removal commit atomically.
func (s *SectionService) Delete(ctx context.Context, claims *models.JWTClaims, sectionID string) (*models.Section, error) {
	section, err := s.Get(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if err := s.requireChairman(section, claims); err != nil {
		return nil, err
	}

	exists, err := s.records.ExistsForStudentsAndYear(ctx, section.Students, section.SchoolYear.Start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check scholastic records")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrValidation, "existing scholastic records complicate the deletion of the section")
	}

	if err := s.repo.DeleteWithCleanup(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section")
	}

	s.invalidate(ctx)
	s.audit(ctx, claims, fmt.Sprintf("%s deletes section %s of grade %d", actorName(claims), section.Label(), section.GradeLevel))
	return section, nil
}

func (s *SectionService) requireChairman(section *models.Section, claims *models.JWTClaims) error {
	if claims == nil || section.ChairmanID == nil || *section.ChairmanID != claims.TeacherID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the section chairman may perform this operation")
	}
	return nil
}

func (s *SectionService) resolveTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher with the given id cannot be found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

func (s *SectionService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, "sections:*")
	_ = s.cache.Invalidate(ctx, "students:handled:*")
}

func (s *SectionService) audit(ctx context.Context, claims *models.JWTClaims, message string) {
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

func actorName(claims *models.JWTClaims) string {
	if claims == nil || claims.Name == "" {
		return "Unknown person"
	}
	return claims.Name
}

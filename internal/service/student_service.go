package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sf10-api/internal/models"
	appErrors "github.com/noah-isme/sf10-api/pkg/errors"
)

type studentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByLRN(ctx context.Context, lrn int64, excludeID string) (*models.Student, error)
	FindByName(ctx context.Context, name models.PersonName, excludeID string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

type rosterSectionRepository interface {
	ListForTeacher(ctx context.Context, teacherID string, yearNow int) (advisory, chairman, teaching []models.Section, err error)
}

type rosterEnrolleeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollee, error)
	ListByClassification(ctx context.Context, gradeLevel, sectionNumber int) ([]models.Enrollee, error)
	SetDataProcessed(ctx context.Context, id string, processed bool) error
}

type rosterCache interface {
	Enabled() bool
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// RegisterStudentRequest carries the demographic master data collected when an
// enrollee becomes a full student.
type RegisterStudentRequest struct {
	LRN       int64             `json:"lrn" validate:"required,min=1,max=999999999999"`
	Name      models.PersonName `json:"name" validate:"required"`
	Gender    string            `json:"gender" validate:"required,oneof=Male Female"`
	Birthdate time.Time         `json:"birthdate" validate:"required"`
	Address   string            `json:"address" validate:"required,min=5"`
	Guardian  string            `json:"guardian" validate:"required,min=2"`

	// EnrolleeID, when present, marks the source enrollee as data-processed.
	EnrolleeID string `json:"enrollee_id"`
}

// StudentService manages student master data and the handled-students roster.
type StudentService struct {
	repo      studentRepository
	sections  rosterSectionRepository
	enrollees rosterEnrolleeRepository
	cache     rosterCache
	audits    auditSink
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, sections rosterSectionRepository, enrollees rosterEnrolleeRepository, cache rosterCache, audits auditSink, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:      repo,
		sections:  sections,
		enrollees: enrollees,
		cache:     cache,
		audits:    audits,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// HandledStudents builds the requester's roster: every learner reachable
// through the teacher's advisory, chairman and teaching sections for the
// current school year. Regular advisory sections also surface enrollees whose
// classification matches the section but who have no section membership yet.
func (s *StudentService) HandledStudents(ctx context.Context, claims *models.JWTClaims) ([]models.HandledStudent, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing credentials")
	}

	cacheKey := "students:handled:" + claims.TeacherID
	if s.cache != nil && s.cache.Enabled() {
		var cached []models.HandledStudent
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	advisory, chairman, teaching, err := s.sections.ListForTeacher(ctx, claims.TeacherID, s.now().Year())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}

	roster := make([]models.HandledStudent, 0)
	seen := make(map[string]bool)
	appendSections := func(sections []models.Section) error {
		for i := range sections {
			section := &sections[i]
			for _, studentID := range section.Students {
				if seen[studentID] {
					continue
				}
				row, err := s.rosterRow(ctx, studentID, section)
				if err != nil {
					return err
				}
				if row != nil {
					seen[studentID] = true
					roster = append(roster, *row)
				}
			}
			if section.IsRegular {
				if err := s.appendClassifiedEnrollees(ctx, section, seen, &roster); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, group := range [][]models.Section{advisory, chairman, teaching} {
		if err := appendSections(group); err != nil {
			return nil, err
		}
	}

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, roster, 0); err != nil {
			s.logger.Warn("failed to cache roster", zap.Error(err))
		}
	}
	return roster, nil
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student with the given id cannot be found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Register persists student master data. Both the learner reference number and
// the full structured name must be unique across students.
func (s *StudentService) Register(ctx context.Context, claims *models.JWTClaims, req RegisterStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student := &models.Student{
		LRN:       req.LRN,
		Name:      req.Name,
		Gender:    req.Gender,
		Birthdate: req.Birthdate,
		Address:   req.Address,
		Guardian:  req.Guardian,
	}
	student.Name.Normalize()

	if err := s.requireUnique(ctx, student, ""); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	if req.EnrolleeID != "" {
		if err := s.enrollees.SetDataProcessed(ctx, req.EnrolleeID, true); err != nil {
			s.logger.Warn("failed to mark enrollee as processed", zap.String("enrollee_id", req.EnrolleeID), zap.Error(err))
		}
	}

	s.invalidate(ctx)
	s.audit(ctx, claims, fmt.Sprintf("%s registers the student data of %s", actorName(claims), student.Name.Full()))
	return student, nil
}

// Update overwrites a student's master data, re-checking uniqueness against
// every other student.
func (s *StudentService) Update(ctx context.Context, claims *models.JWTClaims, id string, req RegisterStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	student.LRN = req.LRN
	student.Name = req.Name
	student.Name.Normalize()
	student.Gender = req.Gender
	student.Birthdate = req.Birthdate
	student.Address = req.Address
	student.Guardian = req.Guardian

	if err := s.requireUnique(ctx, student, id); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	s.invalidate(ctx)
	s.audit(ctx, claims, fmt.Sprintf("%s updates the student data of %s", actorName(claims), student.Name.Full()))
	return student, nil
}

func (s *StudentService) requireUnique(ctx context.Context, student *models.Student, excludeID string) error {
	if _, err := s.repo.FindByLRN(ctx, student.LRN, excludeID); err == nil {
		return appErrors.Clone(appErrors.ErrDuplicate, "learner reference number is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student uniqueness")
	}
	if _, err := s.repo.FindByName(ctx, student.Name, excludeID); err == nil {
		return appErrors.Clone(appErrors.ErrDuplicate, "student with the same name is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student uniqueness")
	}
	return nil
}

// rosterRow resolves a membership reference into a roster row. References may
// point at full students or at enrollees still awaiting data processing.
func (s *StudentService) rosterRow(ctx context.Context, id string, section *models.Section) (*models.HandledStudent, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err == nil {
		return &models.HandledStudent{
			ID:         student.ID,
			LRN:        models.FormatLRN(student.LRN),
			Name:       student.Name.Full(),
			GradeLevel: section.GradeLevel,
			Section:    section.Number,
		}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	enrollee, err := s.enrollees.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollee")
	}
	return &models.HandledStudent{
		ID:         enrollee.ID,
		LRN:        models.FormatLRN(enrollee.LRN),
		Name:       enrollee.Name.Full(),
		GradeLevel: section.GradeLevel,
		Section:    section.Number,
	}, nil
}

func (s *StudentService) appendClassifiedEnrollees(ctx context.Context, section *models.Section, seen map[string]bool, roster *[]models.HandledStudent) error {
	enrollees, err := s.enrollees.ListByClassification(ctx, section.GradeLevel, section.Number)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classified enrollees")
	}
	for _, enrollee := range enrollees {
		if seen[enrollee.ID] {
			continue
		}
		seen[enrollee.ID] = true
		*roster = append(*roster, models.HandledStudent{
			ID:         enrollee.ID,
			LRN:        models.FormatLRN(enrollee.LRN),
			Name:       enrollee.Name.Full(),
			GradeLevel: section.GradeLevel,
			Section:    section.Number,
		})
	}
	return nil
}

func (s *StudentService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, "students:handled:*")
}

func (s *StudentService) audit(ctx context.Context, claims *models.JWTClaims, message string) {
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

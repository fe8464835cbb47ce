package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sf10-api/internal/models"
	appErrors "github.com/noah-isme/sf10-api/pkg/errors"
)

type fakeStudentStore struct {
	students map[string]*models.Student
	creates  int
	updates  int
}

func (f *fakeStudentStore) FindByID(_ context.Context, id string) (*models.Student, error) {
	if student, ok := f.students[id]; ok {
		return student, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentStore) FindByLRN(_ context.Context, lrn int64, excludeID string) (*models.Student, error) {
	for _, student := range f.students {
		if student.LRN == lrn && student.ID != excludeID {
			return student, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentStore) FindByName(_ context.Context, name models.PersonName, excludeID string) (*models.Student, error) {
	for _, student := range f.students {
		if student.Name.Last == name.Last && student.Name.First == name.First && student.Name.Middle == name.Middle && student.ID != excludeID {
			return student, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentStore) Create(_ context.Context, student *models.Student) error {
	f.creates++
	student.ID = "student-new"
	if f.students == nil {
		f.students = make(map[string]*models.Student)
	}
	f.students[student.ID] = student
	return nil
}

func (f *fakeStudentStore) Update(_ context.Context, student *models.Student) error {
	f.updates++
	f.students[student.ID] = student
	return nil
}

type stubRosterSectionRepo struct {
	advisory []models.Section
	chairman []models.Section
	teaching []models.Section
}

func (s *stubRosterSectionRepo) ListForTeacher(_ context.Context, _ string, _ int) ([]models.Section, []models.Section, []models.Section, error) {
	return s.advisory, s.chairman, s.teaching, nil
}

type stubRosterEnrolleeRepo struct {
	byID         map[string]*models.Enrollee
	byClass      map[int][]models.Enrollee
	processed    []string
	processCalls int
}

func (s *stubRosterEnrolleeRepo) FindByID(_ context.Context, id string) (*models.Enrollee, error) {
	if enrollee, ok := s.byID[id]; ok {
		return enrollee, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubRosterEnrolleeRepo) ListByClassification(_ context.Context, gradeLevel, _ int) ([]models.Enrollee, error) {
	return s.byClass[gradeLevel], nil
}

func (s *stubRosterEnrolleeRepo) SetDataProcessed(_ context.Context, id string, _ bool) error {
	s.processCalls++
	s.processed = append(s.processed, id)
	return nil
}

type memoryCacheRepo struct {
	store map[string][]byte
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = payload
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	m.store = nil
	return nil
}

func rosterSection(id string, gradeLevel, number int, regular bool, students ...string) models.Section {
	return models.Section{
		ID:         id,
		IsRegular:  regular,
		GradeLevel: gradeLevel,
		Number:     number,
		SchoolYear: models.SchoolYear{Start: 2025, End: 2026},
		Students:   students,
	}
}

func TestHandledStudentsUnionsSectionsAndClassifiedEnrollees(t *testing.T) {
	students := &fakeStudentStore{students: map[string]*models.Student{
		"student-1": {ID: "student-1", LRN: 1, Name: models.PersonName{Last: "DELA CRUZ", First: "JUAN", Middle: "SANTOS"}},
	}}
	sections := &stubRosterSectionRepo{
		advisory: []models.Section{rosterSection("section-a", 7, 1, true, "student-1")},
		teaching: []models.Section{rosterSection("section-b", 8, 2, true, "student-1", "enrollee-2")},
	}
	enrollees := &stubRosterEnrolleeRepo{
		byID: map[string]*models.Enrollee{
			"enrollee-2": {ID: "enrollee-2", LRN: 2, Name: models.PersonName{Last: "GARCIA", First: "PEDRO", Middle: "LIM"}},
		},
		byClass: map[int][]models.Enrollee{
			7: {{ID: "enrollee-3", LRN: 3, Name: models.PersonName{Last: "TAN", First: "LISA", Middle: "UY"}}},
		},
	}
	svc := NewStudentService(students, sections, enrollees, nil, &recordingAuditSink{}, nil, zap.NewNop())

	roster, err := svc.HandledStudents(context.Background(), teacherClaims())
	require.NoError(t, err)
	require.Len(t, roster, 3)

	assert.Equal(t, "DELA CRUZ, JUAN SANTOS", roster[0].Name)
	assert.Equal(t, "000000000001", roster[0].LRN)
	assert.Equal(t, 7, roster[0].GradeLevel)

	assert.Equal(t, "TAN, LISA UY", roster[1].Name)
	assert.Equal(t, "GARCIA, PEDRO LIM", roster[2].Name)
	assert.Equal(t, 8, roster[2].GradeLevel)
}

func TestHandledStudentsServedFromCache(t *testing.T) {
	students := &fakeStudentStore{students: map[string]*models.Student{
		"student-1": {ID: "student-1", LRN: 1, Name: models.PersonName{Last: "DELA CRUZ", First: "JUAN", Middle: "SANTOS"}},
	}}
	sections := &stubRosterSectionRepo{advisory: []models.Section{rosterSection("section-a", 7, 1, false, "student-1")}}
	enrollees := &stubRosterEnrolleeRepo{}
	cacheSvc := NewCacheService(&memoryCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewStudentService(students, sections, enrollees, cacheSvc, &recordingAuditSink{}, nil, zap.NewNop())
	ctx := context.Background()

	first, err := svc.HandledStudents(ctx, teacherClaims())
	require.NoError(t, err)

	sections.advisory = nil
	second, err := svc.HandledStudents(ctx, teacherClaims())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRegisterRejectsDuplicateLRN(t *testing.T) {
	students := &fakeStudentStore{students: map[string]*models.Student{
		"student-1": {ID: "student-1", LRN: 1, Name: models.PersonName{Last: "DELA CRUZ", First: "JUAN", Middle: "SANTOS"}},
	}}
	svc := NewStudentService(students, &stubRosterSectionRepo{}, &stubRosterEnrolleeRepo{}, nil, &recordingAuditSink{}, nil, zap.NewNop())

	_, err := svc.Register(context.Background(), teacherClaims(), RegisterStudentRequest{
		LRN:       1,
		Name:      models.PersonName{Last: "Reyes", First: "Mario", Middle: "Cruz"},
		Gender:    "Male",
		Birthdate: time.Date(2012, 4, 1, 0, 0, 0, 0, time.UTC),
		Address:   "123 Sampaloc St",
		Guardian:  "Reyes, Carmen",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErrors.FromError(err).Code)
	assert.Zero(t, students.creates)
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	students := &fakeStudentStore{students: map[string]*models.Student{
		"student-1": {ID: "student-1", LRN: 1, Name: models.PersonName{Last: "DELA CRUZ", First: "JUAN", Middle: "SANTOS"}},
	}}
	svc := NewStudentService(students, &stubRosterSectionRepo{}, &stubRosterEnrolleeRepo{}, nil, &recordingAuditSink{}, nil, zap.NewNop())

	_, err := svc.Register(context.Background(), teacherClaims(), RegisterStudentRequest{
		LRN:       2,
		Name:      models.PersonName{Last: "dela cruz", First: "juan", Middle: "santos"},
		Gender:    "Male",
		Birthdate: time.Date(2012, 4, 1, 0, 0, 0, 0, time.UTC),
		Address:   "123 Sampaloc St",
		Guardian:  "Dela Cruz, Carmen",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErrors.FromError(err).Code)
}

func TestRegisterNormalizesNameAndMarksEnrolleeProcessed(t *testing.T) {
	students := &fakeStudentStore{students: map[string]*models.Student{}}
	enrollees := &stubRosterEnrolleeRepo{}
	svc := NewStudentService(students, &stubRosterSectionRepo{}, enrollees, nil, &recordingAuditSink{}, nil, zap.NewNop())

	student, err := svc.Register(context.Background(), teacherClaims(), RegisterStudentRequest{
		LRN:        2,
		Name:       models.PersonName{Last: " garcia ", First: "pedro", Middle: "lim"},
		Gender:     "Male",
		Birthdate:  time.Date(2012, 4, 1, 0, 0, 0, 0, time.UTC),
		Address:    "456 Mabini St",
		Guardian:   "Garcia, Rosa",
		EnrolleeID: "enrollee-2",
	})
	require.NoError(t, err)
	assert.Equal(t, "GARCIA", student.Name.Last)
	assert.Equal(t, "PEDRO", student.Name.First)
	assert.Equal(t, []string{"enrollee-2"}, enrollees.processed)
}

func TestUpdateExcludesSelfFromDuplicateChecks(t *testing.T) {
	students := &fakeStudentStore{students: map[string]*models.Student{
		"student-1": {ID: "student-1", LRN: 1, Name: models.PersonName{Last: "DELA CRUZ", First: "JUAN", Middle: "SANTOS"}},
	}}
	svc := NewStudentService(students, &stubRosterSectionRepo{}, &stubRosterEnrolleeRepo{}, nil, &recordingAuditSink{}, nil, zap.NewNop())

	updated, err := svc.Update(context.Background(), teacherClaims(), "student-1", RegisterStudentRequest{
		LRN:       1,
		Name:      models.PersonName{Last: "Dela Cruz", First: "Juan", Middle: "Santos"},
		Gender:    "Male",
		Birthdate: time.Date(2012, 4, 1, 0, 0, 0, 0, time.UTC),
		Address:   "789 Rizal Ave",
		Guardian:  "Dela Cruz, Carmen",
	})
	require.NoError(t, err)
	assert.Equal(t, "789 Rizal Ave", updated.Address)
	assert.Equal(t, 1, students.updates)
}

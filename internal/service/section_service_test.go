package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sf10-api/internal/models"
	appErrors "github.com/noah-isme/sf10-api/pkg/errors"
)

type fakeSectionStore struct {
	sections     []*models.Section
	classified   map[string]string
	deleteCalls  int
	adviserCalls int
}

func (f *fakeSectionStore) FindByID(_ context.Context, id string) (*models.Section, error) {
	for _, section := range f.sections {
		if section.ID == id {
			return section, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSectionStore) FindByTuple(_ context.Context, gradeLevel, number, syStart, syEnd int) (*models.Section, error) {
	for _, section := range f.sections {
		if section.GradeLevel == gradeLevel && section.Number == number && section.SchoolYear.Start == syStart && section.SchoolYear.End == syEnd {
			return section, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSectionStore) List(_ context.Context, _ models.SectionFilter) ([]models.Section, error) {
	out := make([]models.Section, 0, len(f.sections))
	for _, section := range f.sections {
		out = append(out, *section)
	}
	return out, nil
}

func (f *fakeSectionStore) Create(_ context.Context, section *models.Section) error {
	section.ID = "section-new"
	f.sections = append(f.sections, section)
	return nil
}

func (f *fakeSectionStore) Update(_ context.Context, _ *models.Section) error { return nil }

func (f *fakeSectionStore) SetAdviser(_ context.Context, _ string, _ *string) error {
	f.adviserCalls++
	return nil
}

func (f *fakeSectionStore) AddSubjectTeacher(_ context.Context, _, _, _ string) error { return nil }

func (f *fakeSectionStore) RemoveSubjectTeacher(_ context.Context, _, _ string) error { return nil }

func (f *fakeSectionStore) RemoveStudent(_ context.Context, _, _ string) error { return nil }

func (f *fakeSectionStore) FindByStudentAndYear(_ context.Context, studentID string, _ int) (*models.Section, error) {
	if sectionID, ok := f.classified[studentID]; ok {
		return &models.Section{ID: sectionID}, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSectionStore) DeleteWithCleanup(_ context.Context, section *models.Section) error {
	f.deleteCalls++
	for i, existing := range f.sections {
		if existing.ID == section.ID {
			f.sections = append(f.sections[:i], f.sections[i+1:]...)
			break
		}
	}
	return nil
}

type stubEnrolleeReader struct {
	known map[string]bool
}

func (s *stubEnrolleeReader) FindByID(_ context.Context, id string) (*models.Enrollee, error) {
	if s.known[id] {
		return &models.Enrollee{ID: id, LRN: 1, Name: models.PersonName{Last: "DELA CRUZ", First: "JUAN", Middle: "SANTOS"}}, nil
	}
	return nil, sql.ErrNoRows
}

type stubTeacherReader struct {
	known map[string]*models.Teacher
}

func (s *stubTeacherReader) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := s.known[id]; ok {
		return teacher, nil
	}
	return nil, sql.ErrNoRows
}

type stubRecordExistence struct {
	exists bool
}

func (s *stubRecordExistence) ExistsForStudentsAndYear(_ context.Context, _ []string, _ int) (bool, error) {
	return s.exists, nil
}

func newSectionService(store *fakeSectionStore, enrollees *stubEnrolleeReader, teachers *stubTeacherReader, records *stubRecordExistence) *SectionService {
	if enrollees == nil {
		enrollees = &stubEnrolleeReader{known: map[string]bool{}}
	}
	if teachers == nil {
		teachers = &stubTeacherReader{known: map[string]*models.Teacher{}}
	}
	if records == nil {
		records = &stubRecordExistence{}
	}
	return NewSectionService(store, enrollees, teachers, records, nil, &recordingAuditSink{}, nil, zap.NewNop())
}

func chairmanClaims() *models.JWTClaims {
	return &models.JWTClaims{TeacherID: "teacher-chair", Name: "SANTOS, MARIA LUZ", Roles: []int{models.RoleChairman}}
}

func existingSection() *models.Section {
	chairmanID := "teacher-chair"
	return &models.Section{
		ID:         "section-1",
		IsRegular:  true,
		GradeLevel: 7,
		Number:     1,
		Name:       "Sampaguita",
		SchoolYear: models.SchoolYear{Start: 2025, End: 2026},
		ChairmanID: &chairmanID,
		Students:   []string{"student-1"},
	}
}

func TestCreateSectionRejectsDuplicateTuple(t *testing.T) {
	store := &fakeSectionStore{sections: []*models.Section{existingSection()}}
	svc := newSectionService(store, nil, nil, nil)

	_, err := svc.Create(context.Background(), chairmanClaims(), CreateSectionRequest{
		SchoolYear: models.SchoolYear{Start: 2025, End: 2026},
		GradeLevel: 7,
		Number:     1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErrors.FromError(err).Code)
	assert.Len(t, store.sections, 1)
}

func TestCreateSectionRejectsUnenrolledStudent(t *testing.T) {
	store := &fakeSectionStore{}
	svc := newSectionService(store, &stubEnrolleeReader{known: map[string]bool{}}, nil, nil)

	_, err := svc.Create(context.Background(), chairmanClaims(), CreateSectionRequest{
		SchoolYear: models.SchoolYear{Start: 2025, End: 2026},
		GradeLevel: 7,
		Number:     2,
		Students:   []string{"ghost"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.sections)
}

func TestCreateSectionRejectsAlreadyClassifiedStudent(t *testing.T) {
	store := &fakeSectionStore{classified: map[string]string{"student-1": "section-other"}}
	enrollees := &stubEnrolleeReader{known: map[string]bool{"student-1": true}}
	svc := newSectionService(store, enrollees, nil, nil)

	_, err := svc.Create(context.Background(), chairmanClaims(), CreateSectionRequest{
		SchoolYear: models.SchoolYear{Start: 2025, End: 2026},
		GradeLevel: 7,
		Number:     2,
		Students:   []string{"student-1"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.sections)
}

func TestCreateSectionDefaultsChairmanToRequester(t *testing.T) {
	store := &fakeSectionStore{}
	enrollees := &stubEnrolleeReader{known: map[string]bool{"student-1": true}}
	svc := newSectionService(store, enrollees, nil, nil)

	section, err := svc.Create(context.Background(), chairmanClaims(), CreateSectionRequest{
		SchoolYear: models.SchoolYear{Start: 2025, End: 2026},
		GradeLevel: 7,
		Number:     3,
		Name:       "Rosal",
		Students:   []string{"student-1"},
	})
	require.NoError(t, err)
	require.NotNil(t, section.ChairmanID)
	assert.Equal(t, "teacher-chair", *section.ChairmanID)
	assert.True(t, section.IsRegular)
}

func TestAssignAdviserRejectsSecondAdviser(t *testing.T) {
	section := existingSection()
	adviserID := "teacher-a"
	section.AdviserID = &adviserID
	store := &fakeSectionStore{sections: []*models.Section{section}}
	teachers := &stubTeacherReader{known: map[string]*models.Teacher{
		"teacher-b": {ID: "teacher-b", LastName: "GARCIA", FirstName: "PEDRO", MiddleName: "LIM"},
	}}
	svc := newSectionService(store, nil, teachers, nil)

	_, err := svc.AssignAdviser(context.Background(), chairmanClaims(), "section-1", AssignTeacherRequest{TeacherID: "teacher-b"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErrors.FromError(err).Code)
	assert.Zero(t, store.adviserCalls)
}

func TestAssignSubjectTeacherRejectsTakenLearningArea(t *testing.T) {
	section := existingSection()
	section.SubjectTeachers = []models.SubjectTeacherEntry{{LearningArea: "Filipino", TeacherID: "teacher-a"}}
	store := &fakeSectionStore{sections: []*models.Section{section}}
	teachers := &stubTeacherReader{known: map[string]*models.Teacher{
		"teacher-b": {ID: "teacher-b", LastName: "GARCIA", FirstName: "PEDRO", MiddleName: "LIM"},
	}}
	svc := newSectionService(store, nil, teachers, nil)

	_, err := svc.AssignSubjectTeacher(context.Background(), chairmanClaims(), "section-1", AssignTeacherRequest{
		TeacherID:    "teacher-b",
		LearningArea: "Filipino",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErrors.FromError(err).Code)
}

func TestUnassignAdviserRequiresIncumbent(t *testing.T) {
	section := existingSection()
	adviserID := "teacher-a"
	section.AdviserID = &adviserID
	store := &fakeSectionStore{sections: []*models.Section{section}}
	svc := newSectionService(store, nil, nil, nil)

	_, err := svc.UnassignAdviser(context.Background(), chairmanClaims(), "section-1", AssignTeacherRequest{TeacherID: "teacher-b"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	updated, err := svc.UnassignAdviser(context.Background(), chairmanClaims(), "section-1", AssignTeacherRequest{TeacherID: "teacher-a"})
	require.NoError(t, err)
	assert.Nil(t, updated.AdviserID)
}

func TestRemoveStudentRequiresChairmanAndMembership(t *testing.T) {
	store := &fakeSectionStore{sections: []*models.Section{existingSection()}}
	svc := newSectionService(store, nil, nil, nil)
	ctx := context.Background()

	outsider := &models.JWTClaims{TeacherID: "teacher-x", Name: "X", Roles: []int{models.RoleChairman}}
	_, err := svc.RemoveStudent(ctx, outsider, "section-1", "student-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.RemoveStudent(ctx, chairmanClaims(), "section-1", "student-unknown")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	section, err := svc.RemoveStudent(ctx, chairmanClaims(), "section-1", "student-1")
	require.NoError(t, err)
	assert.Empty(t, section.Students)
}

func TestDeleteSectionBlockedByScholasticRecords(t *testing.T) {
	store := &fakeSectionStore{sections: []*models.Section{existingSection()}}
	svc := newSectionService(store, nil, nil, &stubRecordExistence{exists: true})

	_, err := svc.Delete(context.Background(), chairmanClaims(), "section-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, store.deleteCalls)
}

func TestDeleteSectionRunsCleanup(t *testing.T) {
	store := &fakeSectionStore{sections: []*models.Section{existingSection()}}
	svc := newSectionService(store, nil, nil, &stubRecordExistence{exists: false})

	_, err := svc.Delete(context.Background(), chairmanClaims(), "section-1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.deleteCalls)
	assert.Empty(t, store.sections)
}

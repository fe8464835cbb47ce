package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sf10-api/internal/models"
	"github.com/noah-isme/sf10-api/pkg/config"
	appErrors "github.com/noah-isme/sf10-api/pkg/errors"
)

type stubGradeSectionRepo struct {
	section *models.Section
}

func (s *stubGradeSectionRepo) FindForGradeEncoding(_ context.Context, _, _, _ string, _ int) (*models.Section, error) {
	if s.section == nil {
		return nil, sql.ErrNoRows
	}
	return s.section, nil
}

// fakeRecordStore keeps scholastic records in memory and answers the frontier
// queries the same way the SQL repository does.
type fakeRecordStore struct {
	records []*models.ScholasticRecord
	nextID  int
	updates int
}

func (f *fakeRecordStore) FindOpen(_ context.Context, ownerID string, gradeLevel, syStart int) (*models.ScholasticRecord, error) {
	for _, rec := range f.records {
		if rec.OwnerID == ownerID && rec.GradeLevel == gradeLevel && rec.SchoolYear.Start == syStart && !rec.Completed {
			return rec, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRecordStore) FindWithQuarterCount(_ context.Context, ownerID string, gradeLevel, syStart int, learningArea string, quarterCount int, completed bool) (*models.ScholasticRecord, error) {
	for _, rec := range f.records {
		if rec.OwnerID != ownerID || rec.GradeLevel != gradeLevel || rec.Completed != completed {
			continue
		}
		if syStart != 0 && rec.SchoolYear.Start != syStart {
			continue
		}
		subject := rec.Subject(learningArea)
		if subject != nil && subject.EncodedQuarters() == quarterCount {
			return rec, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRecordStore) HasCompletedSubject(_ context.Context, ownerID string, gradeLevel int, learningArea string) (bool, error) {
	for _, rec := range f.records {
		if rec.OwnerID != ownerID || rec.GradeLevel != gradeLevel {
			continue
		}
		subject := rec.Subject(learningArea)
		if subject != nil && subject.Completed() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRecordStore) Create(_ context.Context, record *models.ScholasticRecord) error {
	f.nextID++
	record.ID = fmt.Sprintf("rec-%d", f.nextID)
	f.records = append(f.records, record)
	return nil
}

func (f *fakeRecordStore) Update(_ context.Context, record *models.ScholasticRecord) error {
	f.updates++
	return nil
}

func (f *fakeRecordStore) UpdateSubjectRatings(_ context.Context, recordID, learningArea string, ratings []float64, average float64) error {
	for _, rec := range f.records {
		if rec.ID != recordID {
			continue
		}
		subject := rec.Subject(learningArea)
		if subject == nil {
			return sql.ErrNoRows
		}
		subject.QuarterRatings = pq.Float64Array(ratings)
		subject.QuarterAverage = average
		return nil
	}
	return sql.ErrNoRows
}

type stubGradeStudentRepo struct {
	student *models.Student
}

func (s *stubGradeStudentRepo) FindByID(_ context.Context, _ string) (*models.Student, error) {
	if s.student == nil {
		return nil, sql.ErrNoRows
	}
	return s.student, nil
}

type stubGradeTeacherRepo struct {
	teacher *models.Teacher
}

func (s *stubGradeTeacherRepo) FindByID(_ context.Context, _ string) (*models.Teacher, error) {
	if s.teacher == nil {
		return nil, sql.ErrNoRows
	}
	return s.teacher, nil
}

type recordingAuditSink struct {
	messages []string
}

func (r *recordingAuditSink) Append(_ context.Context, _ string, message string) error {
	r.messages = append(r.messages, message)
	return nil
}

func (r *recordingAuditSink) AppendStatus(_ context.Context, _ string, message string, _ int) error {
	r.messages = append(r.messages, message)
	return nil
}

func gradeTestSection() *models.Section {
	adviserID := "teacher-adviser"
	return &models.Section{
		ID:         "section-1",
		IsRegular:  true,
		GradeLevel: 7,
		Number:     1,
		Name:       "Sampaguita",
		SchoolYear: models.SchoolYear{Start: 2025, End: 2026},
		AdviserID:  &adviserID,
		Students:   []string{"student-1"},
	}
}

func newGradeService(sections *stubGradeSectionRepo, store *fakeRecordStore, audits *recordingAuditSink) *GradeService {
	students := &stubGradeStudentRepo{student: &models.Student{
		ID:   "student-1",
		LRN:  1,
		Name: models.PersonName{Last: "DELA CRUZ", First: "JUAN", Middle: "SANTOS"},
	}}
	teachers := &stubGradeTeacherRepo{teacher: &models.Teacher{ID: "teacher-adviser", LastName: "REYES", FirstName: "ANA", MiddleName: "CRUZ"}}
	school := config.SchoolConfig{Name: "Test High School", ID: 305296, District: "1", Division: "2", Region: "NCR"}
	return NewGradeService(sections, store, students, teachers, nil, audits, school, nil, zap.NewNop())
}

func teacherClaims() *models.JWTClaims {
	return &models.JWTClaims{TeacherID: "teacher-1", Name: "REYES, ANA CRUZ", Roles: []int{models.RoleSubjectTeacher}}
}

func TestEncodeFirstQuarterSeedsNewRecord(t *testing.T) {
	sections := &stubGradeSectionRepo{section: gradeTestSection()}
	store := &fakeRecordStore{}
	audits := &recordingAuditSink{}
	svc := newGradeService(sections, store, audits)

	record, err := svc.Encode(context.Background(), teacherClaims(), "student-1", EncodeGradeRequest{
		LearningArea: "Filipino",
		Quarter:      1,
		Grade:        90,
	})
	require.NoError(t, err)
	require.Len(t, store.records, 1)

	assert.Len(t, record.Subjects, len(models.LearningAreas))
	assert.Equal(t, pq.Float64Array{90}, record.Subject("Filipino").QuarterRatings)
	for _, area := range models.LearningAreas {
		if area == "Filipino" {
			continue
		}
		assert.Equal(t, pq.Float64Array{models.PlaceholderRating}, record.Subject(area).QuarterRatings, area)
	}
	assert.False(t, record.Completed)
	assert.Equal(t, 7, record.GradeLevel)
	assert.Equal(t, "REYES, ANA CRUZ", record.Adviser)
	require.Len(t, audits.messages, 1)
	assert.Contains(t, audits.messages[0], "encodes the quarter 1 Filipino grade of DELA CRUZ, JUAN SANTOS")
}

func TestEncodeEnforcesQuarterOrder(t *testing.T) {
	sections := &stubGradeSectionRepo{section: gradeTestSection()}
	store := &fakeRecordStore{}
	svc := newGradeService(sections, store, &recordingAuditSink{})
	ctx := context.Background()

	_, err := svc.Encode(ctx, teacherClaims(), "student-1", EncodeGradeRequest{LearningArea: "Filipino", Quarter: 1, Grade: 88})
	require.NoError(t, err)

	_, err = svc.Encode(ctx, teacherClaims(), "student-1", EncodeGradeRequest{LearningArea: "Filipino", Quarter: 3, Grade: 91})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSequence.Code, appErrors.FromError(err).Code)

	record, err := svc.Encode(ctx, teacherClaims(), "student-1", EncodeGradeRequest{LearningArea: "Filipino", Quarter: 2, Grade: 91})
	require.NoError(t, err)
	assert.Equal(t, pq.Float64Array{88, 91}, record.Subject("Filipino").QuarterRatings)
}

func TestEncodeRequiresCompletedLowerGradeLevels(t *testing.T) {
	section := gradeTestSection()
	section.GradeLevel = 8
	sections := &stubGradeSectionRepo{section: section}
	store := &fakeRecordStore{records: []*models.ScholasticRecord{{
		ID:         "rec-g7",
		OwnerID:    "student-1",
		GradeLevel: 7,
		SchoolYear: models.SchoolYear{Start: 2024, End: 2025},
		Completed:  false,
		Subjects: []models.SubjectRecord{{
			LearningArea:   "Filipino",
			QuarterRatings: pq.Float64Array{85},
		}},
	}}}
	svc := newGradeService(sections, store, &recordingAuditSink{})

	_, err := svc.Encode(context.Background(), teacherClaims(), "student-1", EncodeGradeRequest{LearningArea: "Filipino", Quarter: 2, Grade: 90})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSequence.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "grade 7")
}

func TestEncodePromotionCarriesForwardCompletedRecord(t *testing.T) {
	section := gradeTestSection()
	section.GradeLevel = 8
	sections := &stubGradeSectionRepo{section: section}

	completed := &models.ScholasticRecord{
		ID:         "rec-g7-done",
		OwnerID:    "student-1",
		GradeLevel: 7,
		SchoolYear: models.SchoolYear{Start: 2024, End: 2025},
		Completed:  true,
		Subjects: []models.SubjectRecord{{
			LearningArea:   "Filipino",
			QuarterRatings: pq.Float64Array{85, 86, 87, 88},
		}},
	}
	carrySource := &models.ScholasticRecord{
		ID:               "rec-g7-carry",
		OwnerID:          "student-1",
		GradeLevel:       7,
		SchoolYear:       models.SchoolYear{Start: 2024, End: 2025},
		ScholasticStatus: "PROMOTED",
		Completed:        true,
		Subjects: []models.SubjectRecord{{
			LearningArea:   "Filipino",
			QuarterRatings: pq.Float64Array{89},
		}},
	}
	store := &fakeRecordStore{records: []*models.ScholasticRecord{completed, carrySource}}
	svc := newGradeService(sections, store, &recordingAuditSink{})

	record, err := svc.Encode(context.Background(), teacherClaims(), "student-1", EncodeGradeRequest{LearningArea: "Filipino", Quarter: 2, Grade: 92})
	require.NoError(t, err)

	assert.Equal(t, "rec-g7-carry", record.ID)
	assert.Equal(t, 8, record.GradeLevel)
	assert.False(t, record.Completed)
	assert.Empty(t, record.ScholasticStatus)
	assert.Equal(t, section.SchoolYear, record.SchoolYear)
	assert.Equal(t, "1-Sampaguita", record.SectionLabel)
	assert.Equal(t, pq.Float64Array{89, 92}, record.Subject("Filipino").QuarterRatings)
	assert.Equal(t, 1, store.updates)
}

func TestEncodeFailsWithoutPredecessorOrPromotionSource(t *testing.T) {
	section := gradeTestSection()
	section.GradeLevel = 8
	sections := &stubGradeSectionRepo{section: section}
	store := &fakeRecordStore{records: []*models.ScholasticRecord{{
		ID:         "rec-g7-done",
		OwnerID:    "student-1",
		GradeLevel: 7,
		SchoolYear: models.SchoolYear{Start: 2024, End: 2025},
		Completed:  true,
		Subjects: []models.SubjectRecord{{
			LearningArea:   "Filipino",
			QuarterRatings: pq.Float64Array{85, 86, 87, 88},
		}},
	}}}
	svc := newGradeService(sections, store, &recordingAuditSink{})

	_, err := svc.Encode(context.Background(), teacherClaims(), "student-1", EncodeGradeRequest{LearningArea: "Filipino", Quarter: 3, Grade: 90})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSequence.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "quarter 2")
}

func TestEncodeRejectsUnhandledStudent(t *testing.T) {
	svc := newGradeService(&stubGradeSectionRepo{}, &fakeRecordStore{}, &recordingAuditSink{})

	_, err := svc.Encode(context.Background(), teacherClaims(), "student-1", EncodeGradeRequest{LearningArea: "Filipino", Quarter: 1, Grade: 90})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUnencodeRetractsOnlyFrontierQuarter(t *testing.T) {
	sections := &stubGradeSectionRepo{section: gradeTestSection()}
	store := &fakeRecordStore{records: []*models.ScholasticRecord{{
		ID:         "rec-open",
		OwnerID:    "student-1",
		GradeLevel: 7,
		SchoolYear: models.SchoolYear{Start: 2025, End: 2026},
		Completed:  false,
		Subjects: []models.SubjectRecord{{
			LearningArea:   "Filipino",
			QuarterRatings: pq.Float64Array{88, 91},
		}},
	}}}
	svc := newGradeService(sections, store, &recordingAuditSink{})
	ctx := context.Background()

	_, err := svc.Unencode(ctx, teacherClaims(), "student-1", UnencodeGradeRequest{LearningArea: "Filipino", Quarter: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSequence.Code, appErrors.FromError(err).Code)

	record, err := svc.Unencode(ctx, teacherClaims(), "student-1", UnencodeGradeRequest{LearningArea: "Filipino", Quarter: 2})
	require.NoError(t, err)
	assert.Equal(t, pq.Float64Array{88}, record.Subject("Filipino").QuarterRatings)
}

func TestUnencodeIsLeftInverseOfEncode(t *testing.T) {
	sections := &stubGradeSectionRepo{section: gradeTestSection()}
	store := &fakeRecordStore{}
	svc := newGradeService(sections, store, &recordingAuditSink{})
	ctx := context.Background()

	_, err := svc.Encode(ctx, teacherClaims(), "student-1", EncodeGradeRequest{LearningArea: "Filipino", Quarter: 1, Grade: 88})
	require.NoError(t, err)
	before, err := svc.Encode(ctx, teacherClaims(), "student-1", EncodeGradeRequest{LearningArea: "Filipino", Quarter: 2, Grade: 91})
	require.NoError(t, err)
	require.Equal(t, 2, before.Subject("Filipino").EncodedQuarters())

	after, err := svc.Unencode(ctx, teacherClaims(), "student-1", UnencodeGradeRequest{LearningArea: "Filipino", Quarter: 2})
	require.NoError(t, err)
	assert.Equal(t, pq.Float64Array{88}, after.Subject("Filipino").QuarterRatings)
}

func TestUnencodeRequiresOpenRecord(t *testing.T) {
	sections := &stubGradeSectionRepo{section: gradeTestSection()}
	svc := newGradeService(sections, &fakeRecordStore{}, &recordingAuditSink{})

	_, err := svc.Unencode(context.Background(), teacherClaims(), "student-1", UnencodeGradeRequest{LearningArea: "Filipino", Quarter: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

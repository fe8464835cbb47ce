package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sf10-api/internal/models"
	"github.com/noah-isme/sf10-api/internal/service"
)

type routerTeacherRepo struct {
	teachers map[string]*models.Teacher
}

func (r *routerTeacherRepo) FindByEmployeeNumber(_ context.Context, employeeNumber int) (*models.Teacher, error) {
	for _, teacher := range r.teachers {
		if teacher.EmployeeNumber == employeeNumber {
			return teacher, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *routerTeacherRepo) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := r.teachers[id]; ok {
		return teacher, nil
	}
	return nil, sql.ErrNoRows
}

type routerSectionRepo struct {
	section *models.Section

	adviserSet     *string
	adviserCleared bool
	addedArea      string
	removedArea    string
	removedStudent string
}

func (r *routerSectionRepo) FindByID(_ context.Context, id string) (*models.Section, error) {
	if r.section == nil || r.section.ID != id {
		return nil, sql.ErrNoRows
	}
	clone := *r.section
	return &clone, nil
}

func (r *routerSectionRepo) FindByTuple(_ context.Context, _, _, _, _ int) (*models.Section, error) {
	return nil, sql.ErrNoRows
}

func (r *routerSectionRepo) List(_ context.Context, _ models.SectionFilter) ([]models.Section, error) {
	return nil, nil
}

func (r *routerSectionRepo) Create(_ context.Context, _ *models.Section) error { return nil }
func (r *routerSectionRepo) Update(_ context.Context, _ *models.Section) error { return nil }

func (r *routerSectionRepo) SetAdviser(_ context.Context, _ string, teacherID *string) error {
	if teacherID == nil {
		r.adviserCleared = true
	}
	r.adviserSet = teacherID
	return nil
}

func (r *routerSectionRepo) AddSubjectTeacher(_ context.Context, _, learningArea, _ string) error {
	r.addedArea = learningArea
	return nil
}

func (r *routerSectionRepo) RemoveSubjectTeacher(_ context.Context, _, learningArea string) error {
	r.removedArea = learningArea
	return nil
}

func (r *routerSectionRepo) RemoveStudent(_ context.Context, _, studentID string) error {
	r.removedStudent = studentID
	return nil
}

func (r *routerSectionRepo) FindByStudentAndYear(_ context.Context, _ string, _ int) (*models.Section, error) {
	return nil, sql.ErrNoRows
}

func (r *routerSectionRepo) DeleteWithCleanup(_ context.Context, _ *models.Section) error {
	return nil
}

type routerEnrolleeReader struct{}

func (routerEnrolleeReader) FindByID(_ context.Context, _ string) (*models.Enrollee, error) {
	return nil, sql.ErrNoRows
}

type routerRecordReader struct{}

func (routerRecordReader) ExistsForStudentsAndYear(_ context.Context, _ []string, _ int) (bool, error) {
	return false, nil
}

// sectionRouter mounts the full route table with a real token-issuing auth
// service and a section service over the fake repo, then logs the chairman
// in so requests carry a valid token.
func sectionRouter(t *testing.T, repo *routerSectionRepo) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	chairman := &models.Teacher{
		ID:             "teacher-1",
		LastName:       "REYES",
		FirstName:      "ANA",
		EmployeeNumber: 1234567,
		PasswordHash:   string(hash),
		Assignments:    []models.TeacherAssignment{{Category: models.CategoryChairman}},
	}
	incumbent := &models.Teacher{ID: "teacher-2", LastName: "SANTOS", FirstName: "JOSE"}
	teachers := &routerTeacherRepo{teachers: map[string]*models.Teacher{
		chairman.ID:  chairman,
		incumbent.ID: incumbent,
	}}

	authSvc := service.NewAuthService(teachers, nil, nil, nil, service.AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
	})
	sectionSvc := service.NewSectionService(repo, routerEnrolleeReader{}, teachers, routerRecordReader{}, nil, nil, nil, nil)

	r := gin.New()
	Register(r, "/api", authSvc, Handlers{
		Auth:     NewAuthHandler(authSvc),
		Enrollee: NewEnrolleeHandler(nil),
		Student:  NewStudentHandler(nil, nil, nil, nil),
		Section:  NewSectionHandler(sectionSvc, nil),
		Teacher:  NewTeacherHandler(nil),
		Log:      NewLogHandler(nil),
	})

	login, err := authSvc.Login(context.Background(), models.LoginRequest{EmployeeNumber: 1234567, Password: "correct-horse"})
	require.NoError(t, err)
	return r, login.Token
}

func performSection(r *gin.Engine, token, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-auth-token", token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func chairmanSection(repo *routerSectionRepo) {
	chairmanID := "teacher-1"
	repo.section = &models.Section{
		ID:         "sec-1",
		IsRegular:  true,
		SchoolYear: models.SchoolYear{Start: 2025, End: 2026},
		GradeLevel: 7,
		Number:     1,
		Name:       "Sampaguita",
		ChairmanID: &chairmanID,
		Students:   []string{"stu-1"},
	}
}

func TestRouterAdviserAssignmentDoesNotMatchStudentRemoval(t *testing.T) {
	repo := &routerSectionRepo{}
	chairmanSection(repo)
	r, token := sectionRouter(t, repo)

	w := performSection(r, token, http.MethodPost, "/api/sections/sec-1/adviser", `{"teacher_id":"teacher-2"}`)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, repo.adviserSet)
	assert.Equal(t, "teacher-2", *repo.adviserSet)
	assert.Empty(t, repo.removedStudent)
}

func TestRouterSubjectTeacherAssignmentAndUnassignment(t *testing.T) {
	repo := &routerSectionRepo{}
	chairmanSection(repo)
	repo.section.SubjectTeachers = []models.SubjectTeacherEntry{
		{LearningArea: "English", TeacherID: "teacher-2"},
	}
	r, token := sectionRouter(t, repo)

	w := performSection(r, token, http.MethodPost, "/api/sections/sec-1/teacher", `{"teacher_id":"teacher-2","learning_area":"Filipino"}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Filipino", repo.addedArea)
	assert.Empty(t, repo.removedStudent)

	w = performSection(r, token, http.MethodDelete, "/api/sections/sec-1/teacher", `{"teacher_id":"teacher-2","learning_area":"English"}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "English", repo.removedArea)
}

func TestRouterStudentRemovalStillReachesWildcardRoute(t *testing.T) {
	repo := &routerSectionRepo{}
	chairmanSection(repo)
	r, token := sectionRouter(t, repo)

	w := performSection(r, token, http.MethodPost, "/api/sections/sec-1/stu-1", "")

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "stu-1", repo.removedStudent)
}

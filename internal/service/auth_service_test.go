package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sf10-api/internal/models"
	appErrors "github.com/noah-isme/sf10-api/pkg/errors"
)

type stubAuthTeacherRepo struct {
	teacher *models.Teacher
}

func (s *stubAuthTeacherRepo) FindByEmployeeNumber(_ context.Context, employeeNumber int) (*models.Teacher, error) {
	if s.teacher == nil || s.teacher.EmployeeNumber != employeeNumber {
		return nil, sql.ErrNoRows
	}
	return s.teacher, nil
}

func (s *stubAuthTeacherRepo) FindByID(_ context.Context, id string) (*models.Teacher, error) {
	if s.teacher == nil || s.teacher.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.teacher, nil
}

func newAuthService(t *testing.T, audits *recordingAuditSink) (*AuthService, *models.Teacher) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	teacher := &models.Teacher{
		ID:             "teacher-1",
		LastName:       "REYES",
		FirstName:      "ANA",
		MiddleName:     "CRUZ",
		EmployeeNumber: 1234567,
		PasswordHash:   string(hash),
		Assignments: []models.TeacherAssignment{
			{Category: models.CategoryAdviser},
			{Category: models.CategoryAdmin},
		},
	}
	svc := NewAuthService(&stubAuthTeacherRepo{teacher: teacher}, audits, nil, zap.NewNop(), AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
	})
	return svc, teacher
}

func TestLoginIssuesTokenWithRoleLevels(t *testing.T) {
	audits := &recordingAuditSink{}
	svc, _ := newAuthService(t, audits)

	result, err := svc.Login(context.Background(), models.LoginRequest{EmployeeNumber: 1234567, Password: "correct-horse"})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "REYES, ANA CRUZ", result.Name)
	assert.Equal(t, "1234567", result.EmployeeNumber)
	assert.Equal(t, []int{models.RoleAdviser, models.RoleAdmin}, result.Roles)

	claims, err := svc.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", claims.TeacherID)
	assert.True(t, claims.HasRole(models.RoleAdmin))
	assert.False(t, claims.HasRole(models.RoleRegistrar))

	require.Len(t, audits.messages, 1)
	assert.Contains(t, audits.messages[0], "logged in")
}

func TestLoginRejectsUnknownEmployeeNumber(t *testing.T) {
	svc, _ := newAuthService(t, &recordingAuditSink{})

	_, err := svc.Login(context.Background(), models.LoginRequest{EmployeeNumber: 7654321, Password: "whatever"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "unregistered employee number")
}

func TestLoginAuditsInvalidPassword(t *testing.T) {
	audits := &recordingAuditSink{}
	svc, _ := newAuthService(t, audits)

	_, err := svc.Login(context.Background(), models.LoginRequest{EmployeeNumber: 1234567, Password: "not-the-password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	require.Len(t, audits.messages, 1)
	assert.Contains(t, audits.messages[0], "invalid password")
}

func TestLoginRejectsShortPasswordBeforeCredentialCheck(t *testing.T) {
	audits := &recordingAuditSink{}
	svc, _ := newAuthService(t, audits)

	// Passwords are at least seven characters, so shorter input fails
	// schema validation without ever reaching the bcrypt comparison.
	_, err := svc.Login(context.Background(), models.LoginRequest{EmployeeNumber: 1234567, Password: "short"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, audits.messages)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc, _ := newAuthService(t, &recordingAuditSink{})

	result, err := svc.Login(context.Background(), models.LoginRequest{EmployeeNumber: 1234567, Password: "correct-horse"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(result.Token + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidToken.Code, appErrors.FromError(err).Code)
}

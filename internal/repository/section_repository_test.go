package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sf10-api/internal/models"
)

func newSectionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSectionRepositoryCreateWritesChildrenInOneTransaction(t *testing.T) {
	db, mock, cleanup := newSectionMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sections").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO section_students").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO section_students").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO section_teachers").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	chairman := "teacher-chair"
	section := &models.Section{
		IsRegular:       true,
		SchoolYear:      models.SchoolYear{Start: 2025, End: 2026},
		GradeLevel:      7,
		Number:          1,
		Name:            "Sampaguita",
		ChairmanID:      &chairman,
		Students:        []string{"student-1", "student-2"},
		SubjectTeachers: []models.SubjectTeacherEntry{{LearningArea: "Filipino", TeacherID: "teacher-1"}},
	}
	err := repo.Create(context.Background(), section)
	require.NoError(t, err)
	assert.NotEmpty(t, section.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryDeleteWithCleanup(t *testing.T) {
	db, mock, cleanup := newSectionMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	adviser := "teacher-adviser"
	section := &models.Section{
		ID:              "section-1",
		SchoolYear:      models.SchoolYear{Start: 2025, End: 2026},
		GradeLevel:      7,
		Number:          1,
		AdviserID:       &adviser,
		SubjectTeachers: []models.SubjectTeacherEntry{{LearningArea: "Filipino", TeacherID: "teacher-1"}},
	}

	mock.ExpectBegin()
	// Adviser has no other section this school year, so the assignment goes.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sections WHERE adviser_id")).
		WithArgs(adviser, "section-1", 2025).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("DELETE FROM teacher_assignments").
		WithArgs(adviser, models.CategoryAdviser).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The subject teacher still teaches elsewhere, so their assignment stays.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sections s")).
		WithArgs("teacher-1", "section-1", 2025).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("DELETE FROM section_students").
		WithArgs("section-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM section_teachers").
		WithArgs("section-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sections WHERE id = $1")).
		WithArgs("section-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.DeleteWithCleanup(context.Background(), section)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

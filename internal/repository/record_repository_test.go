package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sf10-api/internal/models"
)

func newRecordMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func recordRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id",
		"school.school_name", "school.school_id", "school.school_district", "school.school_division", "school.school_region",
		"grade_level", "section_label", "school_year.sy_start", "school_year.sy_end",
		"adviser", "gen_average", "scholastic_status", "completed", "created_at", "updated_at",
	}).AddRow(
		"rec-1", "student-1",
		"Mabini National High School", 301234, "District I", "City Division", "Region IV-A",
		7, "1-Sampaguita", 2025, 2026,
		"DELA CRUZ, MARIA", 0.0, "", false, time.Now(), time.Now(),
	)
}

func TestRecordRepositoryFindWithQuarterCount(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(array_length(rs.quarter_ratings, 1), 0) = $6")).
		WithArgs("student-1", 7, false, 2025, "Filipino", 1).
		WillReturnRows(recordRows())
	mock.ExpectQuery("FROM record_subjects WHERE record_id = .1 ORDER BY position").
		WithArgs("rec-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "record_id", "position", "learning_area", "quarter_ratings", "quarter_average", "remarks"}).
			AddRow("sub-1", "rec-1", 0, "Filipino", []byte("{88}"), 88.0, ""))

	record, err := repo.FindWithQuarterCount(context.Background(), "student-1", 7, 2025, "Filipino", 1, false)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", record.ID)
	assert.Equal(t, pq.Float64Array{88}, record.Subject("Filipino").QuarterRatings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryHasCompletedSubject(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("student-1", 7, "Filipino", models.QuartersPerYear).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	completed, err := repo.HasCompletedSubject(context.Background(), "student-1", 7, "Filipino")
	require.NoError(t, err)
	assert.True(t, completed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryCreateWritesSubjectsInOneTransaction(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO scholastic_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO record_subjects").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO record_subjects").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	record := &models.ScholasticRecord{
		OwnerID:      "student-1",
		School:       models.School{Name: "Mabini National High School", ID: 301234},
		GradeLevel:   7,
		SectionLabel: "1-Sampaguita",
		SchoolYear:   models.SchoolYear{Start: 2025, End: 2026},
		Adviser:      "DELA CRUZ, MARIA",
		Subjects: []models.SubjectRecord{
			{LearningArea: "Filipino", QuarterRatings: pq.Float64Array{90}},
			{LearningArea: "English", QuarterRatings: pq.Float64Array{87}},
		},
	}
	err := repo.Create(context.Background(), record)
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, record.ID, record.Subjects[0].RecordID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryUpdateKeepsSubjectIdentityAndOrder(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE scholastic_records SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM record_subjects").
		WithArgs("rec-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO record_subjects").
		WithArgs("sub-1", "rec-1", 0, "Filipino", pq.Float64Array{90, 92}, 91.0, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO record_subjects").
		WithArgs("sub-2", "rec-1", 1, "English", pq.Float64Array{87}, 87.0, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	record := &models.ScholasticRecord{
		ID:           "rec-1",
		OwnerID:      "student-1",
		School:       models.School{Name: "Mabini National High School", ID: 301234},
		GradeLevel:   7,
		SectionLabel: "1-Sampaguita",
		SchoolYear:   models.SchoolYear{Start: 2025, End: 2026},
		Subjects: []models.SubjectRecord{
			{ID: "sub-1", RecordID: "rec-1", LearningArea: "Filipino", QuarterRatings: pq.Float64Array{90, 92}, QuarterAverage: 91},
			{ID: "sub-2", RecordID: "rec-1", LearningArea: "English", QuarterRatings: pq.Float64Array{87}, QuarterAverage: 87},
		},
	}
	err := repo.Update(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", record.Subjects[0].ID)
	assert.Equal(t, "sub-2", record.Subjects[1].ID)
	assert.Equal(t, 0, record.Subjects[0].Position)
	assert.Equal(t, 1, record.Subjects[1].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryUpdateSubjectRatings(t *testing.T) {
	db, mock, cleanup := newRecordMock(t)
	defer cleanup()
	repo := NewRecordRepository(db)

	mock.ExpectExec("UPDATE record_subjects SET quarter_ratings").
		WithArgs("rec-1", "Filipino", pq.Array([]float64{90, 92}), 91.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateSubjectRatings(context.Background(), "rec-1", "Filipino", []float64{90, 92}, 91)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

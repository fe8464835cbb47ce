package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sf10-api/internal/models"
)

const recordColumns = `id, owner_id,
	school_name AS "school.school_name", school_id AS "school.school_id",
	school_district AS "school.school_district", school_division AS "school.school_division",
	school_region AS "school.school_region",
	grade_level, section_label,
	sy_start AS "school_year.sy_start", sy_end AS "school_year.sy_end",
	adviser, gen_average, scholastic_status, completed, created_at, updated_at`

// RecordRepository handles persistence of scholastic records and their
// per-subject quarter rating sequences.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository constructs the repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// FindByID returns a record with subjects loaded.
func (r *RecordRepository) FindByID(ctx context.Context, id string) (*models.ScholasticRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM scholastic_records WHERE id = $1`, recordColumns)
	var record models.ScholasticRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	if err := r.loadSubjects(ctx, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindOpen returns the single open (completed=false) record for the owner at
// the grade level and school year.
func (r *RecordRepository) FindOpen(ctx context.Context, ownerID string, gradeLevel, syStart int) (*models.ScholasticRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM scholastic_records
        WHERE owner_id = $1 AND grade_level = $2 AND sy_start = $3 AND completed = FALSE`, recordColumns)
	var record models.ScholasticRecord
	if err := r.db.GetContext(ctx, &record, query, ownerID, gradeLevel, syStart); err != nil {
		return nil, err
	}
	if err := r.loadSubjects(ctx, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindWithQuarterCount returns the record for the owner/grade level whose
// subject entry for the learning area has exactly the given number of
// ratings, filtered by completion state. Used to locate both the open record
// at the frontier and the promotion carry-forward source.
func (r *RecordRepository) FindWithQuarterCount(ctx context.Context, ownerID string, gradeLevel, syStart int, learningArea string, quarterCount int, completed bool) (*models.ScholasticRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM scholastic_records
        WHERE owner_id = $1 AND grade_level = $2 AND completed = $3
        AND ($4 = 0 OR sy_start = $4)
        AND EXISTS (
            SELECT 1 FROM record_subjects rs
            WHERE rs.record_id = scholastic_records.id
            AND rs.learning_area = $5
            AND COALESCE(array_length(rs.quarter_ratings, 1), 0) = $6
        )`, recordColumns)
	var record models.ScholasticRecord
	if err := r.db.GetContext(ctx, &record, query, ownerID, gradeLevel, completed, syStart, learningArea, quarterCount); err != nil {
		return nil, err
	}
	if err := r.loadSubjects(ctx, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// HasCompletedSubject reports whether any record for the owner at the grade
// level shows all four quarters present for the learning area.
func (r *RecordRepository) HasCompletedSubject(ctx context.Context, ownerID string, gradeLevel int, learningArea string) (bool, error) {
	const query = `SELECT EXISTS (
        SELECT 1 FROM scholastic_records sr
        JOIN record_subjects rs ON rs.record_id = sr.id
        WHERE sr.owner_id = $1 AND sr.grade_level = $2
        AND rs.learning_area = $3
        AND COALESCE(array_length(rs.quarter_ratings, 1), 0) >= $4
    )`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, ownerID, gradeLevel, learningArea, models.QuartersPerYear); err != nil {
		return false, fmt.Errorf("check completed subject: %w", err)
	}
	return exists, nil
}

// FindDuplicate returns a record matching the uniqueness tuple, excluding one
// ID when provided.
func (r *RecordRepository) FindDuplicate(ctx context.Context, ownerID string, schoolID, gradeLevel int, sectionLabel string, syStart int, excludeID string) (*models.ScholasticRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM scholastic_records
        WHERE owner_id = $1 AND school_id = $2 AND grade_level = $3 AND section_label = $4 AND sy_start = $5`, recordColumns)
	args := []interface{}{ownerID, schoolID, gradeLevel, sectionLabel, syStart}
	if excludeID != "" {
		query += " AND id <> $6"
		args = append(args, excludeID)
	}
	var record models.ScholasticRecord
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByOwner returns all records of a student, oldest grade level first.
func (r *RecordRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.ScholasticRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM scholastic_records WHERE owner_id = $1 ORDER BY grade_level, sy_start`, recordColumns)
	var records []models.ScholasticRecord
	if err := r.db.SelectContext(ctx, &records, query, ownerID); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	for i := range records {
		if err := r.loadSubjects(ctx, &records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// ExistsForStudentsAndYear reports whether any of the students own a record
// with the given school year start. Blocks section deletion.
func (r *RecordRepository) ExistsForStudentsAndYear(ctx context.Context, studentIDs []string, syStart int) (bool, error) {
	if len(studentIDs) == 0 {
		return false, nil
	}
	query, args, err := sqlx.In(`SELECT EXISTS (
        SELECT 1 FROM scholastic_records WHERE sy_start = ? AND owner_id IN (?)
    )`, syStart, studentIDs)
	if err != nil {
		return false, fmt.Errorf("build record existence query: %w", err)
	}
	var exists bool
	if err := r.db.GetContext(ctx, &exists, r.db.Rebind(query), args...); err != nil {
		return false, fmt.Errorf("check records for school year: %w", err)
	}
	return exists, nil
}

// Create persists a record and its subject rows atomically.
func (r *RecordRepository) Create(ctx context.Context, record *models.ScholasticRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create record: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `INSERT INTO scholastic_records (id, owner_id, school_name, school_id, school_district, school_division, school_region,
        grade_level, section_label, sy_start, sy_end, adviser, gen_average, scholastic_status, completed, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	if _, err := tx.ExecContext(ctx, query,
		record.ID, record.OwnerID,
		record.School.Name, record.School.ID, record.School.District, record.School.Division, record.School.Region,
		record.GradeLevel, record.SectionLabel, record.SchoolYear.Start, record.SchoolYear.End,
		record.Adviser, record.GenAverage, record.ScholasticStatus, record.Completed,
		record.CreatedAt, record.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	for i := range record.Subjects {
		if err := insertSubject(ctx, tx, record.ID, i, &record.Subjects[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Update overwrites a record's scalar fields and rewrites its subject rows.
// Subject IDs and slice order survive the rewrite.
func (r *RecordRepository) Update(ctx context.Context, record *models.ScholasticRecord) error {
	record.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update record: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `UPDATE scholastic_records SET school_name = $2, school_id = $3, school_district = $4, school_division = $5, school_region = $6,
        grade_level = $7, section_label = $8, sy_start = $9, sy_end = $10, adviser = $11, gen_average = $12,
        scholastic_status = $13, completed = $14, updated_at = $15 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query,
		record.ID,
		record.School.Name, record.School.ID, record.School.District, record.School.Division, record.School.Region,
		record.GradeLevel, record.SectionLabel, record.SchoolYear.Start, record.SchoolYear.End,
		record.Adviser, record.GenAverage, record.ScholasticStatus, record.Completed, record.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM record_subjects WHERE record_id = $1`, record.ID); err != nil {
		return fmt.Errorf("clear record subjects: %w", err)
	}
	for i := range record.Subjects {
		if err := insertSubject(ctx, tx, record.ID, i, &record.Subjects[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateSubjectRatings replaces the rating sequence of one subject entry.
func (r *RecordRepository) UpdateSubjectRatings(ctx context.Context, recordID, learningArea string, ratings []float64, average float64) error {
	const query = `UPDATE record_subjects SET quarter_ratings = $3, quarter_average = $4 WHERE record_id = $1 AND learning_area = $2`
	if _, err := r.db.ExecContext(ctx, query, recordID, learningArea, pq.Array(ratings), average); err != nil {
		return fmt.Errorf("update subject ratings: %w", err)
	}
	return nil
}

// loadSubjects fills record.Subjects in curriculum order. The position
// column preserves the order subjects were written with, independent of
// the random row IDs.
func (r *RecordRepository) loadSubjects(ctx context.Context, record *models.ScholasticRecord) error {
	const query = `SELECT id, record_id, position, learning_area, quarter_ratings, quarter_average, remarks
        FROM record_subjects WHERE record_id = $1 ORDER BY position`
	if err := r.db.SelectContext(ctx, &record.Subjects, query, record.ID); err != nil {
		return fmt.Errorf("load record subjects: %w", err)
	}
	return nil
}

func insertSubject(ctx context.Context, tx *sqlx.Tx, recordID string, position int, subject *models.SubjectRecord) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	subject.RecordID = recordID
	subject.Position = position
	const query = `INSERT INTO record_subjects (id, record_id, position, learning_area, quarter_ratings, quarter_average, remarks)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, query,
		subject.ID, recordID, subject.Position, subject.LearningArea, subject.QuarterRatings, subject.QuarterAverage, subject.Remarks,
	); err != nil {
		return fmt.Errorf("insert record subject: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sf10-api/internal/models"
)

const enrolleeColumns = `id, lrn,
	last_name AS "name.last_name", first_name AS "name.first_name",
	middle_name AS "name.middle_name", name_extension AS "name.name_extension",
	grade_level AS "classification.grade_level", section_number AS "classification.section_number",
	data_processed, created_at`

// EnrolleeRepository handles persistence of enrollees.
type EnrolleeRepository struct {
	db *sqlx.DB
}

// NewEnrolleeRepository constructs the repository.
func NewEnrolleeRepository(db *sqlx.DB) *EnrolleeRepository {
	return &EnrolleeRepository{db: db}
}

// FindByLRN returns the enrollee registered under the given LRN.
func (r *EnrolleeRepository) FindByLRN(ctx context.Context, lrn int64) (*models.Enrollee, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollees WHERE lrn = $1`, enrolleeColumns)
	var enrollee models.Enrollee
	if err := r.db.GetContext(ctx, &enrollee, query, lrn); err != nil {
		return nil, err
	}
	return &enrollee, nil
}

// FindByID returns an enrollee by its ID.
func (r *EnrolleeRepository) FindByID(ctx context.Context, id string) (*models.Enrollee, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollees WHERE id = $1`, enrolleeColumns)
	var enrollee models.Enrollee
	if err := r.db.GetContext(ctx, &enrollee, query, id); err != nil {
		return nil, err
	}
	return &enrollee, nil
}

// ListByClassification returns enrollees pinned to a grade level and section number.
func (r *EnrolleeRepository) ListByClassification(ctx context.Context, gradeLevel, sectionNumber int) ([]models.Enrollee, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollees WHERE grade_level = $1 AND section_number = $2`, enrolleeColumns)
	var enrollees []models.Enrollee
	if err := r.db.SelectContext(ctx, &enrollees, query, gradeLevel, sectionNumber); err != nil {
		return nil, fmt.Errorf("list enrollees by classification: %w", err)
	}
	return enrollees, nil
}

// Create persists a new enrollee.
func (r *EnrolleeRepository) Create(ctx context.Context, enrollee *models.Enrollee) error {
	if enrollee.ID == "" {
		enrollee.ID = uuid.NewString()
	}
	if enrollee.CreatedAt.IsZero() {
		enrollee.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollees (id, lrn, last_name, first_name, middle_name, name_extension, grade_level, section_number, data_processed, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := r.db.ExecContext(ctx, query,
		enrollee.ID, enrollee.LRN,
		enrollee.Name.Last, enrollee.Name.First, enrollee.Name.Middle, enrollee.Name.Extension,
		enrollee.Classification.GradeLevel, enrollee.Classification.SectionNumber,
		enrollee.DataProcessed, enrollee.CreatedAt,
	); err != nil {
		return fmt.Errorf("create enrollee: %w", err)
	}
	return nil
}

// SetDataProcessed flags an enrollee whose master data has been collected.
func (r *EnrolleeRepository) SetDataProcessed(ctx context.Context, id string, processed bool) error {
	const query = `UPDATE enrollees SET data_processed = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, processed); err != nil {
		return fmt.Errorf("update enrollee: %w", err)
	}
	return nil
}

// Delete removes an enrollee. Only pre-classification enrollees are deletable.
func (r *EnrolleeRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM enrollees WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete enrollee: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sf10-api/internal/models"
)

const studentColumns = `id, lrn,
	last_name AS "name.last_name", first_name AS "name.first_name",
	middle_name AS "name.middle_name", name_extension AS "name.name_extension",
	gender, birthdate, address, guardian, created_at, updated_at`

// StudentRepository handles persistence of student master data.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student by its ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByLRN returns the student registered under an LRN, optionally excluding
// one ID (used by update duplicate checks).
func (r *StudentRepository) FindByLRN(ctx context.Context, lrn int64, excludeID string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE lrn = $1`, studentColumns)
	args := []interface{}{lrn}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, args...); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByName returns the student registered under the exact structured name,
// optionally excluding one ID.
func (r *StudentRepository) FindByName(ctx context.Context, name models.PersonName, excludeID string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students
        WHERE last_name = $1 AND first_name = $2 AND middle_name = $3 AND name_extension = $4`, studentColumns)
	args := []interface{}{name.Last, name.First, name.Middle, name.Extension}
	if excludeID != "" {
		query += " AND id <> $5"
		args = append(args, excludeID)
	}
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, args...); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create persists a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, lrn, last_name, first_name, middle_name, name_extension, gender, birthdate, address, guardian, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := r.db.ExecContext(ctx, query,
		student.ID, student.LRN,
		student.Name.Last, student.Name.First, student.Name.Middle, student.Name.Extension,
		student.Gender, student.Birthdate, student.Address, student.Guardian,
		student.CreatedAt, student.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update overwrites a student's mutable master data.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET lrn = $2, last_name = $3, first_name = $4, middle_name = $5, name_extension = $6,
        gender = $7, birthdate = $8, address = $9, guardian = $10, updated_at = $11 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		student.ID, student.LRN,
		student.Name.Last, student.Name.First, student.Name.Middle, student.Name.Extension,
		student.Gender, student.Birthdate, student.Address, student.Guardian, student.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

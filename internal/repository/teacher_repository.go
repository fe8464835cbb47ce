package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sf10-api/internal/models"
)

const teacherColumns = `id, active, last_name, first_name, middle_name, birthdate, gender, employee_number, password_hash, created_at, updated_at`

// TeacherRepository handles persistence of teachers and their assignments.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs the repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindByID returns a teacher with assignments.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := fmt.Sprintf(`SELECT %s FROM teachers WHERE id = $1`, teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	if err := r.loadAssignments(ctx, &teacher); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByEmployeeNumber returns a teacher by the unique employee number.
func (r *TeacherRepository) FindByEmployeeNumber(ctx context.Context, employeeNumber int) (*models.Teacher, error) {
	query := fmt.Sprintf(`SELECT %s FROM teachers WHERE employee_number = $1`, teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, employeeNumber); err != nil {
		return nil, err
	}
	if err := r.loadAssignments(ctx, &teacher); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// List returns teachers matching the filter.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	var conditions []string
	var args []interface{}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(last_name ILIKE $%d OR first_name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToUpper(filter.Search)+"%")
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM teachers%s ORDER BY last_name, first_name LIMIT %d OFFSET %d`,
		teacherColumns, clause, size, offset)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}
	for i := range teachers {
		if err := r.loadAssignments(ctx, &teachers[i]); err != nil {
			return nil, 0, err
		}
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM teachers"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// Create persists a teacher and its assignments.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create teacher: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `INSERT INTO teachers (id, active, last_name, first_name, middle_name, birthdate, gender, employee_number, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := tx.ExecContext(ctx, query,
		teacher.ID, teacher.Active, teacher.LastName, teacher.FirstName, teacher.MiddleName,
		teacher.Birthdate, teacher.Gender, teacher.EmployeeNumber, teacher.PasswordHash,
		teacher.CreatedAt, teacher.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	if err := insertAssignments(ctx, tx, teacher.ID, teacher.Assignments); err != nil {
		return err
	}
	return tx.Commit()
}

// Update overwrites teacher master data and replaces its assignments.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update teacher: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `UPDATE teachers SET active = $2, last_name = $3, first_name = $4, middle_name = $5,
        birthdate = $6, gender = $7, employee_number = $8, updated_at = $9 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query,
		teacher.ID, teacher.Active, teacher.LastName, teacher.FirstName, teacher.MiddleName,
		teacher.Birthdate, teacher.Gender, teacher.EmployeeNumber, teacher.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM teacher_assignments WHERE teacher_id = $1`, teacher.ID); err != nil {
		return fmt.Errorf("clear teacher assignments: %w", err)
	}
	if err := insertAssignments(ctx, tx, teacher.ID, teacher.Assignments); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdatePassword replaces the stored password hash.
func (r *TeacherRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE teachers SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("update teacher password: %w", err)
	}
	return nil
}

func (r *TeacherRepository) loadAssignments(ctx context.Context, teacher *models.Teacher) error {
	const query = `SELECT id, teacher_id, category, grade_levels FROM teacher_assignments WHERE teacher_id = $1`
	if err := r.db.SelectContext(ctx, &teacher.Assignments, query, teacher.ID); err != nil {
		return fmt.Errorf("load teacher assignments: %w", err)
	}
	return nil
}

func insertAssignments(ctx context.Context, tx *sqlx.Tx, teacherID string, assignments []models.TeacherAssignment) error {
	const query = `INSERT INTO teacher_assignments (id, teacher_id, category, grade_levels) VALUES ($1, $2, $3, $4)`
	for i := range assignments {
		if assignments[i].ID == "" {
			assignments[i].ID = uuid.NewString()
		}
		assignments[i].TeacherID = teacherID
		if _, err := tx.ExecContext(ctx, query,
			assignments[i].ID, teacherID, assignments[i].Category, pq.Array(assignments[i].GradeLevels),
		); err != nil {
			return fmt.Errorf("insert teacher assignment: %w", err)
		}
	}
	return nil
}

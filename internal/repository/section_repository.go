package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sf10-api/internal/models"
)

const sectionColumns = `id, is_regular,
	sy_start AS "school_year.sy_start", sy_end AS "school_year.sy_end",
	grade_level, number, name, adviser_id, chairman_id`

// SectionRepository handles persistence of sections, their membership and
// their subject teacher roster.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// FindByID returns a section with members and subject teachers loaded.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections WHERE id = $1`, sectionColumns)
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, &section); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindByTuple returns the section identified by the unique
// (grade_level, number, school_year) tuple.
func (r *SectionRepository) FindByTuple(ctx context.Context, gradeLevel, number, syStart, syEnd int) (*models.Section, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections WHERE grade_level = $1 AND number = $2 AND sy_start = $3 AND sy_end = $4`, sectionColumns)
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, gradeLevel, number, syStart, syEnd); err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, &section); err != nil {
		return nil, err
	}
	return &section, nil
}

// List returns sections matching the filter, children loaded.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, error) {
	var conditions []string
	var args []interface{}
	if filter.GradeLevel > 0 {
		conditions = append(conditions, fmt.Sprintf("grade_level = $%d", len(args)+1))
		args = append(args, filter.GradeLevel)
	}
	if filter.SYStart > 0 {
		conditions = append(conditions, fmt.Sprintf("sy_start = $%d", len(args)+1))
		args = append(args, filter.SYStart)
	}
	if filter.AdviserID != "" {
		conditions = append(conditions, fmt.Sprintf("adviser_id = $%d", len(args)+1))
		args = append(args, filter.AdviserID)
	}
	if filter.ChairmanID != "" {
		conditions = append(conditions, fmt.Sprintf("chairman_id = $%d", len(args)+1))
		args = append(args, filter.ChairmanID)
	}
	if filter.Regular != nil {
		conditions = append(conditions, fmt.Sprintf("is_regular = $%d", len(args)+1))
		args = append(args, *filter.Regular)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("id IN (SELECT section_id FROM section_students WHERE student_id = $%d)", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("id IN (SELECT section_id FROM section_teachers WHERE teacher_id = $%d)", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	query := fmt.Sprintf(`SELECT %s FROM sections%s ORDER BY grade_level, number`, sectionColumns, clause)
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	for i := range sections {
		if err := r.loadChildren(ctx, &sections[i]); err != nil {
			return nil, err
		}
	}
	return sections, nil
}

// ListForTeacher returns the sections a teacher touches for the school year
// ending in yearNow or yearNow+1, in any of the three capacities.
func (r *SectionRepository) ListForTeacher(ctx context.Context, teacherID string, yearNow int) (advisory, chairman, teaching []models.Section, err error) {
	advisory, err = r.listByRoleColumn(ctx, "adviser_id", teacherID, yearNow)
	if err != nil {
		return nil, nil, nil, err
	}
	chairman, err = r.listByRoleColumn(ctx, "chairman_id", teacherID, yearNow)
	if err != nil {
		return nil, nil, nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM sections
        WHERE id IN (SELECT section_id FROM section_teachers WHERE teacher_id = $1)
        AND (sy_end = $2 OR sy_end = $3)`, sectionColumns)
	if err = r.db.SelectContext(ctx, &teaching, query, teacherID, yearNow, yearNow+1); err != nil {
		return nil, nil, nil, fmt.Errorf("list teaching sections: %w", err)
	}
	for _, group := range [][]models.Section{advisory, chairman, teaching} {
		for i := range group {
			if err = r.loadChildren(ctx, &group[i]); err != nil {
				return nil, nil, nil, err
			}
		}
	}
	return advisory, chairman, teaching, nil
}

// FindForGradeEncoding resolves the section where the student is a member and
// the acting teacher is the registered subject teacher for the learning area,
// for the school year ending in yearNow or yearNow+1.
func (r *SectionRepository) FindForGradeEncoding(ctx context.Context, studentID, teacherID, learningArea string, yearNow int) (*models.Section, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections
        WHERE (sy_end = $1 OR sy_end = $2)
        AND EXISTS (SELECT 1 FROM section_students ss WHERE ss.section_id = sections.id AND ss.student_id = $3)
        AND EXISTS (SELECT 1 FROM section_teachers st WHERE st.section_id = sections.id AND st.teacher_id = $4 AND st.learning_area = $5)`,
		sectionColumns)
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, yearNow, yearNow+1, studentID, teacherID, learningArea); err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, &section); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindByStudentAndYear returns any section containing the student for the
// given school year start, used by the single-classification check.
func (r *SectionRepository) FindByStudentAndYear(ctx context.Context, studentID string, syStart int) (*models.Section, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections
        WHERE sy_start = $1 AND id IN (SELECT section_id FROM section_students WHERE student_id = $2)`, sectionColumns)
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, syStart, studentID); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindRegularByStudent returns the regular section a student belongs to.
func (r *SectionRepository) FindRegularByStudent(ctx context.Context, studentID string) (*models.Section, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections
        WHERE is_regular = TRUE AND id IN (SELECT section_id FROM section_students WHERE student_id = $1)`, sectionColumns)
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, studentID); err != nil {
		return nil, err
	}
	return &section, nil
}

// Create persists a section with its members and subject teachers atomically.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create section: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `INSERT INTO sections (id, is_regular, sy_start, sy_end, grade_level, number, name, adviser_id, chairman_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := tx.ExecContext(ctx, query,
		section.ID, section.IsRegular, section.SchoolYear.Start, section.SchoolYear.End,
		section.GradeLevel, section.Number, section.Name, section.AdviserID, section.ChairmanID,
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	for _, studentID := range section.Students {
		if _, err := tx.ExecContext(ctx, `INSERT INTO section_students (section_id, student_id) VALUES ($1, $2)`, section.ID, studentID); err != nil {
			return fmt.Errorf("add section student: %w", err)
		}
	}
	for _, entry := range section.SubjectTeachers {
		if _, err := tx.ExecContext(ctx, `INSERT INTO section_teachers (section_id, learning_area, teacher_id) VALUES ($1, $2, $3)`, section.ID, entry.LearningArea, entry.TeacherID); err != nil {
			return fmt.Errorf("add section teacher: %w", err)
		}
	}
	return tx.Commit()
}

// Update overwrites the section's scalar fields.
func (r *SectionRepository) Update(ctx context.Context, section *models.Section) error {
	const query = `UPDATE sections SET is_regular = $2, sy_start = $3, sy_end = $4, grade_level = $5, number = $6, name = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		section.ID, section.IsRegular, section.SchoolYear.Start, section.SchoolYear.End,
		section.GradeLevel, section.Number, section.Name,
	); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// SetAdviser records the section adviser.
func (r *SectionRepository) SetAdviser(ctx context.Context, sectionID string, teacherID *string) error {
	const query = `UPDATE sections SET adviser_id = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, sectionID, teacherID); err != nil {
		return fmt.Errorf("set section adviser: %w", err)
	}
	return nil
}

// AddSubjectTeacher appends a (learning_area, teacher) pair.
func (r *SectionRepository) AddSubjectTeacher(ctx context.Context, sectionID, learningArea, teacherID string) error {
	const query = `INSERT INTO section_teachers (section_id, learning_area, teacher_id) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, sectionID, learningArea, teacherID); err != nil {
		return fmt.Errorf("add subject teacher: %w", err)
	}
	return nil
}

// RemoveSubjectTeacher removes the pair for the learning area.
func (r *SectionRepository) RemoveSubjectTeacher(ctx context.Context, sectionID, learningArea string) error {
	const query = `DELETE FROM section_teachers WHERE section_id = $1 AND learning_area = $2`
	if _, err := r.db.ExecContext(ctx, query, sectionID, learningArea); err != nil {
		return fmt.Errorf("remove subject teacher: %w", err)
	}
	return nil
}

// RemoveStudent detaches a student from the section membership list.
func (r *SectionRepository) RemoveStudent(ctx context.Context, sectionID, studentID string) error {
	const query = `DELETE FROM section_students WHERE section_id = $1 AND student_id = $2`
	if _, err := r.db.ExecContext(ctx, query, sectionID, studentID); err != nil {
		return fmt.Errorf("remove section student: %w", err)
	}
	return nil
}

func (r *SectionRepository) listByRoleColumn(ctx context.Context, column, teacherID string, yearNow int) ([]models.Section, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections WHERE %s = $1 AND (sy_end = $2 OR sy_end = $3)`, sectionColumns, column)
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, teacherID, yearNow, yearNow+1); err != nil {
		return nil, fmt.Errorf("list %s sections: %w", column, err)
	}
	return sections, nil
}

// DeleteWithCleanup removes the section and, inside the same transaction,
// drops the Adviser / Subject Teacher assignment category of teachers left
// with no other section in the school year. Either everything commits or
// nothing does.
func (r *SectionRepository) DeleteWithCleanup(ctx context.Context, section *models.Section) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete section: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if section.AdviserID != nil {
		if err := cleanupAssignment(ctx, tx, *section.AdviserID, section, "adviser"); err != nil {
			return err
		}
	}
	seen := make(map[string]bool, len(section.SubjectTeachers))
	for _, entry := range section.SubjectTeachers {
		if seen[entry.TeacherID] {
			continue
		}
		seen[entry.TeacherID] = true
		if err := cleanupAssignment(ctx, tx, entry.TeacherID, section, "subject"); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM section_students WHERE section_id = $1`, section.ID); err != nil {
		return fmt.Errorf("delete section students: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM section_teachers WHERE section_id = $1`, section.ID); err != nil {
		return fmt.Errorf("delete section teachers: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, section.ID); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return tx.Commit()
}

// cleanupAssignment drops the teacher's role assignment category when no
// other section of the same school year still references them in that role.
func cleanupAssignment(ctx context.Context, tx *sqlx.Tx, teacherID string, section *models.Section, role string) error {
	var query string
	var category models.AssignmentCategory
	switch role {
	case "adviser":
		query = `SELECT COUNT(*) FROM sections WHERE adviser_id = $1 AND id <> $2 AND sy_start = $3`
		category = models.CategoryAdviser
	default:
		query = `SELECT COUNT(*) FROM sections s
            JOIN section_teachers st ON st.section_id = s.id
            WHERE st.teacher_id = $1 AND s.id <> $2 AND s.sy_start = $3`
		category = models.CategorySubjectTeacher
	}
	var count int
	if err := tx.GetContext(ctx, &count, query, teacherID, section.ID, section.SchoolYear.Start); err != nil {
		return fmt.Errorf("count %s sections: %w", role, err)
	}
	if count > 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM teacher_assignments WHERE teacher_id = $1 AND category = $2`, teacherID, category); err != nil {
		return fmt.Errorf("remove %s assignment: %w", role, err)
	}
	return nil
}

func (r *SectionRepository) loadChildren(ctx context.Context, section *models.Section) error {
	if err := r.db.SelectContext(ctx, &section.Students,
		`SELECT student_id FROM section_students WHERE section_id = $1`, section.ID); err != nil {
		return fmt.Errorf("load section students: %w", err)
	}
	if err := r.db.SelectContext(ctx, &section.SubjectTeachers,
		`SELECT learning_area, teacher_id FROM section_teachers WHERE section_id = $1`, section.ID); err != nil {
		return fmt.Errorf("load section teachers: %w", err)
	}
	return nil
}

package models

import (
	"fmt"
	"time"

	"github.com/lib/pq"
)

// AssignmentCategory classifies a teacher's role within the school.
type AssignmentCategory string

// Assignment categories recognised by the authorization layer.
const (
	CategorySubjectTeacher AssignmentCategory = "Subject Teacher"
	CategoryAdviser        AssignmentCategory = "Adviser"
	CategoryChairman       AssignmentCategory = "Curriculum Chairman"
	CategoryRegistrar      AssignmentCategory = "Registrar"
	CategoryAdmin          AssignmentCategory = "Admin"
)

// Role levels consumed by the route access table. Index order matters: the
// access mask for each route is indexed by these values.
const (
	RoleSubjectTeacher = 0
	RoleAdviser        = 1
	RoleChairman       = 2
	RoleRegistrar      = 3
	RoleAdmin          = 4
)

// RoleLevel maps an assignment category to its authorization level.
func (c AssignmentCategory) RoleLevel() int {
	switch c {
	case CategoryAdviser:
		return RoleAdviser
	case CategoryChairman:
		return RoleChairman
	case CategoryRegistrar:
		return RoleRegistrar
	case CategoryAdmin:
		return RoleAdmin
	default:
		return RoleSubjectTeacher
	}
}

// Valid reports whether the category is one of the known assignment kinds.
func (c AssignmentCategory) Valid() bool {
	switch c {
	case CategorySubjectTeacher, CategoryAdviser, CategoryChairman, CategoryRegistrar, CategoryAdmin:
		return true
	}
	return false
}

// TeacherAssignment grants a teacher one role category scoped to grade levels.
type TeacherAssignment struct {
	ID          string             `db:"id" json:"id"`
	TeacherID   string             `db:"teacher_id" json:"-"`
	Category    AssignmentCategory `db:"category" json:"category"`
	GradeLevels pq.Int64Array      `db:"grade_levels" json:"grade_levels"`
}

// Teacher represents a faculty member and system user.
type Teacher struct {
	ID             string    `db:"id" json:"id"`
	Active         bool      `db:"active" json:"active"`
	LastName       string    `db:"last_name" json:"last_name"`
	FirstName      string    `db:"first_name" json:"first_name"`
	MiddleName     string    `db:"middle_name" json:"middle_name"`
	Birthdate      time.Time `db:"birthdate" json:"birthdate"`
	Gender         string    `db:"gender" json:"gender"`
	EmployeeNumber int       `db:"employee_number" json:"employee_number"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`

	Assignments []TeacherAssignment `db:"-" json:"assignments"`
}

// FullName renders "LAST, FIRST MIDDLE" falling back to the middle name when
// the last name is empty, matching the legacy display rules.
func (t *Teacher) FullName() string {
	last := t.LastName
	middle := t.MiddleName
	if last == "" {
		last = t.MiddleName
		middle = ""
	}
	if middle != "" {
		return fmt.Sprintf("%s, %s %s", last, t.FirstName, middle)
	}
	return fmt.Sprintf("%s, %s", last, t.FirstName)
}

// FormattedEmployeeNumber zero-pads the employee number to seven digits.
func (t *Teacher) FormattedEmployeeNumber() string {
	return fmt.Sprintf("%07d", t.EmployeeNumber)
}

// RoleLevels derives the authorization levels carried in the teacher's token.
func (t *Teacher) RoleLevels() []int {
	if len(t.Assignments) == 0 {
		return []int{RoleSubjectTeacher}
	}
	levels := make([]int, 0, len(t.Assignments))
	for _, assignment := range t.Assignments {
		levels = append(levels, assignment.Category.RoleLevel())
	}
	return levels
}

// TeacherFilter restricts teacher listings.
type TeacherFilter struct {
	Search   string
	Active   *bool
	Category AssignmentCategory
	Page     int
	PageSize int
}

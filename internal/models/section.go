package models

import "strconv"

// LearningAreas is the fixed junior-high curriculum. Subject teacher
// assignments and grade encoding both validate against this list.
var LearningAreas = []string{
	"Filipino",
	"English",
	"Mathematics",
	"Science",
	"Araling Panlipunan (AP)",
	"Edukasyon sa Pagpapakatao (EsP)",
	"Technology and Livelihood Education (TLE)",
	"MAPEH",
	"Music",
	"Arts",
	"Physical Education",
	"Health",
}

// IsLearningArea reports whether the subject is part of the curriculum.
func IsLearningArea(subject string) bool {
	for _, area := range LearningAreas {
		if area == subject {
			return true
		}
	}
	return false
}

// Grade level bounds of the junior-high program.
const (
	GradeLevelFloor   = 7
	GradeLevelCeiling = 10
)

// SchoolYear identifies one academic year by its start and end calendar years.
type SchoolYear struct {
	Start int `db:"sy_start" json:"start" validate:"required"`
	End   int `db:"sy_end" json:"end" validate:"required"`
}

// SubjectTeacherEntry binds one learning area of a section to a teacher.
type SubjectTeacherEntry struct {
	LearningArea string `db:"learning_area" json:"learning_area"`
	TeacherID    string `db:"teacher_id" json:"teacher_id"`
}

// Section is one classroom unit for a (grade_level, number, school_year) tuple.
type Section struct {
	ID         string     `db:"id" json:"id"`
	IsRegular  bool       `db:"is_regular" json:"isRegular"`
	SchoolYear SchoolYear `db:"school_year" json:"school_year"`
	GradeLevel int        `db:"grade_level" json:"grade_level"`
	Number     int        `db:"number" json:"number"`
	Name       string     `db:"name" json:"name,omitempty"`
	AdviserID  *string    `db:"adviser_id" json:"adviser_id,omitempty"`
	ChairmanID *string    `db:"chairman_id" json:"chairman_id,omitempty"`

	SubjectTeachers []SubjectTeacherEntry `db:"-" json:"subject_teachers"`
	Students        []string              `db:"-" json:"students"`
}

// Label renders the "number-name" string stamped onto scholastic records.
func (s *Section) Label() string {
	if s.Name == "" {
		return strconv.Itoa(s.Number)
	}
	return strconv.Itoa(s.Number) + "-" + s.Name
}

// SectionFilter restricts section listings.
type SectionFilter struct {
	GradeLevel int
	SYStart    int
	AdviserID  string
	ChairmanID string
	TeacherID  string
	StudentID  string
	Regular    *bool
}

package models

import (
	"fmt"
	"strings"
	"time"
)

// MaxLRN bounds the learner reference number at twelve digits.
const MaxLRN = 999999999999

// PersonName is the structured name shared by enrollees and students.
// Components are stored uppercase and trimmed.
type PersonName struct {
	Last      string `db:"last_name" json:"last" validate:"required,min=2,max=20"`
	First     string `db:"first_name" json:"first" validate:"required,min=2,max=50"`
	Middle    string `db:"middle_name" json:"middle" validate:"required,min=2,max=20"`
	Extension string `db:"name_extension" json:"extension,omitempty" validate:"omitempty,len=3"`
}

// Normalize uppercases and trims every name component.
func (n *PersonName) Normalize() {
	n.Last = strings.ToUpper(strings.TrimSpace(n.Last))
	n.First = strings.ToUpper(strings.TrimSpace(n.First))
	n.Middle = strings.ToUpper(strings.TrimSpace(n.Middle))
	n.Extension = strings.ToUpper(strings.TrimSpace(n.Extension))
}

// Full renders "LAST, FIRST MIDDLE EXT" for display and audit messages.
func (n PersonName) Full() string {
	full := fmt.Sprintf("%s, %s %s", n.Last, n.First, n.Middle)
	if n.Extension != "" {
		full += " " + n.Extension
	}
	return full
}

// FormatLRN zero-pads a learner reference number to twelve digits for display.
func FormatLRN(lrn int64) string {
	return fmt.Sprintf("%012d", lrn)
}

// Classification pins an enrollee to a grade level and section number before
// the enrollee is attached to a section document.
type Classification struct {
	GradeLevel    *int `db:"grade_level" json:"grade_level,omitempty"`
	SectionNumber *int `db:"section_number" json:"section,omitempty"`
}

// Enrollee is a newly registered learner awaiting full student data.
type Enrollee struct {
	ID             string         `db:"id" json:"id"`
	LRN            int64          `db:"lrn" json:"lrn"`
	Name           PersonName     `db:"name" json:"name"`
	Classification Classification `db:"classification" json:"classification"`
	DataProcessed  bool           `db:"data_processed" json:"data_processed"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// Student carries the full demographic master data collected after enrollment.
// Students are never hard-deleted.
type Student struct {
	ID        string     `db:"id" json:"id"`
	LRN       int64      `db:"lrn" json:"lrn"`
	Name      PersonName `db:"name" json:"name"`
	Gender    string     `db:"gender" json:"gender"`
	Birthdate time.Time  `db:"birthdate" json:"birthdate"`
	Address   string     `db:"address" json:"address"`
	Guardian  string     `db:"guardian" json:"guardian"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// HandledStudent is the roster row returned to a teacher: the students and
// enrollees visible through the teacher's advisory, chairman and teaching
// sections.
type HandledStudent struct {
	ID         string `json:"id"`
	LRN        string `json:"lrn"`
	Name       string `json:"name"`
	GradeLevel int    `json:"grade"`
	Section    int    `json:"section"`
}

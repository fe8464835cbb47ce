package models

import (
	"time"

	"github.com/lib/pq"
)

// QuartersPerYear is the number of grading periods that close a record.
const QuartersPerYear = 4

// PlaceholderRating seeds newly opened records. The legacy encoder wrote this
// provisional value into every curriculum subject before overwriting the
// target subject with the submitted grade; the behaviour is kept for
// compatibility with records produced by that system.
const PlaceholderRating = 87

// School is the institution block stamped onto a scholastic record.
type School struct {
	Name     string `db:"school_name" json:"name"`
	ID       int    `db:"school_id" json:"id"`
	District string `db:"school_district" json:"district"`
	Division string `db:"school_division" json:"division"`
	Region   string `db:"school_region" json:"region"`
}

// SubjectRecord holds the ordered quarter ratings for one learning area.
// The rating slice is append-only: its length is the number of quarters
// encoded so far and index n-1 holds quarter n.
type SubjectRecord struct {
	ID             string          `db:"id" json:"-"`
	RecordID       string          `db:"record_id" json:"-"`
	Position       int             `db:"position" json:"-"`
	LearningArea   string          `db:"learning_area" json:"learning_area"`
	QuarterRatings pq.Float64Array `db:"quarter_ratings" json:"quarter_rating"`
	QuarterAverage float64         `db:"quarter_average" json:"quarter_rating_ave"`
	Remarks        string          `db:"remarks" json:"remarks"`
}

// EncodedQuarters returns the frontier: how many quarters are recorded.
func (s *SubjectRecord) EncodedQuarters() int {
	return len(s.QuarterRatings)
}

// Completed reports whether all four quarters are present.
func (s *SubjectRecord) Completed() bool {
	return len(s.QuarterRatings) >= QuartersPerYear
}

// RecomputeAverage refreshes the derived quarter average.
func (s *SubjectRecord) RecomputeAverage() {
	if len(s.QuarterRatings) == 0 {
		s.QuarterAverage = 0
		return
	}
	var sum float64
	for _, rating := range s.QuarterRatings {
		sum += rating
	}
	s.QuarterAverage = sum / float64(len(s.QuarterRatings))
}

// ScholasticRecord is one student's per-school-year, per-grade-level academic
// record (the SF10 page). At most one record per (owner, grade_level,
// sy_start) is open (completed=false) and accepting grade writes.
type ScholasticRecord struct {
	ID               string     `db:"id" json:"id"`
	OwnerID          string     `db:"owner_id" json:"owner_id"`
	School           School     `db:"school" json:"school"`
	GradeLevel       int        `db:"grade_level" json:"grade_level"`
	SectionLabel     string     `db:"section_label" json:"section"`
	SchoolYear       SchoolYear `db:"school_year" json:"school_year"`
	Adviser          string     `db:"adviser" json:"adviser"`
	GenAverage       float64    `db:"gen_average" json:"gen_average"`
	ScholasticStatus string     `db:"scholastic_status" json:"scholastic_status,omitempty"`
	Completed        bool       `db:"completed" json:"completed"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`

	Subjects []SubjectRecord `db:"-" json:"subjects"`
}

// Subject returns the subject entry for a learning area, or nil.
func (r *ScholasticRecord) Subject(learningArea string) *SubjectRecord {
	for i := range r.Subjects {
		if r.Subjects[i].LearningArea == learningArea {
			return &r.Subjects[i]
		}
	}
	return nil
}

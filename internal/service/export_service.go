package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sf10-api/internal/models"
	"github.com/noah-isme/sf10-api/pkg/config"
	appErrors "github.com/noah-isme/sf10-api/pkg/errors"
	"github.com/noah-isme/sf10-api/pkg/export"
)

type exportRecordRepository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.ScholasticRecord, error)
	FindOpen(ctx context.Context, ownerID string, gradeLevel, syStart int) (*models.ScholasticRecord, error)
}

type exportSectionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	FindRegularByStudent(ctx context.Context, studentID string) (*models.Section, error)
}

type exportStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type exportEnrolleeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollee, error)
}

// Export is a rendered download: bytes plus the filename and MIME type the
// handler writes out.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the printable school forms: the SF10 permanent record
// and report card as PDF, and the SF1 school register as CSV.
type ExportService struct {
	records   exportRecordRepository
	sections  exportSectionRepository
	students  exportStudentRepository
	enrollees exportEnrolleeRepository
	pdf       *export.PDFExporter
	csv       *export.CSVExporter
	school    config.SchoolConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs ExportService.
func NewExportService(records exportRecordRepository, sections exportSectionRepository, students exportStudentRepository, enrollees exportEnrolleeRepository, school config.SchoolConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		records:   records,
		sections:  sections,
		students:  students,
		enrollees: enrollees,
		pdf:       export.NewPDFExporter(),
		csv:       export.NewCSVExporter(),
		school:    school,
		logger:    logger,
		now:       time.Now,
	}
}

// SF10 renders the student's full permanent record: one table block per
// scholastic record, oldest grade level first.
func (s *ExportService) SF10(ctx context.Context, studentID string) (*Export, error) {
	student, err := s.resolveStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	records, err := s.records.ListByOwner(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scholastic records")
	}
	if len(records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no scholastic records")
	}

	data := export.Dataset{
		Headers: []string{"School Year", "Grade", "Section", "Learning Area", "Q1", "Q2", "Q3", "Q4", "Final", "Remarks"},
	}
	for i := range records {
		record := &records[i]
		year := fmt.Sprintf("%d-%d", record.SchoolYear.Start, record.SchoolYear.End)
		for j := range record.Subjects {
			subject := &record.Subjects[j]
			row := map[string]string{
				"School Year":   year,
				"Grade":         strconv.Itoa(record.GradeLevel),
				"Section":       record.SectionLabel,
				"Learning Area": subject.LearningArea,
				"Final":         formatRating(subject.QuarterAverage),
				"Remarks":       subject.Remarks,
			}
			for q := 0; q < models.QuartersPerYear; q++ {
				key := fmt.Sprintf("Q%d", q+1)
				if q < len(subject.QuarterRatings) {
					row[key] = formatRating(subject.QuarterRatings[q])
				} else {
					row[key] = ""
				}
			}
			data.Rows = append(data.Rows, row)
		}
	}

	pdf, err := s.pdf.Render(data, "Learner's Permanent Academic Record (SF10)",
		fmt.Sprintf("Learner: %s", student.Name.Full()),
		fmt.Sprintf("LRN: %s", models.FormatLRN(student.LRN)),
		s.schoolLine(),
	)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render sf10")
	}
	return &Export{
		Filename:    fmt.Sprintf("sf10-%s.pdf", models.FormatLRN(student.LRN)),
		ContentType: "application/pdf",
		Data:        pdf,
	}, nil
}

// ReportCard renders the student's current open record for the school year.
func (s *ExportService) ReportCard(ctx context.Context, studentID string) (*Export, error) {
	student, err := s.resolveStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	section, err := s.sections.FindRegularByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not classified to a section")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve section")
	}
	record, err := s.records.FindOpen(ctx, studentID, section.GradeLevel, section.SchoolYear.Start)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no open scholastic record")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scholastic record")
	}

	data := export.Dataset{
		Headers: []string{"Learning Area", "Q1", "Q2", "Q3", "Q4", "Final"},
	}
	for i := range record.Subjects {
		subject := &record.Subjects[i]
		row := map[string]string{
			"Learning Area": subject.LearningArea,
			"Final":         formatRating(subject.QuarterAverage),
		}
		for q := 0; q < models.QuartersPerYear; q++ {
			key := fmt.Sprintf("Q%d", q+1)
			if q < len(subject.QuarterRatings) {
				row[key] = formatRating(subject.QuarterRatings[q])
			} else {
				row[key] = ""
			}
		}
		data.Rows = append(data.Rows, row)
	}

	pdf, err := s.pdf.Render(data, "Report Card",
		fmt.Sprintf("Learner: %s", student.Name.Full()),
		fmt.Sprintf("Grade %d - %s, S.Y. %d-%d", record.GradeLevel, record.SectionLabel, record.SchoolYear.Start, record.SchoolYear.End),
		fmt.Sprintf("Adviser: %s", record.Adviser),
	)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report card")
	}
	return &Export{
		Filename:    fmt.Sprintf("report-card-%s.pdf", models.FormatLRN(student.LRN)),
		ContentType: "application/pdf",
		Data:        pdf,
	}, nil
}

// SF1 renders the section's school register roster as CSV.
func (s *ExportService) SF1(ctx context.Context, sectionID string) (*Export, error) {
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section with the given id cannot be found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	data := export.Dataset{
		Headers: []string{"LRN", "Name", "Gender", "Birthdate", "Address", "Guardian"},
	}
	for _, memberID := range section.Students {
		row, err := s.registerRow(ctx, memberID)
		if err != nil {
			return nil, err
		}
		if row != nil {
			data.Rows = append(data.Rows, row)
		}
	}

	csvBytes, err := s.csv.Render(data,
		"School Register (SF1)",
		s.schoolLine(),
		fmt.Sprintf("Grade %d - %s, S.Y. %d-%d", section.GradeLevel, section.Label(), section.SchoolYear.Start, section.SchoolYear.End),
	)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render sf1")
	}
	return &Export{
		Filename:    fmt.Sprintf("sf1-grade%d-%s.csv", section.GradeLevel, section.Label()),
		ContentType: "text/csv",
		Data:        csvBytes,
	}, nil
}

// registerRow builds one SF1 line. Members without processed student data
// fall back to the enrollee row; unknown references are skipped.
func (s *ExportService) registerRow(ctx context.Context, memberID string) (map[string]string, error) {
	student, err := s.students.FindByID(ctx, memberID)
	if err == nil {
		return map[string]string{
			"LRN":       models.FormatLRN(student.LRN),
			"Name":      student.Name.Full(),
			"Gender":    student.Gender,
			"Birthdate": student.Birthdate.Format("2006-01-02"),
			"Address":   student.Address,
			"Guardian":  student.Guardian,
		}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	enrollee, err := s.enrollees.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollee")
	}
	return map[string]string{
		"LRN":  models.FormatLRN(enrollee.LRN),
		"Name": enrollee.Name.Full(),
	}, nil
}

func (s *ExportService) resolveStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student with the given id cannot be found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *ExportService) schoolLine() string {
	return fmt.Sprintf("%s (%d), District %s, Division %s, Region %s", s.school.Name, s.school.ID, s.school.District, s.school.Division, s.school.Region)
}

func formatRating(value float64) string {
	if value == 0 {
		return ""
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

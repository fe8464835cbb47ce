package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sf10-api/internal/middleware"
	"github.com/noah-isme/sf10-api/internal/service"
	appErrors "github.com/noah-isme/sf10-api/pkg/errors"
	"github.com/noah-isme/sf10-api/pkg/response"
)

// StudentHandler exposes student master data, scholastic record and grade
// encoding endpoints.
type StudentHandler struct {
	students *service.StudentService
	records  *service.RecordService
	grades   *service.GradeService
	exports  *service.ExportService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService, records *service.RecordService, grades *service.GradeService, exports *service.ExportService) *StudentHandler {
	return &StudentHandler{students: students, records: records, grades: grades, exports: exports}
}

// Handled godoc
// @Summary List the requester's handled students
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) Handled(c *gin.Context) {
	roster, err := h.students.HandledStudents(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// Get godoc
// @Summary Get a student with scholastic records
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.records.ListByStudent(c.Request.Context(), student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"student": student, "records": records}, nil)
}

// Register godoc
// @Summary Register student master data
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.RegisterStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Register(c *gin.Context) {
	var req service.RegisterStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Register(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student master data
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.RegisterStudentRequest true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.RegisterStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// AddRecord godoc
// @Summary Add a transcribed scholastic record
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.SaveRecordRequest true "Record payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id} [post]
func (h *StudentHandler) AddRecord(c *gin.Context) {
	var req service.SaveRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.records.Add(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// EditRecord godoc
// @Summary Edit a scholastic record
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param recordId path string true "Record ID"
// @Param payload body service.SaveRecordRequest true "Record payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/records/{recordId} [put]
func (h *StudentHandler) EditRecord(c *gin.Context) {
	var req service.SaveRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.records.Edit(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), c.Param("recordId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// EncodeGrade godoc
// @Summary Encode a quarter grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.EncodeGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/grades [post]
func (h *StudentHandler) EncodeGrade(c *gin.Context) {
	var req service.EncodeGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.grades.Encode(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// UnencodeGrade godoc
// @Summary Retract the most recent quarter grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UnencodeGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/grades [delete]
func (h *StudentHandler) UnencodeGrade(c *gin.Context) {
	var req service.UnencodeGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.grades.Unencode(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// DownloadSF10 godoc
// @Summary Download the SF10 permanent record
// @Tags Downloads
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Success 200 {file} binary
// @Router /students/{id}/downloads/sf10 [get]
func (h *StudentHandler) DownloadSF10(c *gin.Context) {
	h.download(c, func() (*service.Export, error) {
		return h.exports.SF10(c.Request.Context(), c.Param("id"))
	})
}

// DownloadReportCard godoc
// @Summary Download the current report card
// @Tags Downloads
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Success 200 {file} binary
// @Router /students/{id}/downloads/reportCard [get]
func (h *StudentHandler) DownloadReportCard(c *gin.Context) {
	h.download(c, func() (*service.Export, error) {
		return h.exports.ReportCard(c.Request.Context(), c.Param("id"))
	})
}

func (h *StudentHandler) download(c *gin.Context, render func() (*service.Export, error)) {
	result, err := render()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

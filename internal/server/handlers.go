package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"afd-timebank/internal/models"
	"afd-timebank/internal/parsers"
	"afd-timebank/internal/reporter"
	"afd-timebank/internal/timebank"
	"afd-timebank/internal/timesheet"
	"afd-timebank/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Certificate marks one day of one employee as excused
type Certificate struct {
	EmployeeID string      `json:"employee" binding:"required"`
	Date       models.Date `json:"date"`
}

// TimesheetRequest carries an AFD export and everything needed to build
// timesheets from it. Schedule fields that are left out keep the server
// default.
type TimesheetRequest struct {
	Content      string                     `json:"content" binding:"required"`
	Start        models.Date                `json:"start"`
	End          models.Date                `json:"end"`
	Employees    []string                   `json:"employees"`
	Schedule     json.RawMessage            `json:"schedule"`
	Overrides    map[string]json.RawMessage `json:"overrides"`
	Certificates []Certificate              `json:"certificates"`
	Adjustments  []timesheet.Adjustment     `json:"adjustments"`
}

// DayRequest carries a single work day to compute
type DayRequest struct {
	Day      *models.WorkDay `json:"day" binding:"required"`
	Schedule json.RawMessage `json:"schedule"`
}

// EditRequest carries a punch edit on a single work day
type EditRequest struct {
	Day      *models.WorkDay `json:"day" binding:"required"`
	Index    *int            `json:"index" binding:"required"`
	Value    string          `json:"value"`
	Schedule json.RawMessage `json:"schedule"`
}

var contentTypes = map[reporter.OutputFormat]string{
	reporter.FormatConsole: "text/plain; charset=utf-8",
	reporter.FormatJSON:    "application/json; charset=utf-8",
	reporter.FormatYAML:    "application/yaml; charset=utf-8",
	reporter.FormatCSV:     "text/csv; charset=utf-8",
	reporter.FormatXLSX:    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "time bank service is running",
	})
}

func (s *Server) currentSchedule(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": s.Schedule()})
}

// parse accepts the export either as a multipart "file" field or as the raw
// request body.
func (s *Server) parse(c *gin.Context) {
	content, err := readUpload(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	svc, err := s.newService()
	if err != nil {
		s.fail(c, err)
		return
	}

	parsed, err := svc.Parse(content)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": parsed})
}

func (s *Server) timesheets(c *gin.Context) {
	result, ok := s.buildFromRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": result})
}

func (s *Server) report(c *gin.Context) {
	format := reporter.OutputFormat(strings.ToLower(c.DefaultQuery("format", string(reporter.FormatJSON))))
	if !format.IsValid() {
		s.badRequest(c, fmt.Sprintf("unsupported format %q", format))
		return
	}

	result, ok := s.buildFromRequest(c)
	if !ok {
		return
	}

	config := reporter.DefaultReportConfig()
	config.Format = format
	generator, err := reporter.NewReportGenerator(config)
	if err != nil {
		s.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := generator.GenerateReport(result, &buf); err != nil {
		s.fail(c, errors.ComputationError(errors.CodeExportFailed, "report", err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reporter.DefaultFileName(result, format)))
	c.Data(http.StatusOK, contentTypes[format], buf.Bytes())
}

func (s *Server) computeDay(c *gin.Context) {
	var req DayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}

	cfg, err := overlaySchedule(s.Schedule(), req.Schedule)
	if err != nil {
		s.fail(c, err)
		return
	}

	timebank.ComputeDay(req.Day, cfg)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": req.Day})
}

func (s *Server) editDay(c *gin.Context) {
	var req EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}

	cfg, err := overlaySchedule(s.Schedule(), req.Schedule)
	if err != nil {
		s.fail(c, err)
		return
	}
	svc, err := s.newService()
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := svc.UpdateConfiguration(cfg); err != nil {
		s.fail(c, err)
		return
	}

	day, err := svc.EditPunch(req.Day, *req.Index, req.Value)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": day})
}

// buildFromRequest binds a TimesheetRequest and builds its timesheets. It
// writes the error response itself and reports whether to continue.
func (s *Server) buildFromRequest(c *gin.Context) (*timesheet.Result, bool) {
	var req TimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return nil, false
	}

	svc, err := s.newService()
	if err != nil {
		s.fail(c, err)
		return nil, false
	}

	schedule, err := overlaySchedule(s.Schedule(), req.Schedule)
	if err == nil {
		err = svc.UpdateConfiguration(schedule)
	}
	if err != nil {
		s.fail(c, err)
		return nil, false
	}

	if _, err := svc.Parse([]byte(req.Content)); err != nil {
		s.fail(c, err)
		return nil, false
	}

	for id, raw := range req.Overrides {
		override, err := overlaySchedule(schedule, raw)
		if err == nil {
			err = svc.SetEmployeeConfiguration(id, override)
		}
		if err != nil {
			s.fail(c, err)
			return nil, false
		}
	}
	for _, cert := range req.Certificates {
		svc.SetMedicalCertificate(cert.EmployeeID, cert.Date, true)
	}
	for _, adj := range req.Adjustments {
		if err := svc.AddAdjustment(adj); err != nil {
			s.fail(c, err)
			return nil, false
		}
	}

	result, err := svc.BuildTimesheets(c.Request.Context(), timesheet.NewDateRange(req.Start, req.End), req.Employees...)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return result, true
}

// overlaySchedule decodes raw over a copy of base
func overlaySchedule(base *timebank.Config, raw json.RawMessage) (*timebank.Config, error) {
	cfg := base.Clone()
	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "schedule", string(raw), err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "schedule", cfg.String(), err)
	}
	return cfg, nil
}

// readUpload returns the uploaded export. An empty upload is a bad request;
// the parser itself accepts empty content.
func readUpload(c *gin.Context) ([]byte, error) {
	var (
		content []byte
		err     error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, ferr := c.FormFile("file")
		if ferr != nil {
			return nil, errors.ValidationError(errors.CodeMissingField, "file", nil, ferr)
		}
		file, ferr := header.Open()
		if ferr != nil {
			return nil, errors.FileError(errors.CodeFileUnreadable, header.Filename, ferr)
		}
		defer file.Close()
		content, err = parsers.ReadAll(file)
	} else {
		content, err = parsers.ReadAll(c.Request.Body)
	}
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, errors.ParseError(errors.CodeEmptyInput, "upload", nil)
	}
	return content, nil
}

func (s *Server) badRequest(c *gin.Context, detail string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "detail": detail})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	if appErr, ok := errors.AsAppError(err); ok {
		body["error"] = appErr.Message
		body["category"] = appErr.Category
		body["code"] = appErr.Code
		if appErr.Suggestion != "" {
			body["suggestion"] = appErr.Suggestion
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("request failed")
	}
	c.JSON(status, body)
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}

	appErr, ok := errors.AsAppError(err)
	if !ok {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}

	switch appErr.Category {
	case errors.CategoryFile, errors.CategoryParse, errors.CategoryValidation, errors.CategoryConfiguration:
		return http.StatusBadRequest
	case errors.CategoryComputation:
		switch appErr.Code {
		case errors.CodeNothingToCompute:
			return http.StatusUnprocessableEntity
		case errors.CodeUnknownEmployee:
			return http.StatusNotFound
		}
	}
	return http.StatusInternalServerError
}

package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/campuskizuna/internal/app/services"
	"github.com/yigit/campuskizuna/internal/middleware"
)

const (
	contentTypeICS  = "text/calendar; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportController streams classroom reports as downloadable files
type ExportController struct {
	exportService services.ExportService
}

// NewExportController creates a new export controller
func NewExportController(exportService services.ExportService) *ExportController {
	return &ExportController{exportService: exportService}
}

// ExportTimetable downloads the classroom timetable as an iCalendar file
// @Summary Timetable calendar
// @Tags exports
// @Produce text/calendar
// @Security BearerAuth
// @Param id path string true "Classroom ID"
// @Success 200 {file} file "iCalendar with one weekly event per slot"
// @Failure 404 {object} dto.ErrorResponse "Classroom not found"
// @Router /classrooms/{id}/timetable.ics [get]
func (c *ExportController) ExportTimetable(ctx *gin.Context) {
	body, filename, err := c.exportService.TimetableICS(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Data(http.StatusOK, contentTypeICS, body)
}

// ExportAttendance downloads the classroom attendance as a spreadsheet
// @Summary Attendance workbook
// @Tags exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path string true "Classroom ID"
// @Success 200 {file} file "One row per enrolled student"
// @Failure 403 {object} dto.ErrorResponse "Missing ExportReports capability"
// @Failure 404 {object} dto.ErrorResponse "Classroom not found"
// @Router /classrooms/{id}/attendance.xlsx [get]
func (c *ExportController) ExportAttendance(ctx *gin.Context) {
	buf, filename, err := c.exportService.AttendanceWorkbook(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Data(http.StatusOK, contentTypeXLSX, buf.Bytes())
}

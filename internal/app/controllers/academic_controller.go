package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/app/models/dto"
	"github.com/yigit/campuskizuna/internal/app/services"
	"github.com/yigit/campuskizuna/internal/middleware"
)

// AcademicController serves subjects, classrooms, timetables, attendance and assignments
type AcademicController struct {
	schedulingService services.SchedulingService
}

// NewAcademicController creates a new academic controller
func NewAcademicController(schedulingService services.SchedulingService) *AcademicController {
	return &AcademicController{schedulingService: schedulingService}
}

// GetMyOverview returns the academics screen for the caller's role
// @Summary My academics
// @Description Students get their classroom, subjects, assignments and attendance; faculty and admins get the classrooms they teach or coordinate
// @Tags academics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.StudentOverviewResponse} "Student overview"
// @Success 200 {object} dto.APIResponse{data=dto.FacultyOverviewResponse} "Faculty overview"
// @Router /academics/me [get]
func (c *AcademicController) GetMyOverview(ctx *gin.Context) {
	me, ok := callerID(ctx)
	if !ok {
		return
	}
	role, _ := middleware.CurrentRole(ctx)

	if role == models.RoleStudent {
		overview, err := c.schedulingService.StudentOverview(ctx.Request.Context(), me)
		if err != nil {
			middleware.HandleAPIError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, dto.NewSuccessResponse(overview))
		return
	}

	overview, err := c.schedulingService.FacultyOverview(ctx.Request.Context(), me)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(overview))
}

// ListSubjects lists every subject
// @Summary List subjects
// @Tags academics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Subject} "Subjects"
// @Router /subjects [get]
func (c *AcademicController) ListSubjects(ctx *gin.Context) {
	subjects, err := c.schedulingService.ListSubjects(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(subjects))
}

// CreateSubject registers a subject
// @Summary Create subject
// @Tags academics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateSubjectRequest true "Subject"
// @Success 201 {object} dto.APIResponse{data=models.Subject} "Created subject"
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 403 {object} dto.ErrorResponse "Missing ManageSubjects capability"
// @Failure 409 {object} dto.ErrorResponse "Subject code already exists"
// @Router /subjects [post]
func (c *AcademicController) CreateSubject(ctx *gin.Context) {
	var req dto.CreateSubjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	subject, err := c.schedulingService.CreateSubject(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(subject))
}

// ListClassrooms lists classrooms ordered by department, semester and name
// @Summary List classrooms
// @Tags academics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.ClassroomResponse} "Classrooms"
// @Router /classrooms [get]
func (c *AcademicController) ListClassrooms(ctx *gin.Context) {
	classrooms, err := c.schedulingService.ListClassrooms(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewClassroomResponses(classrooms)))
}

// CreateClassroom creates a classroom
// @Summary Create classroom
// @Tags academics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateClassroomRequest true "Classroom"
// @Success 201 {object} dto.APIResponse{data=dto.ClassroomResponse} "Created classroom"
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 403 {object} dto.ErrorResponse "Missing ManageClassrooms capability"
// @Router /classrooms [post]
func (c *AcademicController) CreateClassroom(ctx *gin.Context) {
	var req dto.CreateClassroomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	classroom, err := c.schedulingService.CreateClassroom(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.NewClassroomResponse(classroom)))
}

// GetClassroom returns one classroom
// @Summary Get classroom
// @Tags academics
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom ID"
// @Success 200 {object} dto.APIResponse{data=dto.ClassroomResponse} "Classroom"
// @Failure 404 {object} dto.ErrorResponse "Classroom not found"
// @Router /classrooms/{id} [get]
func (c *AcademicController) GetClassroom(ctx *gin.Context) {
	classroom, err := c.schedulingService.GetClassroom(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewClassroomResponse(classroom)))
}

// SearchCandidates lists students that could be enrolled into the classroom
// @Summary Enrolment candidates
// @Tags academics
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom ID"
// @Param q query string false "Matches name or UUCMS number"
// @Success 200 {object} dto.APIResponse{data=[]dto.UserResponse} "Students not yet enrolled"
// @Failure 404 {object} dto.ErrorResponse "Classroom not found"
// @Router /classrooms/{id}/candidates [get]
func (c *AcademicController) SearchCandidates(ctx *gin.Context) {
	students, err := c.schedulingService.SearchEnrollableStudents(ctx.Request.Context(), ctx.Param("id"), ctx.Query("q"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewUserResponses(students)))
}

// AddStudent enrols a student
// @Summary Enrol student
// @Description Fails with 409 and the conflicting classroom when the student is already in another classroom of the same department and semester
// @Tags academics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom ID"
// @Param request body dto.EnrollStudentRequest true "Student"
// @Success 200 {object} dto.APIResponse{data=dto.EnrollmentResponse} "Student enrolled"
// @Failure 404 {object} dto.ErrorResponse "Classroom or student not found"
// @Failure 409 {object} dto.ErrorResponse{error=dto.ErrorDetail{details=dto.EnrollmentConflictDetails}} "Enrolment conflict"
// @Router /classrooms/{id}/students [post]
func (c *AcademicController) AddStudent(ctx *gin.Context) {
	var req dto.EnrollStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	classroom, err := c.schedulingService.AddStudentToClassroom(ctx.Request.Context(), req.StudentID, ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.EnrollmentResponse{
		Status:    "enrolled",
		Classroom: dto.NewClassroomResponse(classroom),
	}))
}

// MoveStudent moves a student out of a conflicting classroom into this one
// @Summary Move student
// @Tags academics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Destination classroom ID"
// @Param request body dto.MoveStudentRequest true "Student and source classroom"
// @Success 200 {object} dto.APIResponse{data=dto.EnrollmentResponse} "Student moved"
// @Failure 404 {object} dto.ErrorResponse "Classroom or student not found"
// @Router /classrooms/{id}/students/move [post]
func (c *AcademicController) MoveStudent(ctx *gin.Context) {
	var req dto.MoveStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	classroom, err := c.schedulingService.MoveStudent(ctx.Request.Context(), req.StudentID, req.FromClassroomID, ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.EnrollmentResponse{
		Status:    "moved",
		Classroom: dto.NewClassroomResponse(classroom),
	}))
}

// RemoveStudent removes a student from the classroom
// @Summary Remove student
// @Tags academics
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} dto.APIResponse{data=dto.ClassroomResponse} "Updated classroom"
// @Failure 404 {object} dto.ErrorResponse "Classroom not found"
// @Router /classrooms/{id}/students/{studentId} [delete]
func (c *AcademicController) RemoveStudent(ctx *gin.Context) {
	classroom, err := c.schedulingService.RemoveStudentFromClassroom(ctx.Request.Context(), ctx.Param("studentId"), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewClassroomResponse(classroom)))
}

// SetTimetableSlot creates or replaces the slot at a day and start time
// @Summary Set timetable slot
// @Tags academics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom ID"
// @Param request body dto.TimetableSlotRequest true "Slot"
// @Success 200 {object} dto.APIResponse{data=dto.ClassroomResponse} "Updated classroom"
// @Failure 400 {object} dto.ErrorResponse "Invalid day, time, subject or faculty"
// @Failure 404 {object} dto.ErrorResponse "Classroom not found"
// @Router /classrooms/{id}/timetable [put]
func (c *AcademicController) SetTimetableSlot(ctx *gin.Context) {
	var req dto.TimetableSlotRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	classroom, err := c.schedulingService.SetTimetableSlot(ctx.Request.Context(), ctx.Param("id"), services.SlotInput{
		Day:       req.Day,
		StartTime: req.StartTime,
		SubjectID: req.SubjectID,
		FacultyID: req.FacultyID,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewClassroomResponse(classroom)))
}

// RemoveTimetableSlot clears the slot at a day and start time
// @Summary Remove timetable slot
// @Tags academics
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom ID"
// @Param day path string true "Day of week" example(Monday)
// @Param startTime path string true "Start time" example(09:00)
// @Success 200 {object} dto.APIResponse{data=dto.ClassroomResponse} "Updated classroom"
// @Failure 404 {object} dto.ErrorResponse "Classroom not found"
// @Router /classrooms/{id}/timetable/{day}/{startTime} [delete]
func (c *AcademicController) RemoveTimetableSlot(ctx *gin.Context) {
	classroom, err := c.schedulingService.RemoveTimetableSlot(ctx.Request.Context(), ctx.Param("id"), ctx.Param("day"), ctx.Param("startTime"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewClassroomResponse(classroom)))
}

// SetSubjects replaces the classroom's subject set
// @Summary Set classroom subjects
// @Tags academics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom ID"
// @Param request body dto.SetSubjectsRequest true "Subject IDs"
// @Success 200 {object} dto.APIResponse{data=dto.ClassroomResponse} "Updated classroom"
// @Failure 400 {object} dto.ErrorResponse "Unknown subject"
// @Router /classrooms/{id}/subjects [put]
func (c *AcademicController) SetSubjects(ctx *gin.Context) {
	var req dto.SetSubjectsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	classroom, err := c.schedulingService.SetClassroomSubjects(ctx.Request.Context(), ctx.Param("id"), req.SubjectIDs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewClassroomResponse(classroom)))
}

// GetFacultyAssignments maps each subject to the faculty teaching it
// @Summary Faculty per subject
// @Tags academics
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom ID"
// @Success 200 {object} dto.APIResponse{data=map[string]string} "subjectId to facultyId"
// @Failure 404 {object} dto.ErrorResponse "Classroom not found"
// @Router /classrooms/{id}/faculty [get]
func (c *AcademicController) GetFacultyAssignments(ctx *gin.Context) {
	assignments, err := c.schedulingService.FacultyAssignments(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(assignments))
}

// AssignFaculty sets the teacher of a subject on every slot of the classroom
// @Summary Assign faculty to subject
// @Tags academics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom ID"
// @Param subjectId path string true "Subject ID"
// @Param request body dto.AssignFacultyRequest true "Faculty"
// @Success 200 {object} dto.APIResponse{data=dto.ClassroomResponse} "Updated classroom"
// @Failure 400 {object} dto.ErrorResponse "Not a faculty member"
// @Router /classrooms/{id}/subjects/{subjectId}/faculty [put]
func (c *AcademicController) AssignFaculty(ctx *gin.Context) {
	var req dto.AssignFacultyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	classroom, err := c.schedulingService.AssignFacultyToSubject(ctx.Request.Context(), ctx.Param("id"), ctx.Param("subjectId"), req.FacultyID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewClassroomResponse(classroom)))
}

// RecordAttendance records one taught session for the whole class
// @Summary Record attendance
// @Tags academics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom ID"
// @Param request body dto.RecordAttendanceRequest true "Session and present students"
// @Success 200 {object} dto.APIResponse{data=[]dto.AttendanceResponse} "Updated tallies"
// @Failure 400 {object} dto.ErrorResponse "No such slot or unknown student"
// @Failure 403 {object} dto.ErrorResponse "Missing RecordAttendance capability"
// @Router /classrooms/{id}/attendance [post]
func (c *AcademicController) RecordAttendance(ctx *gin.Context) {
	var req dto.RecordAttendanceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	records, err := c.schedulingService.RecordAttendance(ctx.Request.Context(), ctx.Param("id"), services.AttendanceInput{
		SubjectID:         req.SubjectID,
		Day:               req.Day,
		StartTime:         req.StartTime,
		PresentStudentIDs: req.PresentStudentIDs,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	resp := make([]dto.AttendanceResponse, 0, len(records))
	for _, r := range records {
		resp = append(resp, dto.NewAttendanceResponse(r))
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp))
}

// ListAssignments lists the classroom's assignments, newest first
// @Summary List assignments
// @Tags academics
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Assignment} "Assignments"
// @Failure 404 {object} dto.ErrorResponse "Classroom not found"
// @Router /classrooms/{id}/assignments [get]
func (c *AcademicController) ListAssignments(ctx *gin.Context) {
	assignments, err := c.schedulingService.ListAssignments(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(assignments))
}

// CreateAssignment issues coursework; facultyId defaults to the caller
// @Summary Create assignment
// @Tags academics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Classroom ID"
// @Param request body dto.CreateAssignmentRequest true "Assignment"
// @Success 201 {object} dto.APIResponse{data=models.Assignment} "Created assignment"
// @Failure 400 {object} dto.ErrorResponse "Validation failed"
// @Failure 403 {object} dto.ErrorResponse "Missing CreateAssignment capability"
// @Router /classrooms/{id}/assignments [post]
func (c *AcademicController) CreateAssignment(ctx *gin.Context) {
	me, ok := callerID(ctx)
	if !ok {
		return
	}

	var req dto.CreateAssignmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}
	facultyID := req.FacultyID
	if facultyID == "" {
		facultyID = me
	}

	assignment, err := c.schedulingService.CreateAssignment(ctx.Request.Context(), ctx.Param("id"), services.AssignmentInput{
		SubjectID:      req.SubjectID,
		FacultyID:      facultyID,
		Title:          req.Title,
		Description:    req.Description,
		SubmissionDate: req.SubmissionDate,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(assignment))
}

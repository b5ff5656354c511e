package dto

import "github.com/yigit/campuskizuna/internal/app/models"

// CreateSubjectRequest registers a course unit
type CreateSubjectRequest struct {
	Name string `json:"name" binding:"required,min=2,max=100"`
	Code string `json:"code" binding:"required,subject_code"`
}

// CreateClassroomRequest creates a cohort
type CreateClassroomRequest struct {
	Name          string   `json:"name" binding:"required"`
	Department    string   `json:"department" binding:"required"`
	Semester      int      `json:"semester" binding:"required,min=1,max=12"`
	Course        string   `json:"course" binding:"required"`
	CoordinatorID string   `json:"coordinatorId" binding:"required"`
	SubjectIDs    []string `json:"subjectIds"`
}

// EnrollStudentRequest adds a student to a classroom
type EnrollStudentRequest struct {
	StudentID string `json:"studentId" binding:"required"`
}

// MoveStudentRequest resolves an enrolment conflict by moving the student
type MoveStudentRequest struct {
	StudentID       string `json:"studentId" binding:"required"`
	FromClassroomID string `json:"fromClassroomId" binding:"required"`
}

// TimetableSlotRequest upserts the slot at (day, startTime)
type TimetableSlotRequest struct {
	Day       string `json:"day" binding:"required" example:"Monday"`
	StartTime string `json:"startTime" binding:"required,slot_start" example:"09:00"`
	SubjectID string `json:"subjectId" binding:"required"`
	FacultyID string `json:"facultyId" binding:"required"`
}

// SetSubjectsRequest replaces a classroom's subject set
type SetSubjectsRequest struct {
	SubjectIDs []string `json:"subjectIds"`
}

// AssignFacultyRequest sets the teacher of a subject across every slot
type AssignFacultyRequest struct {
	FacultyID string `json:"facultyId" binding:"required"`
}

// RecordAttendanceRequest records one taught session
type RecordAttendanceRequest struct {
	SubjectID         string   `json:"subjectId" binding:"required"`
	Day               string   `json:"day" binding:"required"`
	StartTime         string   `json:"startTime" binding:"required,slot_start"`
	PresentStudentIDs []string `json:"presentStudentIds"`
}

// CreateAssignmentRequest issues coursework. FacultyID defaults to the caller.
type CreateAssignmentRequest struct {
	SubjectID      string `json:"subjectId" binding:"required"`
	FacultyID      string `json:"facultyId"`
	Title          string `json:"title" binding:"required,max=200"`
	Description    string `json:"description" binding:"max=5000"`
	SubmissionDate string `json:"submissionDate" binding:"required,datetime=2006-01-02" example:"2024-08-15"`
}

// ClassroomResponse is a classroom with its enrolment and timetable
type ClassroomResponse struct {
	ID            string                 `json:"id" example:"bca_2a"`
	Name          string                 `json:"name" example:"BCA - 2A"`
	Department    string                 `json:"department" example:"Computer Applications"`
	Semester      int                    `json:"semester" example:"2"`
	Course        string                 `json:"course"`
	CoordinatorID string                 `json:"coordinatorId"`
	StudentIDs    []string               `json:"studentIds"`
	SubjectIDs    []string               `json:"subjectIds"`
	Timetable     []models.TimetableSlot `json:"timetable"`
}

// EnrollmentResponse reports the outcome of an enrolment attempt
type EnrollmentResponse struct {
	Status    string            `json:"status" example:"enrolled"`
	Classroom ClassroomResponse `json:"classroom"`
}

// EnrollmentConflictDetails is attached to a 409 so the client can offer the move
type EnrollmentConflictDetails struct {
	StudentID              string `json:"studentId"`
	ConflictingClassroomID string `json:"conflictingClassroomId"`
	ConflictingClassroom   string `json:"conflictingClassroom"`
	Resolution             string `json:"resolution" example:"POST /classrooms/{id}/students/move"`
}

// AttendanceResponse is one subject tally with the derived percentage
type AttendanceResponse struct {
	SubjectID  string  `json:"subjectId"`
	Subject    string  `json:"subject"`
	Attended   int     `json:"attended"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// StudentOverviewResponse is the academics screen of a student
type StudentOverviewResponse struct {
	Classroom   *ClassroomResponse   `json:"classroom,omitempty"`
	Subjects    []models.Subject     `json:"subjects"`
	Assignments []models.Assignment  `json:"assignments"`
	Attendance  []AttendanceResponse `json:"attendance"`
}

// FacultyOverviewResponse is the academics screen of a faculty member
type FacultyOverviewResponse struct {
	Classrooms  []ClassroomResponse `json:"classrooms"`
	Assignments []models.Assignment `json:"assignments"`
}

// NewClassroomResponse maps a classroom onto its API view
func NewClassroomResponse(c *models.Classroom) ClassroomResponse {
	timetable := c.Timetable
	if timetable == nil {
		timetable = []models.TimetableSlot{}
	}
	return ClassroomResponse{
		ID:            c.ID,
		Name:          c.Name,
		Department:    c.Department,
		Semester:      c.Semester,
		Course:        c.Course,
		CoordinatorID: c.CoordinatorID,
		StudentIDs:    nonNil(c.StudentIDs),
		SubjectIDs:    nonNil(c.SubjectIDs),
		Timetable:     timetable,
	}
}

// NewClassroomResponses maps a slice of classrooms
func NewClassroomResponses(classrooms []*models.Classroom) []ClassroomResponse {
	out := make([]ClassroomResponse, 0, len(classrooms))
	for _, c := range classrooms {
		out = append(out, NewClassroomResponse(c))
	}
	return out
}

// NewAttendanceResponse maps a record and computes its percentage
func NewAttendanceResponse(r *models.AttendanceRecord) AttendanceResponse {
	return AttendanceResponse{
		SubjectID:  r.SubjectID,
		Subject:    r.Subject,
		Attended:   r.Attended,
		Total:      r.Total,
		Percentage: r.Percentage(),
	}
}

package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Subject is a course unit
type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// GetID returns the document id
func (s *Subject) GetID() string { return s.ID }

// TimetableSlot binds a subject and its teacher to one hour of one day
type TimetableSlot struct {
	Day       DayOfWeek `json:"day"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	SubjectID string    `json:"subjectId"`
	FacultyID string    `json:"facultyId"`
}

// SlotEnd returns the end of the one-hour slot beginning at start ("09:00" -> "10:00")
func SlotEnd(start string) (string, error) {
	hh, mm, ok := strings.Cut(start, ":")
	if !ok {
		return "", fmt.Errorf("malformed time %q", start)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 22 || mm != "00" {
		return "", fmt.Errorf("malformed time %q", start)
	}
	return fmt.Sprintf("%02d:00", hour+1), nil
}

// Classroom is a cohort of students sharing department, semester and course
type Classroom struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Department    string          `json:"department"`
	Semester      int             `json:"semester"`
	Course        string          `json:"course"`
	CoordinatorID string          `json:"coordinatorId"`
	StudentIDs    []string        `json:"studentIds"`
	SubjectIDs    []string        `json:"subjectIds"`
	Timetable     []TimetableSlot `json:"timetable"`
}

// GetID returns the document id
func (c *Classroom) GetID() string { return c.ID }

// CohortKey identifies the (department, semester) group within which a student may
// belong to at most one classroom
func (c *Classroom) CohortKey() string {
	return CohortKey(c.Department, c.Semester)
}

// CohortKey builds the cohort key for a department and semester
func CohortKey(department string, semester int) string {
	return strings.ToLower(strings.TrimSpace(department)) + "|" + strconv.Itoa(semester)
}

// HasStudent reports whether the student is enrolled
func (c *Classroom) HasStudent(studentID string) bool {
	return Contains(c.StudentIDs, studentID)
}

// SlotAt returns the slot keyed by (day, start), if any
func (c *Classroom) SlotAt(day DayOfWeek, start string) (TimetableSlot, bool) {
	for _, s := range c.Timetable {
		if s.Day == day && s.StartTime == start {
			return s, true
		}
	}
	return TimetableSlot{}, false
}

// UpsertSlot replaces the slot with the same (day, start) key or appends it
func (c *Classroom) UpsertSlot(slot TimetableSlot) {
	out := make([]TimetableSlot, 0, len(c.Timetable)+1)
	for _, s := range c.Timetable {
		if s.Day == slot.Day && s.StartTime == slot.StartTime {
			continue
		}
		out = append(out, s)
	}
	c.Timetable = append(out, slot)
}

// RemoveSlot drops the slot at (day, start); it reports whether one was removed
func (c *Classroom) RemoveSlot(day DayOfWeek, start string) bool {
	out := make([]TimetableSlot, 0, len(c.Timetable))
	for _, s := range c.Timetable {
		if s.Day == day && s.StartTime == start {
			continue
		}
		out = append(out, s)
	}
	removed := len(out) != len(c.Timetable)
	c.Timetable = out
	return removed
}

// TaughtBy reports whether facultyID teaches any slot
func (c *Classroom) TaughtBy(facultyID string) bool {
	for _, s := range c.Timetable {
		if s.FacultyID == facultyID {
			return true
		}
	}
	return false
}

// FacultyBySubject derives the subject -> faculty assignment from the timetable.
// When slots disagree the first one in timetable order wins.
func (c *Classroom) FacultyBySubject() map[string]string {
	out := make(map[string]string)
	for _, s := range c.Timetable {
		if _, ok := out[s.SubjectID]; !ok {
			out[s.SubjectID] = s.FacultyID
		}
	}
	return out
}

// Assignment is coursework issued to a classroom for a subject
type Assignment struct {
	ID             string `json:"id"`
	ClassroomID    string `json:"classroomId"`
	SubjectID      string `json:"subjectId"`
	FacultyID      string `json:"facultyId"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	AssignedDate   string `json:"assignedDate"`
	SubmissionDate string `json:"submissionDate"`
}

// GetID returns the document id
func (a *Assignment) GetID() string { return a.ID }

// AttendanceRecord is a student's cumulative tally for one subject
type AttendanceRecord struct {
	ID          string `json:"id"`
	StudentID   string `json:"studentId"`
	ClassroomID string `json:"classroomId"`
	SubjectID   string `json:"subjectId"`
	Subject     string `json:"subject"`
	Attended    int    `json:"attended"`
	Total       int    `json:"total"`
}

// GetID returns the document id
func (a *AttendanceRecord) GetID() string { return a.ID }

// AttendanceID builds the record id for a student and subject
func AttendanceID(studentID, subjectID string) string {
	return studentID + ":" + subjectID
}

// Percentage returns attended/total*100 clamped to [0,100]; 0 when nothing was held
func (a *AttendanceRecord) Percentage() float64 {
	if a.Total <= 0 {
		return 0
	}
	p := float64(a.Attended) / float64(a.Total) * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

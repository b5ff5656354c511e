package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/app/models/dto"
	"github.com/yigit/campuskizuna/internal/app/repositories"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
	"github.com/yigit/campuskizuna/internal/pkg/helpers"
	"github.com/yigit/campuskizuna/internal/pkg/keylock"
	"github.com/yigit/campuskizuna/internal/pkg/validation"
)

// EnrollmentConflict is returned when a student already belongs to another
// classroom of the same department and semester. Nothing is changed; the caller
// either gives up or resolves it with MoveStudent.
type EnrollmentConflict struct {
	StudentID string
	Classroom *models.Classroom
}

func (e *EnrollmentConflict) Error() string {
	return fmt.Sprintf("student %s is already enrolled in %s (%s)", e.StudentID, e.Classroom.Name, e.Classroom.ID)
}

// Unwrap lets errors.Is match apperrors.ErrConflict
func (e *EnrollmentConflict) Unwrap() error {
	return apperrors.ErrConflict
}

// SlotInput identifies a timetable slot and what is taught in it
type SlotInput struct {
	Day       string
	StartTime string
	SubjectID string
	FacultyID string
}

// AttendanceInput is one taught session of a slot
type AttendanceInput struct {
	SubjectID         string
	Day               string
	StartTime         string
	PresentStudentIDs []string
}

// AssignmentInput is new coursework
type AssignmentInput struct {
	SubjectID      string
	FacultyID      string
	Title          string
	Description    string
	SubmissionDate string
}

// SchedulingService manages classrooms, timetables, attendance and assignments
type SchedulingService interface {
	CreateSubject(ctx context.Context, req *dto.CreateSubjectRequest) (*models.Subject, error)
	ListSubjects(ctx context.Context) ([]*models.Subject, error)

	CreateClassroom(ctx context.Context, req *dto.CreateClassroomRequest) (*models.Classroom, error)
	GetClassroom(ctx context.Context, classroomID string) (*models.Classroom, error)
	ListClassrooms(ctx context.Context) ([]*models.Classroom, error)

	AddStudentToClassroom(ctx context.Context, studentID, classroomID string) (*models.Classroom, error)
	MoveStudent(ctx context.Context, studentID, fromClassroomID, toClassroomID string) (*models.Classroom, error)
	RemoveStudentFromClassroom(ctx context.Context, studentID, classroomID string) (*models.Classroom, error)
	SearchEnrollableStudents(ctx context.Context, classroomID, query string) ([]*models.User, error)

	SetTimetableSlot(ctx context.Context, classroomID string, slot SlotInput) (*models.Classroom, error)
	RemoveTimetableSlot(ctx context.Context, classroomID, day, startTime string) (*models.Classroom, error)
	AssignFacultyToSubject(ctx context.Context, classroomID, subjectID, facultyID string) (*models.Classroom, error)
	FacultyAssignments(ctx context.Context, classroomID string) (map[string]string, error)
	SetClassroomSubjects(ctx context.Context, classroomID string, subjectIDs []string) (*models.Classroom, error)

	RecordAttendance(ctx context.Context, classroomID string, input AttendanceInput) ([]*models.AttendanceRecord, error)
	CreateAssignment(ctx context.Context, classroomID string, input AssignmentInput) (*models.Assignment, error)
	ListAssignments(ctx context.Context, classroomID string) ([]*models.Assignment, error)

	StudentOverview(ctx context.Context, studentID string) (*dto.StudentOverviewResponse, error)
	FacultyOverview(ctx context.Context, facultyID string) (*dto.FacultyOverviewResponse, error)
}

type schedulingServiceImpl struct {
	repos    *repositories.Repositories
	locks    *keylock.Locker
	clock    helpers.Clock
	location *time.Location
	notifier Notifier
	logger   zerolog.Logger
}

// NewSchedulingService creates a new SchedulingService. Calendar dates such as
// "today" for assignment deadlines are taken in location.
func NewSchedulingService(
	repos *repositories.Repositories,
	locks *keylock.Locker,
	clock helpers.Clock,
	location *time.Location,
	notifier Notifier,
	logger zerolog.Logger,
) SchedulingService {
	if location == nil {
		location = time.UTC
	}
	return &schedulingServiceImpl{
		repos:    repos,
		locks:    locks,
		clock:    clock,
		location: location,
		notifier: notifierOrNoop(notifier),
		logger:   logger.With().Str("service", "scheduling").Logger(),
	}
}

// CreateSubject registers a course unit. Codes are unique regardless of case.
func (s *schedulingServiceImpl) CreateSubject(ctx context.Context, req *dto.CreateSubjectRequest) (*models.Subject, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name", "subject name is required")
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if !validation.CompiledPatterns.SubjectCode.MatchString(code) {
		return nil, apperrors.NewValidationError("code", "subject code must look like CS101")
	}

	unlock := s.locks.Lock("subject-code:" + code)
	defer unlock()

	existing, err := s.repos.Subjects.Find(ctx, repositories.Where{"code": code})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, apperrors.ErrSubjectCodeExists
	}

	subject := &models.Subject{
		ID:   strings.ToLower(code),
		Name: name,
		Code: code,
	}
	if _, err := s.repos.Subjects.FindByID(ctx, subject.ID); err == nil {
		subject.ID = models.NewID(models.PrefixSubject)
	}
	if err := s.repos.Subjects.Insert(ctx, subject); err != nil {
		if errors.Is(err, apperrors.ErrResourceAlreadyExists) {
			return nil, apperrors.ErrSubjectCodeExists
		}
		return nil, err
	}
	s.logger.Info().Str("subjectID", subject.ID).Str("code", code).Msg("Subject created")
	return subject, nil
}

// ListSubjects returns subjects ordered by code
func (s *schedulingServiceImpl) ListSubjects(ctx context.Context) ([]*models.Subject, error) {
	subjects, err := s.repos.Subjects.Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(subjects, func(i, j int) bool { return subjects[i].Code < subjects[j].Code })
	return subjects, nil
}

// CreateClassroom creates an empty cohort with an optional subject set
func (s *schedulingServiceImpl) CreateClassroom(ctx context.Context, req *dto.CreateClassroomRequest) (*models.Classroom, error) {
	name := strings.TrimSpace(req.Name)
	department := strings.TrimSpace(req.Department)
	switch {
	case name == "":
		return nil, apperrors.NewValidationError("name", "classroom name is required")
	case department == "":
		return nil, apperrors.NewValidationError("department", "department is required")
	case req.Semester < 1:
		return nil, apperrors.NewValidationError("semester", "semester must be positive")
	}
	if err := s.requireRole(ctx, req.CoordinatorID, models.RoleFaculty, "coordinatorId"); err != nil {
		return nil, err
	}
	subjectIDs, err := s.resolveSubjects(ctx, req.SubjectIDs)
	if err != nil {
		return nil, err
	}

	classroom := &models.Classroom{
		ID:            models.NewID(models.PrefixClassroom),
		Name:          name,
		Department:    department,
		Semester:      req.Semester,
		Course:        strings.TrimSpace(req.Course),
		CoordinatorID: req.CoordinatorID,
		StudentIDs:    []string{},
		SubjectIDs:    subjectIDs,
		Timetable:     []models.TimetableSlot{},
	}
	if err := s.repos.Classrooms.Insert(ctx, classroom); err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("Failed to create classroom")
		return nil, err
	}
	s.logger.Info().Str("classroomID", classroom.ID).Str("cohort", classroom.CohortKey()).Msg("Classroom created")
	return classroom, nil
}

// GetClassroom returns one classroom
func (s *schedulingServiceImpl) GetClassroom(ctx context.Context, classroomID string) (*models.Classroom, error) {
	return findClassroom(ctx, s.repos.Classrooms, classroomID)
}

// ListClassrooms returns classrooms ordered by department, semester and name
func (s *schedulingServiceImpl) ListClassrooms(ctx context.Context) ([]*models.Classroom, error) {
	classrooms, err := s.repos.Classrooms.Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	sortClassrooms(classrooms)
	return classrooms, nil
}

// AddStudentToClassroom enrols a student. When the student already belongs to
// another classroom of the same cohort an *EnrollmentConflict is returned and
// nothing is written.
func (s *schedulingServiceImpl) AddStudentToClassroom(ctx context.Context, studentID, classroomID string) (*models.Classroom, error) {
	target, err := findClassroom(ctx, s.repos.Classrooms, classroomID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, studentID, models.RoleStudent, "studentId"); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(cohortKey(target), classroomKey(classroomID))
	target, err = findClassroom(ctx, s.repos.Classrooms, classroomID)
	if err != nil {
		unlock()
		return nil, err
	}
	if target.HasStudent(studentID) {
		unlock()
		return target, nil
	}

	conflict, err := s.cohortConflict(ctx, studentID, target, "")
	if err != nil {
		unlock()
		return nil, err
	}
	if conflict != nil {
		unlock()
		s.logger.Info().Str("studentID", studentID).Str("classroomID", classroomID).
			Str("conflictingClassroomID", conflict.ID).Msg("Enrolment conflict")
		return nil, &EnrollmentConflict{StudentID: studentID, Classroom: conflict}
	}

	target.StudentIDs = models.WithAdded(target.StudentIDs, studentID)
	err = s.repos.Classrooms.Replace(ctx, target)
	unlock()
	if err != nil {
		s.logger.Error().Err(err).Str("classroomID", classroomID).Msg("Failed to enrol student")
		return nil, err
	}

	s.logger.Info().Str("classroomID", classroomID).Str("studentID", studentID).Msg("Student enrolled")
	s.pointStudentAt(ctx, studentID, func(current string) string {
		if current == "" {
			return classroomID
		}
		return current
	})
	s.notifier.Publish(UserTopic(studentID), EventEnrolled, dto.NewClassroomResponse(target))
	return target, nil
}

// MoveStudent resolves an enrolment conflict: the student leaves from and joins
// to. Both classrooms are written as one unit.
func (s *schedulingServiceImpl) MoveStudent(ctx context.Context, studentID, fromClassroomID, toClassroomID string) (*models.Classroom, error) {
	if fromClassroomID == toClassroomID {
		return nil, apperrors.NewValidationError("fromClassroomId", "source and target classroom are the same")
	}
	from, err := findClassroom(ctx, s.repos.Classrooms, fromClassroomID)
	if err != nil {
		return nil, err
	}
	to, err := findClassroom(ctx, s.repos.Classrooms, toClassroomID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, studentID, models.RoleStudent, "studentId"); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(cohortKey(from), cohortKey(to), classroomKey(fromClassroomID), classroomKey(toClassroomID))
	if from, err = findClassroom(ctx, s.repos.Classrooms, fromClassroomID); err != nil {
		unlock()
		return nil, err
	}
	if to, err = findClassroom(ctx, s.repos.Classrooms, toClassroomID); err != nil {
		unlock()
		return nil, err
	}
	if !from.HasStudent(studentID) {
		unlock()
		return nil, apperrors.NewValidationError("studentId", "student is not enrolled in the source classroom")
	}

	conflict, err := s.cohortConflict(ctx, studentID, to, fromClassroomID)
	if err != nil {
		unlock()
		return nil, err
	}
	if conflict != nil {
		unlock()
		return nil, &EnrollmentConflict{StudentID: studentID, Classroom: conflict}
	}

	from.StudentIDs = models.Without(from.StudentIDs, studentID)
	to.StudentIDs = models.WithAdded(to.StudentIDs, studentID)
	err = s.repos.Classrooms.SaveAll(ctx, from, to)
	unlock()
	if err != nil {
		s.logger.Error().Err(err).Str("studentID", studentID).Msg("Failed to move student")
		return nil, err
	}

	s.logger.Info().Str("studentID", studentID).Str("from", fromClassroomID).Str("to", toClassroomID).Msg("Student moved")
	s.pointStudentAt(ctx, studentID, func(current string) string {
		if current == "" || current == fromClassroomID {
			return toClassroomID
		}
		return current
	})
	s.notifier.Publish(UserTopic(studentID), EventEnrolled, dto.NewClassroomResponse(to))
	return to, nil
}

// RemoveStudentFromClassroom drops the student unconditionally
func (s *schedulingServiceImpl) RemoveStudentFromClassroom(ctx context.Context, studentID, classroomID string) (*models.Classroom, error) {
	unlock := s.locks.Lock(classroomKey(classroomID))
	classroom, err := findClassroom(ctx, s.repos.Classrooms, classroomID)
	if err != nil {
		unlock()
		return nil, err
	}
	if !classroom.HasStudent(studentID) {
		unlock()
		return classroom, nil
	}
	classroom.StudentIDs = models.Without(classroom.StudentIDs, studentID)
	err = s.repos.Classrooms.Replace(ctx, classroom)
	unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("classroomID", classroomID).Str("studentID", studentID).Msg("Student removed from classroom")

	remaining, err := s.repos.Classrooms.Find(ctx, repositories.Where{"studentIds": repositories.Member(studentID)})
	if err != nil {
		s.logger.Warn().Err(err).Str("studentID", studentID).Msg("Could not look up remaining enrolments")
		return classroom, nil
	}
	sortClassrooms(remaining)
	s.pointStudentAt(ctx, studentID, func(current string) string {
		if current != classroomID {
			return current
		}
		if len(remaining) > 0 {
			return remaining[0].ID
		}
		return ""
	})
	return classroom, nil
}

// SearchEnrollableStudents lists students matching query by name or UUCMS who
// are not yet in the classroom
func (s *schedulingServiceImpl) SearchEnrollableStudents(ctx context.Context, classroomID, query string) ([]*models.User, error) {
	classroom, err := findClassroom(ctx, s.repos.Classrooms, classroomID)
	if err != nil {
		return nil, err
	}
	students, err := s.repos.Users.Find(ctx, repositories.Where{"role": string(models.RoleStudent)})
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]*models.User, 0)
	for _, u := range students {
		if classroom.HasStudent(u.ID) {
			continue
		}
		if q == "" || strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(strings.ToLower(u.UUCMS), q) {
			out = append(out, u)
		}
	}
	sortUsersByName(out)
	return out, nil
}

// SetTimetableSlot upserts the slot keyed by (day, startTime). Slots are one hour
// long. The subject and faculty must resolve to existing records.
func (s *schedulingServiceImpl) SetTimetableSlot(ctx context.Context, classroomID string, input SlotInput) (*models.Classroom, error) {
	day, start, end, err := parseSlotKey(input.Day, input.StartTime)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(classroomKey(classroomID))
	defer unlock()

	classroom, err := findClassroom(ctx, s.repos.Classrooms, classroomID)
	if err != nil {
		return nil, err
	}
	if _, err := s.subjectForInput(ctx, input.SubjectID); err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, input.FacultyID, models.RoleFaculty, "facultyId"); err != nil {
		return nil, err
	}

	classroom.UpsertSlot(models.TimetableSlot{
		Day:       day,
		StartTime: start,
		EndTime:   end,
		SubjectID: input.SubjectID,
		FacultyID: input.FacultyID,
	})
	classroom.SubjectIDs = models.WithAdded(classroom.SubjectIDs, input.SubjectID)
	sortTimetable(classroom.Timetable)

	if err := s.repos.Classrooms.Replace(ctx, classroom); err != nil {
		s.logger.Error().Err(err).Str("classroomID", classroomID).Msg("Failed to save timetable slot")
		return nil, err
	}
	s.logger.Info().Str("classroomID", classroomID).Str("day", string(day)).Str("start", start).
		Str("subjectID", input.SubjectID).Msg("Timetable slot set")
	return classroom, nil
}

// RemoveTimetableSlot removes the slot at (day, startTime); absent slots are a no-op
func (s *schedulingServiceImpl) RemoveTimetableSlot(ctx context.Context, classroomID, day, startTime string) (*models.Classroom, error) {
	d, start, _, err := parseSlotKey(day, startTime)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(classroomKey(classroomID))
	defer unlock()

	classroom, err := findClassroom(ctx, s.repos.Classrooms, classroomID)
	if err != nil {
		return nil, err
	}
	if !classroom.RemoveSlot(d, start) {
		return classroom, nil
	}
	if err := s.repos.Classrooms.Replace(ctx, classroom); err != nil {
		return nil, err
	}
	s.logger.Info().Str("classroomID", classroomID).Str("day", string(d)).Str("start", start).Msg("Timetable slot removed")
	return classroom, nil
}

// AssignFacultyToSubject makes facultyID the teacher of every slot of the subject
func (s *schedulingServiceImpl) AssignFacultyToSubject(ctx context.Context, classroomID, subjectID, facultyID string) (*models.Classroom, error) {
	unlock := s.locks.Lock(classroomKey(classroomID))
	defer unlock()

	classroom, err := findClassroom(ctx, s.repos.Classrooms, classroomID)
	if err != nil {
		return nil, err
	}
	if _, err := s.subjectForInput(ctx, subjectID); err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, facultyID, models.RoleFaculty, "facultyId"); err != nil {
		return nil, err
	}

	changed := 0
	for i := range classroom.Timetable {
		if classroom.Timetable[i].SubjectID == subjectID && classroom.Timetable[i].FacultyID != facultyID {
			classroom.Timetable[i].FacultyID = facultyID
			changed++
		}
	}
	if changed == 0 {
		return classroom, nil
	}
	if err := s.repos.Classrooms.Replace(ctx, classroom); err != nil {
		return nil, err
	}
	s.logger.Info().Str("classroomID", classroomID).Str("subjectID", subjectID).Str("facultyID", facultyID).
		Int("slots", changed).Msg("Faculty assigned to subject")
	return classroom, nil
}

// FacultyAssignments returns the subject to faculty mapping derived from the timetable
func (s *schedulingServiceImpl) FacultyAssignments(ctx context.Context, classroomID string) (map[string]string, error) {
	classroom, err := findClassroom(ctx, s.repos.Classrooms, classroomID)
	if err != nil {
		return nil, err
	}
	return classroom.FacultyBySubject(), nil
}

// SetClassroomSubjects replaces the classroom's subject set
func (s *schedulingServiceImpl) SetClassroomSubjects(ctx context.Context, classroomID string, subjectIDs []string) (*models.Classroom, error) {
	resolved, err := s.resolveSubjects(ctx, subjectIDs)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(classroomKey(classroomID))
	defer unlock()

	classroom, err := findClassroom(ctx, s.repos.Classrooms, classroomID)
	if err != nil {
		return nil, err
	}
	classroom.SubjectIDs = resolved
	if err := s.repos.Classrooms.Replace(ctx, classroom); err != nil {
		return nil, err
	}
	s.logger.Info().Str("classroomID", classroomID).Strs("subjectIDs", resolved).Msg("Classroom subjects replaced")
	return classroom, nil
}

// RecordAttendance tallies one taught session: every enrolled student's total
// goes up by one and present students' attended count too.
func (s *schedulingServiceImpl) RecordAttendance(ctx context.Context, classroomID string, input AttendanceInput) ([]*models.AttendanceRecord, error) {
	day, start, _, err := parseSlotKey(input.Day, input.StartTime)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(classroomKey(classroomID))
	defer unlock()

	classroom, err := findClassroom(ctx, s.repos.Classrooms, classroomID)
	if err != nil {
		return nil, err
	}
	slot, ok := classroom.SlotAt(day, start)
	if !ok {
		return nil, apperrors.ErrTimetableSlotEmpty
	}
	if slot.SubjectID != input.SubjectID {
		return nil, apperrors.NewValidationError("subjectId", "the slot teaches a different subject")
	}
	subject, err := findSubject(ctx, s.repos.Subjects, input.SubjectID)
	if err != nil {
		return nil, err
	}

	present := make(map[string]struct{}, len(input.PresentStudentIDs))
	for _, id := range validation.UniqueStrings(input.PresentStudentIDs) {
		if !classroom.HasStudent(id) {
			return nil, apperrors.NewValidationError("presentStudentIds", fmt.Sprintf("student %s is not enrolled in this classroom", id))
		}
		present[id] = struct{}{}
	}

	records := make([]*models.AttendanceRecord, 0, len(classroom.StudentIDs))
	for _, studentID := range classroom.StudentIDs {
		id := models.AttendanceID(studentID, subject.ID)
		record, err := s.repos.Attendance.FindByID(ctx, id)
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			record = &models.AttendanceRecord{ID: id, StudentID: studentID, SubjectID: subject.ID}
		} else if err != nil {
			return nil, err
		}
		record.ClassroomID = classroomID
		record.Subject = subject.Name
		record.Total++
		if _, ok := present[studentID]; ok {
			record.Attended++
		}
		records = append(records, record)
	}

	if err := s.repos.Attendance.SaveAll(ctx, records...); err != nil {
		s.logger.Error().Err(err).Str("classroomID", classroomID).Msg("Failed to record attendance")
		return nil, err
	}
	s.logger.Info().Str("classroomID", classroomID).Str("subjectID", subject.ID).
		Int("present", len(present)).Int("enrolled", len(classroom.StudentIDs)).Msg("Attendance recorded")
	return records, nil
}

// CreateAssignment issues coursework dated today. The submission date may not
// lie before today.
func (s *schedulingServiceImpl) CreateAssignment(ctx context.Context, classroomID string, input AssignmentInput) (*models.Assignment, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title", "title is required")
	}
	due, ok := helpers.ParseDate(input.SubmissionDate)
	if !ok {
		return nil, apperrors.NewValidationError("submissionDate", "submission date must be YYYY-MM-DD")
	}
	today := helpers.Today(s.clock.Now(), s.location)
	if due.Format(helpers.DateLayout) < today {
		return nil, apperrors.NewValidationError("submissionDate", "submission date cannot be in the past")
	}

	classroom, err := findClassroom(ctx, s.repos.Classrooms, classroomID)
	if err != nil {
		return nil, err
	}
	if _, err := s.subjectForInput(ctx, input.SubjectID); err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, input.FacultyID, models.RoleFaculty, "facultyId"); err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		ID:             models.NewID(models.PrefixAssignment),
		ClassroomID:    classroom.ID,
		SubjectID:      input.SubjectID,
		FacultyID:      input.FacultyID,
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		AssignedDate:   today,
		SubmissionDate: due.Format(helpers.DateLayout),
	}
	if err := s.repos.Assignments.Insert(ctx, assignment); err != nil {
		s.logger.Error().Err(err).Str("classroomID", classroomID).Msg("Failed to create assignment")
		return nil, err
	}
	s.logger.Info().Str("assignmentID", assignment.ID).Str("classroomID", classroomID).Msg("Assignment created")
	return assignment, nil
}

// ListAssignments returns a classroom's assignments, most recently assigned first
func (s *schedulingServiceImpl) ListAssignments(ctx context.Context, classroomID string) ([]*models.Assignment, error) {
	if _, err := findClassroom(ctx, s.repos.Classrooms, classroomID); err != nil {
		return nil, err
	}
	assignments, err := s.repos.Assignments.Find(ctx, repositories.Where{"classroomId": classroomID})
	if err != nil {
		return nil, err
	}
	sortAssignmentsNewestFirst(assignments)
	return assignments, nil
}

// StudentOverview gathers a student's classroom, coursework and attendance
func (s *schedulingServiceImpl) StudentOverview(ctx context.Context, studentID string) (*dto.StudentOverviewResponse, error) {
	student, err := findUser(ctx, s.repos.Users, studentID)
	if err != nil {
		return nil, err
	}

	out := &dto.StudentOverviewResponse{
		Subjects:    []models.Subject{},
		Assignments: []models.Assignment{},
		Attendance:  []dto.AttendanceResponse{},
	}

	classroom, err := s.studentClassroom(ctx, student)
	if err != nil {
		return nil, err
	}
	if classroom != nil {
		view := dto.NewClassroomResponse(classroom)
		out.Classroom = &view

		for _, id := range classroom.SubjectIDs {
			subject, err := s.repos.Subjects.FindByID(ctx, id)
			if err == nil {
				out.Subjects = append(out.Subjects, *subject)
			}
		}

		assignments, err := s.repos.Assignments.Find(ctx, repositories.Where{"classroomId": classroom.ID})
		if err != nil {
			return nil, err
		}
		sortAssignmentsNewestFirst(assignments)
		for _, a := range assignments {
			out.Assignments = append(out.Assignments, *a)
		}
	}

	records, err := s.repos.Attendance.Find(ctx, repositories.Where{"studentId": studentID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Subject < records[j].Subject })
	for _, r := range records {
		out.Attendance = append(out.Attendance, dto.NewAttendanceResponse(r))
	}
	return out, nil
}

// FacultyOverview lists the classrooms where facultyID teaches and their assignments
func (s *schedulingServiceImpl) FacultyOverview(ctx context.Context, facultyID string) (*dto.FacultyOverviewResponse, error) {
	if _, err := findUser(ctx, s.repos.Users, facultyID); err != nil {
		return nil, err
	}
	classrooms, err := s.repos.Classrooms.Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	sortClassrooms(classrooms)

	out := &dto.FacultyOverviewResponse{Classrooms: []dto.ClassroomResponse{}, Assignments: []models.Assignment{}}
	for _, c := range classrooms {
		if c.TaughtBy(facultyID) {
			out.Classrooms = append(out.Classrooms, dto.NewClassroomResponse(c))
		}
	}

	assignments, err := s.repos.Assignments.Find(ctx, repositories.Where{"facultyId": facultyID})
	if err != nil {
		return nil, err
	}
	sortAssignmentsNewestFirst(assignments)
	for _, a := range assignments {
		out.Assignments = append(out.Assignments, *a)
	}
	return out, nil
}

// cohortConflict finds another classroom of target's cohort that already lists
// the student, ignoring target itself and skipID
func (s *schedulingServiceImpl) cohortConflict(ctx context.Context, studentID string, target *models.Classroom, skipID string) (*models.Classroom, error) {
	enrolled, err := s.repos.Classrooms.Find(ctx, repositories.Where{"studentIds": repositories.Member(studentID)})
	if err != nil {
		return nil, err
	}
	sortClassrooms(enrolled)
	for _, c := range enrolled {
		if c.ID == target.ID || c.ID == skipID {
			continue
		}
		if c.CohortKey() == target.CohortKey() {
			return c, nil
		}
	}
	return nil, nil
}

// studentClassroom resolves the student's classroom, falling back to any
// classroom listing them when the profile pointer is stale
func (s *schedulingServiceImpl) studentClassroom(ctx context.Context, student *models.User) (*models.Classroom, error) {
	if student.ClassroomID != "" {
		c, err := s.repos.Classrooms.FindByID(ctx, student.ClassroomID)
		if err == nil && c.HasStudent(student.ID) {
			return c, nil
		}
		if err != nil && !errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, err
		}
	}
	enrolled, err := s.repos.Classrooms.Find(ctx, repositories.Where{"studentIds": repositories.Member(student.ID)})
	if err != nil {
		return nil, err
	}
	if len(enrolled) == 0 {
		return nil, nil
	}
	sortClassrooms(enrolled)
	return enrolled[0], nil
}

// pointStudentAt rewrites the student's classroomId. The profile pointer is a
// convenience; failures are logged rather than undoing the enrolment.
func (s *schedulingServiceImpl) pointStudentAt(ctx context.Context, studentID string, next func(current string) string) {
	unlock := s.locks.Lock(userKey(studentID))
	defer unlock()

	student, err := s.repos.Users.FindByID(ctx, studentID)
	if err != nil {
		s.logger.Warn().Err(err).Str("studentID", studentID).Msg("Could not load student to update classroom")
		return
	}
	updated := next(student.ClassroomID)
	if updated == student.ClassroomID {
		return
	}
	student.ClassroomID = updated
	if err := s.repos.Users.Replace(ctx, student); err != nil {
		s.logger.Warn().Err(err).Str("studentID", studentID).Msg("Could not update student classroom")
	}
}

// requireRole checks that id names a user with role; field names the input
func (s *schedulingServiceImpl) requireRole(ctx context.Context, id string, role models.Role, field string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidationError(field, field+" is required")
	}
	user, err := s.repos.Users.FindByID(ctx, id)
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		return apperrors.NewValidationError(field, fmt.Sprintf("user %s does not exist", id))
	}
	if err != nil {
		return err
	}
	if user.Role != role {
		return apperrors.NewValidationError(field, fmt.Sprintf("user %s is not a %s", id, role))
	}
	return nil
}

// subjectForInput resolves a subject referenced by request input; unknown ids are invalid input
func (s *schedulingServiceImpl) subjectForInput(ctx context.Context, subjectID string) (*models.Subject, error) {
	subject, err := s.repos.Subjects.FindByID(ctx, subjectID)
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		return nil, apperrors.NewValidationError("subjectId", fmt.Sprintf("subject %s does not exist", subjectID))
	}
	return subject, err
}

func (s *schedulingServiceImpl) resolveSubjects(ctx context.Context, ids []string) ([]string, error) {
	unique := validation.UniqueStrings(ids)
	for _, id := range unique {
		if _, err := s.subjectForInput(ctx, id); err != nil {
			return nil, err
		}
	}
	return unique, nil
}

// parseSlotKey validates a (day, start) pair and derives the slot end
func parseSlotKey(day, start string) (models.DayOfWeek, string, string, error) {
	d, ok := models.ParseDay(day)
	if !ok {
		return "", "", "", apperrors.NewValidationError("day", "day must be Monday to Friday")
	}
	start = strings.TrimSpace(start)
	if !validation.CompiledPatterns.SlotStart.MatchString(start) {
		return "", "", "", apperrors.NewValidationError("startTime", "start time must be a whole hour between 09:00 and 15:00")
	}
	end, err := models.SlotEnd(start)
	if err != nil {
		return "", "", "", apperrors.NewValidationError("startTime", err.Error())
	}
	return d, start, end, nil
}

func sortTimetable(slots []models.TimetableSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		di, dj := slots[i].Day.Index(), slots[j].Day.Index()
		if di != dj {
			return di < dj
		}
		return slots[i].StartTime < slots[j].StartTime
	})
}

func sortClassrooms(classrooms []*models.Classroom) {
	sort.SliceStable(classrooms, func(i, j int) bool {
		a, b := classrooms[i], classrooms[j]
		if a.Department != b.Department {
			return a.Department < b.Department
		}
		if a.Semester != b.Semester {
			return a.Semester < b.Semester
		}
		return a.Name < b.Name
	})
}

func sortAssignmentsNewestFirst(assignments []*models.Assignment) {
	sort.SliceStable(assignments, func(i, j int) bool {
		if assignments[i].AssignedDate != assignments[j].AssignedDate {
			return assignments[i].AssignedDate > assignments[j].AssignedDate
		}
		return assignments[i].ID < assignments[j].ID
	})
}

package services

import (
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/app/models/dto"
	"github.com/yigit/campuskizuna/internal/app/repositories"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
)

func newSection(t *testing.T, env *testEnv, name, department string) *models.Classroom {
	t.Helper()
	c, err := env.scheduling.CreateClassroom(env.ctx, &dto.CreateClassroomRequest{
		Name:          name,
		Department:    department,
		Semester:      2,
		Course:        "Bachelor of Computer Applications",
		CoordinatorID: "faculty01",
		SubjectIDs:    []string{"cs101"},
	})
	if err != nil {
		t.Fatalf("CreateClassroom: %v", err)
	}
	return c
}

func TestAddStudentAcrossDepartmentsSucceeds(t *testing.T) {
	env := newTestEnv(t)

	got, err := env.scheduling.AddStudentToClassroom(env.ctx, "student02", "bca_2a")
	if err != nil {
		t.Fatalf("AddStudentToClassroom: %v", err)
	}
	if !got.HasStudent("student02") {
		t.Error("student02 missing from bca_2a")
	}
	if !env.classroom(t, "bba_2a").HasStudent("student02") {
		t.Error("student02 should remain in bba_2a")
	}
	if cid := env.user(t, "student02").ClassroomID; cid != "bba_2a" {
		t.Errorf("classroomId = %q, want bba_2a kept", cid)
	}
	if !env.notifier.has(UserTopic("student02"), EventEnrolled) {
		t.Error("expected an enrolment event")
	}
}

func TestAddStudentConflictThenMove(t *testing.T) {
	env := newTestEnv(t)
	section := newSection(t, env, "BCA - 2B", "Computer Applications")

	_, err := env.scheduling.AddStudentToClassroom(env.ctx, "student01", section.ID)
	var conflict *EnrollmentConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want EnrollmentConflict", err)
	}
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Error("EnrollmentConflict should match ErrConflict")
	}
	if conflict.StudentID != "student01" || conflict.Classroom.ID != "bca_2a" {
		t.Errorf("conflict = %s in %s", conflict.StudentID, conflict.Classroom.ID)
	}
	if env.classroom(t, section.ID).HasStudent("student01") {
		t.Fatal("conflicting add mutated the target")
	}

	moved, err := env.scheduling.MoveStudent(env.ctx, "student01", "bca_2a", section.ID)
	if err != nil {
		t.Fatalf("MoveStudent: %v", err)
	}
	if !moved.HasStudent("student01") {
		t.Error("student01 missing from target")
	}
	if env.classroom(t, "bca_2a").HasStudent("student01") {
		t.Error("student01 still in bca_2a")
	}
	if !env.classroom(t, section.ID).HasStudent("student01") {
		t.Error("move not persisted")
	}
	if cid := env.user(t, "student01").ClassroomID; cid != section.ID {
		t.Errorf("classroomId = %q, want %q", cid, section.ID)
	}
}

func TestAddStudentConflictIgnoresDepartmentCase(t *testing.T) {
	env := newTestEnv(t)
	section := newSection(t, env, "BCA - 2C", "  computer applications ")

	_, err := env.scheduling.AddStudentToClassroom(env.ctx, "student03", section.ID)
	var conflict *EnrollmentConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want EnrollmentConflict", err)
	}
}

func TestAddStudentIdempotentAndValidated(t *testing.T) {
	env := newTestEnv(t)

	got, err := env.scheduling.AddStudentToClassroom(env.ctx, "student01", "bca_2a")
	if err != nil {
		t.Fatalf("re-adding enrolled student: %v", err)
	}
	if want := []string{"student01", "student03"}; !reflect.DeepEqual(got.StudentIDs, want) {
		t.Errorf("students = %v, want %v", got.StudentIDs, want)
	}

	if _, err := env.scheduling.AddStudentToClassroom(env.ctx, "faculty02", "bca_2a"); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Errorf("faculty enrolment error = %v", err)
	}
	if _, err := env.scheduling.AddStudentToClassroom(env.ctx, "student02", "nope"); !errors.Is(err, apperrors.ErrClassroomNotFound) {
		t.Errorf("unknown classroom error = %v", err)
	}
}

func TestConcurrentEnrolmentIntoOneCohort(t *testing.T) {
	env := newTestEnv(t)
	a := newSection(t, env, "BCA - 2D", "Data Science")
	b := newSection(t, env, "BCA - 2E", "Data Science")

	student, err := env.users.CreateUser(env.ctx, NewUserInput{Name: "Ravi Kumar", Role: models.RoleStudent, Bio: "New.", UUCMS: "UUCMS020"})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = env.scheduling.AddStudentToClassroom(env.ctx, student.ID, id)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, apperrors.ErrConflict) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d enrolments succeeded, want exactly 1", succeeded)
	}
	enrolled, _ := env.repos.Classrooms.Find(env.ctx, repositories.Where{"studentIds": repositories.Member(student.ID)})
	if len(enrolled) != 1 {
		t.Errorf("student is in %d classrooms", len(enrolled))
	}
}

func TestMoveStudentErrors(t *testing.T) {
	env := newTestEnv(t)
	section := newSection(t, env, "BCA - 2B", "Computer Applications")

	if _, err := env.scheduling.MoveStudent(env.ctx, "student02", "bca_2a", section.ID); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Errorf("student not in source error = %v", err)
	}
	if _, err := env.scheduling.MoveStudent(env.ctx, "student01", "bca_2a", "nope"); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Errorf("unknown target error = %v", err)
	}
	if !env.classroom(t, "bca_2a").HasStudent("student01") {
		t.Error("failed move changed the source")
	}
}

func TestRemoveStudentFromClassroom(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.scheduling.AddStudentToClassroom(env.ctx, "student02", "bca_2a"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.scheduling.RemoveStudentFromClassroom(env.ctx, "student02", "bba_2a"); err != nil {
		t.Fatalf("RemoveStudentFromClassroom: %v", err)
	}
	if env.classroom(t, "bba_2a").HasStudent("student02") {
		t.Error("student02 still in bba_2a")
	}
	if cid := env.user(t, "student02").ClassroomID; cid != "bca_2a" {
		t.Errorf("classroomId = %q, want re-pointed to bca_2a", cid)
	}

	if _, err := env.scheduling.RemoveStudentFromClassroom(env.ctx, "student02", "bca_2a"); err != nil {
		t.Fatal(err)
	}
	if cid := env.user(t, "student02").ClassroomID; cid != "" {
		t.Errorf("classroomId = %q, want cleared", cid)
	}
}

func TestSetTimetableSlotUpserts(t *testing.T) {
	env := newTestEnv(t)

	first := SlotInput{Day: "Monday", StartTime: "13:00", SubjectID: "cs103", FacultyID: "faculty01"}
	second := SlotInput{Day: "monday", StartTime: "13:00", SubjectID: "os201", FacultyID: "faculty02"}
	if _, err := env.scheduling.SetTimetableSlot(env.ctx, "bca_2a", first); err != nil {
		t.Fatalf("SetTimetableSlot: %v", err)
	}
	c, err := env.scheduling.SetTimetableSlot(env.ctx, "bca_2a", second)
	if err != nil {
		t.Fatalf("SetTimetableSlot: %v", err)
	}

	count := 0
	for _, s := range c.Timetable {
		if s.Day == models.Monday && s.StartTime == "13:00" {
			count++
			if s.SubjectID != "os201" || s.FacultyID != "faculty02" || s.EndTime != "14:00" {
				t.Errorf("slot = %+v", s)
			}
		}
	}
	if count != 1 {
		t.Errorf("%d slots at Monday 13:00, want 1", count)
	}
	if len(c.Timetable) != 6 {
		t.Errorf("timetable has %d slots, want 6", len(c.Timetable))
	}
	if !models.Contains(c.SubjectIDs, "os201") {
		t.Error("slot subject not added to the classroom")
	}
	if c.Timetable[0].Day != models.Monday || c.Timetable[0].StartTime != "10:00" {
		t.Errorf("timetable not in week order: %+v", c.Timetable[0])
	}
}

func TestSetTimetableSlotValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := map[string]SlotInput{
		"weekend":       {Day: "Saturday", StartTime: "10:00", SubjectID: "cs101", FacultyID: "faculty01"},
		"too late":      {Day: "Monday", StartTime: "16:00", SubjectID: "cs101", FacultyID: "faculty01"},
		"half hour":     {Day: "Monday", StartTime: "10:30", SubjectID: "cs101", FacultyID: "faculty01"},
		"subject":       {Day: "Monday", StartTime: "14:00", SubjectID: "xx999", FacultyID: "faculty01"},
		"not a faculty": {Day: "Monday", StartTime: "14:00", SubjectID: "cs101", FacultyID: "student01"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := env.scheduling.SetTimetableSlot(env.ctx, "bca_2a", in); !errors.Is(err, apperrors.ErrValidationFailed) {
				t.Errorf("error = %v, want validation", err)
			}
		})
	}
	if got := len(env.classroom(t, "bca_2a").Timetable); got != 5 {
		t.Errorf("rejected slots changed the timetable: %d slots", got)
	}
}

func TestRemoveTimetableSlot(t *testing.T) {
	env := newTestEnv(t)

	c, err := env.scheduling.RemoveTimetableSlot(env.ctx, "bca_2a", "Monday", "14:00")
	if err != nil {
		t.Fatalf("absent slot: %v", err)
	}
	if len(c.Timetable) != 5 {
		t.Errorf("absent slot removal changed timetable")
	}

	c, err = env.scheduling.RemoveTimetableSlot(env.ctx, "bca_2a", "Monday", "10:00")
	if err != nil {
		t.Fatalf("RemoveTimetableSlot: %v", err)
	}
	if _, ok := c.SlotAt(models.Monday, "10:00"); ok || len(c.Timetable) != 4 {
		t.Errorf("slot not removed: %+v", c.Timetable)
	}
}

func TestAssignFacultyToSubject(t *testing.T) {
	env := newTestEnv(t)

	c, err := env.scheduling.AssignFacultyToSubject(env.ctx, "bca_2a", "cs101", "faculty02")
	if err != nil {
		t.Fatalf("AssignFacultyToSubject: %v", err)
	}
	for _, s := range c.Timetable {
		want := "faculty01"
		if s.SubjectID == "cs101" {
			want = "faculty02"
		}
		if s.FacultyID != want {
			t.Errorf("%s %s taught by %s, want %s", s.Day, s.StartTime, s.FacultyID, want)
		}
	}

	assignments, err := env.scheduling.FacultyAssignments(env.ctx, "bca_2a")
	if err != nil {
		t.Fatal(err)
	}
	if assignments["cs101"] != "faculty02" || assignments["cs102"] != "faculty01" {
		t.Errorf("assignments = %v", assignments)
	}
}

func TestSetClassroomSubjects(t *testing.T) {
	env := newTestEnv(t)

	c, err := env.scheduling.SetClassroomSubjects(env.ctx, "bca_2a", []string{"cs101", "os201", "cs101"})
	if err != nil {
		t.Fatalf("SetClassroomSubjects: %v", err)
	}
	if !reflect.DeepEqual(c.SubjectIDs, []string{"cs101", "os201"}) {
		t.Errorf("subjects = %v", c.SubjectIDs)
	}
	if _, err := env.scheduling.SetClassroomSubjects(env.ctx, "bca_2a", []string{"zz000"}); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Errorf("unknown subject error = %v", err)
	}
}

func TestRecordAttendance(t *testing.T) {
	env := newTestEnv(t)

	records, err := env.scheduling.RecordAttendance(env.ctx, "bca_2a", AttendanceInput{
		SubjectID:         "cs101",
		Day:               "Monday",
		StartTime:         "10:00",
		PresentStudentIDs: []string{"student01"},
	})
	if err != nil {
		t.Fatalf("RecordAttendance: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("%d records written, want 2", len(records))
	}

	s1, err := env.repos.Attendance.FindByID(env.ctx, models.AttendanceID("student01", "cs101"))
	if err != nil {
		t.Fatal(err)
	}
	if s1.Attended != 29 || s1.Total != 31 {
		t.Errorf("student01 = %d/%d, want 29/31", s1.Attended, s1.Total)
	}
	s3, err := env.repos.Attendance.FindByID(env.ctx, models.AttendanceID("student03", "cs101"))
	if err != nil {
		t.Fatal(err)
	}
	if s3.Attended != 0 || s3.Total != 1 || s3.Subject != "Data Structures" {
		t.Errorf("student03 = %+v", s3)
	}
}

func TestRecordAttendanceRejects(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name  string
		input AttendanceInput
		want  error
	}{
		{"empty slot", AttendanceInput{SubjectID: "cs101", Day: "Monday", StartTime: "09:00"}, apperrors.ErrTimetableSlotEmpty},
		{"other subject", AttendanceInput{SubjectID: "cs102", Day: "Monday", StartTime: "10:00"}, apperrors.ErrValidationFailed},
		{"not enrolled", AttendanceInput{SubjectID: "cs101", Day: "Monday", StartTime: "10:00", PresentStudentIDs: []string{"student02"}}, apperrors.ErrValidationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.scheduling.RecordAttendance(env.ctx, "bca_2a", tc.input); !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}
	if _, err := env.repos.Attendance.FindByID(env.ctx, models.AttendanceID("student03", "cs101")); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Error("rejected attendance wrote records")
	}
}

func TestCreateAssignment(t *testing.T) {
	env := newTestEnv(t)
	input := AssignmentInput{SubjectID: "cs103", FacultyID: "faculty01", Title: "ER Diagram", Description: "Model the library."}

	t.Run("past date", func(t *testing.T) {
		before, _ := env.repos.Assignments.Find(env.ctx, nil)
		in := input
		in.SubmissionDate = "2025-06-09"
		if _, err := env.scheduling.CreateAssignment(env.ctx, "bca_2a", in); !errors.Is(err, apperrors.ErrValidationFailed) {
			t.Errorf("error = %v, want validation", err)
		}
		after, _ := env.repos.Assignments.Find(env.ctx, nil)
		if len(after) != len(before) {
			t.Error("rejected assignment was stored")
		}
	})

	t.Run("due today", func(t *testing.T) {
		in := input
		in.SubmissionDate = "2025-06-10"
		a, err := env.scheduling.CreateAssignment(env.ctx, "bca_2a", in)
		if err != nil {
			t.Fatalf("CreateAssignment: %v", err)
		}
		if a.AssignedDate != "2025-06-10" || a.SubmissionDate != "2025-06-10" {
			t.Errorf("dates = %s -> %s", a.AssignedDate, a.SubmissionDate)
		}

		list, err := env.scheduling.ListAssignments(env.ctx, "bca_2a")
		if err != nil {
			t.Fatal(err)
		}
		if list[0].ID != a.ID {
			t.Errorf("newest assignment should come first, got %s", list[0].ID)
		}
	})

	t.Run("malformed date", func(t *testing.T) {
		in := input
		in.SubmissionDate = "10/06/2025"
		if _, err := env.scheduling.CreateAssignment(env.ctx, "bca_2a", in); !errors.Is(err, apperrors.ErrValidationFailed) {
			t.Errorf("error = %v", err)
		}
	})
}

func TestCreateSubject(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.scheduling.CreateSubject(env.ctx, &dto.CreateSubjectRequest{Name: "Duplicate", Code: "cs101"}); !errors.Is(err, apperrors.ErrConflict) {
		t.Errorf("duplicate code error = %v", err)
	}

	s, err := env.scheduling.CreateSubject(env.ctx, &dto.CreateSubjectRequest{Name: "Discrete Mathematics", Code: "ma101"})
	if err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}
	if s.ID != "ma101" || s.Code != "MA101" {
		t.Errorf("subject = %+v", s)
	}

	all, err := env.scheduling.ListSubjects(env.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 7 || all[0].Code != "BA101" {
		t.Errorf("subjects = %d, first %s", len(all), all[0].Code)
	}
}

func TestSearchEnrollableStudents(t *testing.T) {
	env := newTestEnv(t)

	got, err := env.scheduling.SearchEnrollableStudents(env.ctx, "bca_2a", "")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids(got), []string{"student02"}) {
		t.Errorf("candidates = %v", ids(got))
	}
	got, err = env.scheduling.SearchEnrollableStudents(env.ctx, "bba_2a", "uucms00")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids(got), []string{"student01", "student03"}) {
		t.Errorf("candidates = %v", ids(got))
	}
}

func TestStudentOverview(t *testing.T) {
	env := newTestEnv(t)

	o, err := env.scheduling.StudentOverview(env.ctx, "student01")
	if err != nil {
		t.Fatalf("StudentOverview: %v", err)
	}
	if o.Classroom == nil || o.Classroom.ID != "bca_2a" {
		t.Fatalf("classroom = %+v", o.Classroom)
	}
	if len(o.Subjects) != 3 {
		t.Errorf("subjects = %d", len(o.Subjects))
	}
	if len(o.Assignments) != 2 || o.Assignments[0].ID != "asg02" {
		t.Errorf("assignments = %+v", o.Assignments)
	}
	if len(o.Attendance) != 4 || o.Attendance[0].Subject != "Algorithms" {
		t.Fatalf("attendance = %+v", o.Attendance)
	}
	if p := o.Attendance[0].Percentage; math.Abs(p-83.333) > 0.01 {
		t.Errorf("Algorithms percentage = %.3f", p)
	}
}

func TestFacultyOverview(t *testing.T) {
	env := newTestEnv(t)

	o, err := env.scheduling.FacultyOverview(env.ctx, "faculty02")
	if err != nil {
		t.Fatalf("FacultyOverview: %v", err)
	}
	if len(o.Classrooms) != 1 || o.Classrooms[0].ID != "bba_2a" {
		t.Errorf("classrooms = %+v", o.Classrooms)
	}
	if len(o.Assignments) != 1 || o.Assignments[0].ID != "asg03" {
		t.Errorf("assignments = %+v", o.Assignments)
	}
}

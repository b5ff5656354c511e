package services

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"github.com/yigit/campuskizuna/internal/app/models/dto"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
)

func TestTimetableICS(t *testing.T) {
	env := newTestEnv(t)

	data, filename, err := env.exports.TimetableICS(env.ctx, "bca_2a")
	if err != nil {
		t.Fatalf("TimetableICS: %v", err)
	}
	if filename != "bca_2a_timetable.ics" {
		t.Errorf("filename = %q", filename)
	}

	cal, err := ics.ParseCalendar(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ParseCalendar: %v", err)
	}
	events := cal.Events()
	if len(events) != 5 {
		t.Fatalf("%d events, want one per slot", len(events))
	}

	var monday *ics.VEvent
	for _, e := range events {
		if strings.Contains(e.Id(), "-monday-1000") {
			monday = e
		}
	}
	if monday == nil {
		t.Fatal("no event for the Monday 10:00 slot")
	}
	if got := monday.GetProperty(ics.ComponentPropertySummary).Value; got != "CS101 Data Structures" {
		t.Errorf("summary = %q", got)
	}
	// first Monday of term, 10:00 IST
	if got := monday.GetProperty(ics.ComponentPropertyDtStart).Value; got != "20250602T043000Z" {
		t.Errorf("dtstart = %q", got)
	}
	if got := monday.GetProperty(ics.ComponentPropertyRrule).Value; got != "FREQ=WEEKLY;COUNT=16" {
		t.Errorf("rrule = %q", got)
	}
	if got := monday.GetProperty(ics.ComponentPropertyDescription).Value; !strings.Contains(got, "Dr. Evelyn Reed") {
		t.Errorf("description = %q", got)
	}
}

func TestAttendanceWorkbook(t *testing.T) {
	env := newTestEnv(t)

	buf, filename, err := env.exports.AttendanceWorkbook(env.ctx, "bca_2a")
	if err != nil {
		t.Fatalf("AttendanceWorkbook: %v", err)
	}
	if filename != "bca_2a_attendance.xlsx" {
		t.Errorf("filename = %q", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Attendance")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("%d rows, want header plus one per student", len(rows))
	}
	if rows[0][0] != "Student" || rows[0][2] != "CS101 Data Structures" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "Alex Johnson" || rows[1][1] != "UUCMS001" || rows[1][2] != "28/30 (93%)" {
		t.Errorf("student01 row = %v", rows[1])
	}
	if rows[2][0] != "Sam Wilson" || rows[2][2] != "-" {
		t.Errorf("student03 row = %v", rows[2])
	}
}

func TestAttendanceWorkbookFollowsMovedStudent(t *testing.T) {
	env := newTestEnv(t)

	bca2b, err := env.scheduling.CreateClassroom(env.ctx, &dto.CreateClassroomRequest{
		Name:          "BCA - 2B",
		Department:    "Computer Applications",
		Semester:      2,
		Course:        "Bachelor of Computer Applications",
		CoordinatorID: "faculty01",
		SubjectIDs:    []string{"cs101"},
	})
	if err != nil {
		t.Fatalf("CreateClassroom: %v", err)
	}
	if _, err := env.scheduling.MoveStudent(env.ctx, "student01", "bca_2a", bca2b.ID); err != nil {
		t.Fatalf("MoveStudent: %v", err)
	}

	buf, _, err := env.exports.AttendanceWorkbook(env.ctx, bca2b.ID)
	if err != nil {
		t.Fatalf("AttendanceWorkbook: %v", err)
	}
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Attendance", "C2")
	if err != nil {
		t.Fatal(err)
	}
	if got != "28/30 (93%)" {
		t.Errorf("moved student's cs101 cell = %q, want the tally taken in bca_2a", got)
	}
}

func TestWriteAttendanceSheetReportsFailures(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	err := writeAttendanceSheet(f, "Missing", []string{"Student", "UUCMS"}, [][]string{{"Alex Johnson", "UUCMS001"}})
	if err == nil {
		t.Fatal("expected an error for a sheet that does not exist")
	}
	if err := writeAttendanceSheet(f, "Sheet1", []string{"Student", "UUCMS"}, [][]string{{"Alex Johnson", "UUCMS001"}}); err != nil {
		t.Fatalf("writeAttendanceSheet: %v", err)
	}
	if v, _ := f.GetCellValue("Sheet1", "B2"); v != "UUCMS001" {
		t.Errorf("B2 = %q", v)
	}
}

func TestExportsUnknownClassroom(t *testing.T) {
	env := newTestEnv(t)

	if _, _, err := env.exports.TimetableICS(env.ctx, "nope"); !errors.Is(err, apperrors.ErrClassroomNotFound) {
		t.Errorf("TimetableICS error = %v", err)
	}
	if _, _, err := env.exports.AttendanceWorkbook(env.ctx, "nope"); !errors.Is(err, apperrors.ErrClassroomNotFound) {
		t.Errorf("AttendanceWorkbook error = %v", err)
	}
}

package models

import (
	"testing"
	"time"
)

func TestSlotEnd(t *testing.T) {
	tests := []struct {
		start   string
		want    string
		wantErr bool
	}{
		{"09:00", "10:00", false},
		{"14:00", "15:00", false},
		{"15:00", "16:00", false},
		{"9:30", "", true},
		{"noon", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.start, func(t *testing.T) {
			got, err := SlotEnd(tt.start)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SlotEnd(%q) = %q, want %q", tt.start, got, tt.want)
			}
		})
	}
}

func TestUpsertSlotReplacesSameKey(t *testing.T) {
	c := &Classroom{}
	c.UpsertSlot(TimetableSlot{Day: Monday, StartTime: "09:00", EndTime: "10:00", SubjectID: "cs101", FacultyID: "faculty01"})
	c.UpsertSlot(TimetableSlot{Day: Monday, StartTime: "10:00", EndTime: "11:00", SubjectID: "cs102", FacultyID: "faculty01"})
	c.UpsertSlot(TimetableSlot{Day: Monday, StartTime: "09:00", EndTime: "10:00", SubjectID: "cs103", FacultyID: "faculty02"})

	if len(c.Timetable) != 2 {
		t.Fatalf("len(timetable) = %d, want 2", len(c.Timetable))
	}
	slot, ok := c.SlotAt(Monday, "09:00")
	if !ok || slot.SubjectID != "cs103" || slot.FacultyID != "faculty02" {
		t.Fatalf("slot = %+v, ok=%v", slot, ok)
	}
	if !c.RemoveSlot(Monday, "09:00") || c.RemoveSlot(Monday, "09:00") {
		t.Fatal("RemoveSlot should remove once")
	}
}

func TestAttendancePercentage(t *testing.T) {
	tests := []struct {
		name            string
		attended, total int
		want            float64
	}{
		{"no sessions", 0, 0, 0},
		{"half", 10, 20, 50},
		{"over count clamps", 25, 20, 100},
		{"negative clamps", -2, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := AttendanceRecord{Attended: tt.attended, Total: tt.total}
			if got := r.Percentage(); got != tt.want {
				t.Errorf("Percentage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStoryActiveAt(t *testing.T) {
	now := time.Date(2024, 7, 20, 12, 0, 0, 0, time.UTC)
	fresh := Story{Timestamp: now.Add(-time.Hour)}
	stale := Story{Timestamp: now.Add(-25 * time.Hour)}

	if !fresh.ActiveAt(now) {
		t.Error("story from an hour ago should be active")
	}
	if stale.ActiveAt(now) {
		t.Error("story from 25 hours ago should have expired")
	}
}

func TestCohortKeyIgnoresCaseAndSpace(t *testing.T) {
	a := CohortKey("Computer Applications", 2)
	b := CohortKey(" computer applications ", 2)
	if a != b {
		t.Fatalf("%q != %q", a, b)
	}
	if a == CohortKey("Computer Applications", 3) {
		t.Fatal("different semesters must not share a cohort")
	}
}

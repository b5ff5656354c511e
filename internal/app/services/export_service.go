package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/app/repositories"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
	"github.com/yigit/campuskizuna/internal/pkg/helpers"
)

// ErrExportGenerateFail is returned when a document could not be rendered
var ErrExportGenerateFail = errors.New("failed to generate export")

// ExportConfig places timetables on the calendar
type ExportConfig struct {
	TermStart time.Time
	TermWeeks int
	Location  *time.Location
}

// ExportService renders classroom data as downloadable documents
type ExportService interface {
	// TimetableICS returns an iCalendar with one weekly recurring event per slot
	TimetableICS(ctx context.Context, classroomID string) ([]byte, string, error)
	// AttendanceWorkbook returns an xlsx with one row per enrolled student
	AttendanceWorkbook(ctx context.Context, classroomID string) (*bytes.Buffer, string, error)
}

type exportServiceImpl struct {
	repos  *repositories.Repositories
	config ExportConfig
	clock  helpers.Clock
	logger zerolog.Logger
}

// NewExportService creates a new ExportService
func NewExportService(repos *repositories.Repositories, config ExportConfig, clock helpers.Clock, logger zerolog.Logger) ExportService {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.TermWeeks <= 0 {
		config.TermWeeks = 16
	}
	return &exportServiceImpl{
		repos:  repos,
		config: config,
		clock:  clock,
		logger: logger.With().Str("service", "exports").Logger(),
	}
}

func (s *exportServiceImpl) TimetableICS(ctx context.Context, classroomID string) ([]byte, string, error) {
	classroom, err := findClassroom(ctx, s.repos.Classrooms, classroomID)
	if err != nil {
		return nil, "", err
	}
	subjects, err := s.subjectIndex(ctx)
	if err != nil {
		return nil, "", err
	}
	users, err := userIndex(ctx, s.repos.Users)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//CampusKizuna//Timetable//EN")
	cal.SetXWRCalName(classroom.Name + " timetable")
	cal.SetXWRTimezone(s.config.Location.String())

	stamp := s.clock.Now().UTC()
	for _, slot := range classroom.Timetable {
		start, end, err := s.firstOccurrence(slot)
		if err != nil {
			s.logger.Warn().Err(err).Str("classroomID", classroomID).Str("day", string(slot.Day)).Msg("Skipping malformed slot")
			continue
		}

		summary := slot.SubjectID
		if subject, ok := subjects[slot.SubjectID]; ok {
			summary = subject.Code + " " + subject.Name
		}
		description := "Faculty: " + slot.FacultyID
		if faculty, ok := users[slot.FacultyID]; ok {
			description = "Faculty: " + faculty.Name
		}

		event := cal.AddEvent(fmt.Sprintf("%s-%s-%s@campuskizuna", classroom.ID, strings.ToLower(string(slot.Day)), strings.ReplaceAll(slot.StartTime, ":", "")))
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(summary)
		event.SetDescription(description)
		event.SetLocation(classroom.Name)
		event.AddRrule(fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", s.config.TermWeeks))
	}

	s.logger.Info().Str("classroomID", classroomID).Int("events", len(classroom.Timetable)).Msg("Timetable exported")
	return []byte(cal.Serialize()), exportFilename(classroom, "timetable", "ics"), nil
}

func (s *exportServiceImpl) AttendanceWorkbook(ctx context.Context, classroomID string) (*bytes.Buffer, string, error) {
	classroom, err := findClassroom(ctx, s.repos.Classrooms, classroomID)
	if err != nil {
		return nil, "", err
	}
	subjects, err := s.subjectIndex(ctx)
	if err != nil {
		return nil, "", err
	}
	users, err := userIndex(ctx, s.repos.Users)
	if err != nil {
		return nil, "", err
	}
	// Records keep the classroom they were taken in, so a student who moved
	// is looked up by their own id.
	tally := make(map[string]*models.AttendanceRecord)
	for _, studentID := range classroom.StudentIDs {
		records, err := s.repos.Attendance.Find(ctx, repositories.Where{"studentId": studentID})
		if err != nil {
			return nil, "", err
		}
		for _, r := range records {
			tally[r.ID] = r
		}
	}

	headers := []string{"Student", "UUCMS"}
	for _, id := range classroom.SubjectIDs {
		label := id
		if subject, ok := subjects[id]; ok {
			label = subject.Code + " " + subject.Name
		}
		headers = append(headers, label)
	}

	rows := make([][]string, 0, len(classroom.StudentIDs))
	for _, studentID := range classroom.StudentIDs {
		name, uucms := studentID, ""
		if u, ok := users[studentID]; ok {
			name, uucms = u.Name, u.UUCMS
		}
		row := []string{name, uucms}
		for _, subjectID := range classroom.SubjectIDs {
			text := "-"
			if r, ok := tally[models.AttendanceID(studentID, subjectID)]; ok {
				text = fmt.Sprintf("%d/%d (%.0f%%)", r.Attended, r.Total, r.Percentage())
			}
			row = append(row, text)
		}
		rows = append(rows, row)
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(attendanceSheet)
	if err != nil {
		s.logger.Error().Err(err).Str("classroomID", classroomID).Msg("Failed to add attendance sheet")
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		s.logger.Error().Err(err).Str("classroomID", classroomID).Msg("Failed to drop default sheet")
		return nil, "", ErrExportGenerateFail
	}
	if err := writeAttendanceSheet(f, attendanceSheet, headers, rows); err != nil {
		s.logger.Error().Err(err).Str("classroomID", classroomID).Msg("Failed to fill attendance sheet")
		return nil, "", ErrExportGenerateFail
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error().Err(err).Str("classroomID", classroomID).Msg("Failed to write attendance workbook")
		return nil, "", ErrExportGenerateFail
	}
	s.logger.Info().Str("classroomID", classroomID).Int("students", len(classroom.StudentIDs)).Msg("Attendance exported")
	return buf, exportFilename(classroom, "attendance", "xlsx"), nil
}

const attendanceSheet = "Attendance"

// writeAttendanceSheet fills an existing sheet with a styled header row
// followed by one row per student
func writeAttendanceSheet(f *excelize.File, sheet string, headers []string, rows [][]string) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	for i, h := range headers {
		if err := f.SetCellValue(sheet, cellName(i+1, 1), h); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheet, cellName(1, 1), cellName(len(headers), 1), headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "A", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", columnName(len(headers)), 20); err != nil {
		return err
	}

	for r, row := range rows {
		for c, text := range row {
			if err := f.SetCellValue(sheet, cellName(c+1, r+2), text); err != nil {
				return err
			}
		}
	}
	return nil
}

// firstOccurrence returns the first meeting of slot on or after the term start
func (s *exportServiceImpl) firstOccurrence(slot models.TimetableSlot) (time.Time, time.Time, error) {
	weekday := slot.Day.Index() + 1 // Monday == time.Monday == 1
	if weekday <= 0 {
		return time.Time{}, time.Time{}, apperrors.NewValidationError("day", "unknown day "+string(slot.Day))
	}
	start, err := time.ParseInLocation("15:04", slot.StartTime, s.config.Location)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	term := s.config.TermStart.In(s.config.Location)
	day := time.Date(term.Year(), term.Month(), term.Day(), start.Hour(), start.Minute(), 0, 0, s.config.Location)
	offset := (weekday - int(day.Weekday()) + 7) % 7
	day = day.AddDate(0, 0, offset)
	return day, day.Add(time.Hour), nil
}

func (s *exportServiceImpl) subjectIndex(ctx context.Context) (map[string]*models.Subject, error) {
	subjects, err := s.repos.Subjects.Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*models.Subject, len(subjects))
	for _, sub := range subjects {
		out[sub.ID] = sub
	}
	return out, nil
}

func exportFilename(c *models.Classroom, kind, ext string) string {
	return fmt.Sprintf("%s_%s.%s", c.ID, kind, ext)
}

func columnName(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/app/repositories"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
	"github.com/yigit/campuskizuna/internal/pkg/auth"
	"github.com/yigit/campuskizuna/internal/pkg/helpers"
)

// Options controls the demo credentials
type Options struct {
	// Password is shared by every seeded account
	Password   string
	BcryptCost int
}

// CreateDefaultData loads the campus demo data: six users and their follow
// graph, three posts, three stories, six subjects, two classrooms with
// timetables, three assignments and student01's attendance. It does nothing
// when the demo users already exist. Post and story times are relative to
// the clock so the feed and the story reel look fresh.
func CreateDefaultData(ctx context.Context, repos *repositories.Repositories, clock helpers.Clock, opts Options, lgr zerolog.Logger) error {
	_, err := repos.Users.FindByID(ctx, "student01")
	if err == nil {
		lgr.Info().Msg("Demo data already present, skipping seed")
		return nil
	}
	if !errors.Is(err, apperrors.ErrResourceNotFound) {
		return err
	}

	lgr.Info().Msg("Seeding campus demo data...")
	now := clock.Now().UTC()
	var finalErr error

	users := Users(now)
	posts := Posts(now)
	for _, p := range posts {
		for _, u := range users {
			if u.ID == p.AuthorID {
				u.Stats.Posts++
			}
		}
	}
	if err := repos.Users.SaveAll(ctx, users...); err != nil {
		lgr.Error().Err(err).Msg("Error seeding users")
		finalErr = errors.Join(finalErr, err)
	}

	credentials, err := Credentials(users, opts, now)
	if err != nil {
		lgr.Error().Err(err).Msg("Error hashing seed password")
		finalErr = errors.Join(finalErr, err)
	} else if err := repos.Credentials.SaveAll(ctx, credentials...); err != nil {
		lgr.Error().Err(err).Msg("Error seeding credentials")
		finalErr = errors.Join(finalErr, err)
	}

	if err := repos.Posts.SaveAll(ctx, posts...); err != nil {
		lgr.Error().Err(err).Msg("Error seeding posts")
		finalErr = errors.Join(finalErr, err)
	}
	if err := repos.Stories.SaveAll(ctx, Stories(now)...); err != nil {
		lgr.Error().Err(err).Msg("Error seeding stories")
		finalErr = errors.Join(finalErr, err)
	}
	if err := repos.Subjects.SaveAll(ctx, Subjects()...); err != nil {
		lgr.Error().Err(err).Msg("Error seeding subjects")
		finalErr = errors.Join(finalErr, err)
	}
	if err := repos.Classrooms.SaveAll(ctx, Classrooms()...); err != nil {
		lgr.Error().Err(err).Msg("Error seeding classrooms")
		finalErr = errors.Join(finalErr, err)
	}
	if err := repos.Assignments.SaveAll(ctx, Assignments()...); err != nil {
		lgr.Error().Err(err).Msg("Error seeding assignments")
		finalErr = errors.Join(finalErr, err)
	}
	if err := repos.Attendance.SaveAll(ctx, Attendance()...); err != nil {
		lgr.Error().Err(err).Msg("Error seeding attendance")
		finalErr = errors.Join(finalErr, err)
	}

	lgr.Info().Int("users", len(users)).Int("posts", len(posts)).Msg("Demo data seeding finished.")
	return finalErr
}

// Users returns the demo users with a symmetric follow graph and follow stats
func Users(now time.Time) []*models.User {
	users := []*models.User{
		{
			ID:             "student01",
			Name:           "Alex Johnson",
			Role:           models.RoleStudent,
			Avatar:         "https://picsum.photos/seed/student/200",
			Bio:            "Computer Science sophomore. Passionate about AI and mobile development. Coffee enthusiast.",
			Skills:         []string{"React", "TypeScript", "Python", "UI/UX Design"},
			Achievements:   []string{"Dean's List 2023", "Hackathon Winner '24"},
			UUCMS:          "UUCMS001",
			PersonalNumber: "9876543210",
			ClassroomID:    "bca_2a",
			Coins:          150,
		},
		{
			ID:             "student02",
			Name:           "Maria Garcia",
			Role:           models.RoleStudent,
			Avatar:         "https://picsum.photos/seed/student2/200",
			Bio:            "Business Administration student.",
			Skills:         []string{"Marketing", "Public Speaking"},
			Achievements:   []string{"Best Presentation Award"},
			UUCMS:          "UUCMS002",
			PersonalNumber: "9876543211",
			ClassroomID:    "bba_2a",
			Coins:          75,
		},
		{
			ID:             "student03",
			Name:           "Sam Wilson",
			Role:           models.RoleStudent,
			Avatar:         "https://picsum.photos/seed/student3/200",
			Bio:            "Loves DSA.",
			Skills:         []string{"Algorithms", "Data Structures"},
			Achievements:   []string{},
			UUCMS:          "UUCMS003",
			PersonalNumber: "9876543212",
			ClassroomID:    "bca_2a",
			Coins:          200,
		},
		{
			ID:           "faculty01",
			Name:         "Dr. Evelyn Reed",
			Role:         models.RoleFaculty,
			Avatar:       "https://picsum.photos/seed/faculty/200",
			Bio:          "Professor in the Computer Science department. Research focus on machine learning and natural language processing.",
			Skills:       []string{"Machine Learning", "NLP", "Academia", "Research"},
			Achievements: []string{"Published 15+ research papers", "IEEE Senior Member"},
		},
		{
			ID:           "faculty02",
			Name:         "Dr. Alan Grant",
			Role:         models.RoleFaculty,
			Avatar:       "https://picsum.photos/seed/faculty2/200",
			Bio:          "Professor in the Business department.",
			Skills:       []string{"Business Strategy", "Economics"},
			Achievements: []string{`Author of "Modern Business"`},
		},
		{
			ID:           "admin01",
			Name:         "Mark Davis",
			Role:         models.RoleAdmin,
			Avatar:       "https://picsum.photos/seed/admin/200",
			Bio:          "Campus Administrator. Working to make our campus a better place for everyone.",
			Skills:       []string{"Management", "Public Relations", "Event Planning"},
			Achievements: []string{"Campus Improvement Award", "10 Years of Service"},
		},
	}

	following := map[string][]string{
		"student01": {"faculty01", "student02"},
		"student02": {"student01"},
		"student03": {"faculty01"},
		"faculty01": {"admin01"},
	}
	for _, u := range users {
		u.FollowingIDs = append([]string{}, following[u.ID]...)
		u.FollowerIDs = []string{}
		u.CreatedAt = now
	}
	for _, u := range users {
		for _, other := range users {
			if other.IsFollowing(u.ID) {
				u.FollowerIDs = append(u.FollowerIDs, other.ID)
			}
		}
		u.RecomputeFollowStats()
	}
	return users
}

// Credentials gives every user a login. Students sign in with their UUCMS
// number, everyone else with their user id.
func Credentials(users []*models.User, opts Options, now time.Time) ([]*models.Credential, error) {
	hash, err := auth.HashPasswordWithCost(opts.Password, opts.BcryptCost)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Credential, 0, len(users))
	for _, u := range users {
		identifier := u.ID
		if u.Role == models.RoleStudent {
			identifier = u.UUCMS
		}
		out = append(out, &models.Credential{
			ID:           u.ID,
			Identifier:   Identifier(identifier),
			Role:         u.Role,
			PasswordHash: hash,
			CreatedAt:    now,
		})
	}
	return out, nil
}

// Posts returns the demo feed; post02 and post03 are notices
func Posts(now time.Time) []*models.Post {
	return []*models.Post{
		{
			ID:           "post01",
			AuthorID:     "student01",
			MediaURL:     "https://picsum.photos/seed/post1/600/400",
			MediaType:    models.MediaImage,
			ThumbnailURL: "https://picsum.photos/seed/post1/600/400",
			Caption:      "Late night coding session for the final project. Wish me luck! ☕️💻 #cs #devlife",
			Likes:        []string{"faculty01", "student02"},
			Comments: []models.Comment{
				{ID: "c1", AuthorID: "faculty01", Text: "Looking great! Keep up the hard work.", Timestamp: now.Add(-time.Hour)},
				{ID: "c2", AuthorID: "student02", Text: "So cool! Good luck!", Timestamp: now.Add(-30 * time.Minute)},
			},
			Timestamp: now.Add(-2 * time.Hour),
		},
		{
			ID:           "post02",
			AuthorID:     "faculty01",
			MediaURL:     "https://storage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4",
			MediaType:    models.MediaVideo,
			ThumbnailURL: "https://storage.googleapis.com/gtv-videos-bucket/sample/images/BigBuckBunny.jpg",
			Caption:      "Reminder: The submission deadline for the CS101 project is this Friday. Please upload your work to the portal by 11:59 PM.",
			Likes:        []string{"student01", "student03", "admin01"},
			Comments: []models.Comment{
				{ID: "c3", AuthorID: "student01", Text: "Thanks for the reminder, Dr. Reed!", Timestamp: now.Add(-12 * time.Hour)},
			},
			Timestamp: now.Add(-24 * time.Hour),
			IsNotice:  true,
		},
		{
			ID:           "post03",
			AuthorID:     "admin01",
			MediaURL:     "https://picsum.photos/seed/post3/600/400",
			MediaType:    models.MediaImage,
			ThumbnailURL: "https://picsum.photos/seed/post3/600/400",
			Caption:      "Preparations for the annual college fest are in full swing! Get ready for an amazing week of events. #CampusFest2024",
			Likes:        []string{"student01", "student02", "faculty01"},
			Comments:     []models.Comment{},
			Timestamp:    now.Add(-72 * time.Hour),
			IsNotice:     true,
		},
	}
}

// Stories returns the demo story reel, all inside the 24h window
func Stories(now time.Time) []*models.Story {
	return []*models.Story{
		{ID: "story01", AuthorID: "faculty01", MediaURL: "https://picsum.photos/seed/story1/400/800", MediaType: models.MediaImage, Timestamp: now.Add(-3 * time.Hour)},
		{ID: "story02", AuthorID: "student02", MediaURL: "https://storage.googleapis.com/gtv-videos-bucket/sample/ForBiggerFun.mp4", MediaType: models.MediaVideo, Timestamp: now.Add(-5 * time.Hour)},
		{ID: "story03", AuthorID: "student02", MediaURL: "https://picsum.photos/seed/story3/400/800", MediaType: models.MediaImage, Timestamp: now.Add(-4 * time.Hour)},
	}
}

// Subjects returns the course catalogue
func Subjects() []*models.Subject {
	return []*models.Subject{
		{ID: "cs101", Name: "Data Structures", Code: "CS101"},
		{ID: "cs102", Name: "Algorithms", Code: "CS102"},
		{ID: "cs103", Name: "Database Systems", Code: "CS103"},
		{ID: "os201", Name: "Operating Systems", Code: "OS201"},
		{ID: "ba101", Name: "Marketing Principles", Code: "BA101"},
		{ID: "ba102", Name: "Microeconomics", Code: "BA102"},
	}
}

// Classrooms returns BCA - 2A and BBA - 2A with their timetables
func Classrooms() []*models.Classroom {
	return []*models.Classroom{
		{
			ID:            "bca_2a",
			Name:          "BCA - 2A",
			Department:    "Computer Applications",
			Semester:      2,
			Course:        "Bachelor of Computer Applications",
			CoordinatorID: "faculty01",
			StudentIDs:    []string{"student01", "student03"},
			SubjectIDs:    []string{"cs101", "cs102", "cs103"},
			Timetable: []models.TimetableSlot{
				slot(models.Monday, "10:00", "cs101", "faculty01"),
				slot(models.Tuesday, "11:00", "cs102", "faculty01"),
				slot(models.Wednesday, "09:00", "cs103", "faculty01"),
				slot(models.Thursday, "10:00", "cs101", "faculty01"),
				slot(models.Friday, "11:00", "cs102", "faculty01"),
			},
		},
		{
			ID:            "bba_2a",
			Name:          "BBA - 2A",
			Department:    "Business Administration",
			Semester:      2,
			Course:        "Bachelor of Business Administration",
			CoordinatorID: "faculty02",
			StudentIDs:    []string{"student02"},
			SubjectIDs:    []string{"ba101", "ba102"},
			Timetable: []models.TimetableSlot{
				slot(models.Monday, "10:00", "ba101", "faculty02"),
				slot(models.Tuesday, "11:00", "ba102", "faculty02"),
				slot(models.Wednesday, "09:00", "ba101", "faculty02"),
			},
		},
	}
}

// Assignments returns the demo coursework
func Assignments() []*models.Assignment {
	return []*models.Assignment{
		{
			ID:             "asg01",
			ClassroomID:    "bca_2a",
			SubjectID:      "cs101",
			FacultyID:      "faculty01",
			Title:          "Data Structures - Lab 1",
			Description:    "Implement a linked list with insert, delete, and search operations.",
			AssignedDate:   "2024-09-05",
			SubmissionDate: "2024-09-15",
		},
		{
			ID:             "asg02",
			ClassroomID:    "bca_2a",
			SubjectID:      "cs102",
			FacultyID:      "faculty01",
			Title:          "Algorithm Design Worksheet",
			Description:    "Solve the attached problems related to Big-O notation and recursion.",
			AssignedDate:   "2024-09-10",
			SubmissionDate: "2024-09-24",
		},
		{
			ID:             "asg03",
			ClassroomID:    "bba_2a",
			SubjectID:      "ba101",
			FacultyID:      "faculty02",
			Title:          "Marketing Plan Proposal",
			Description:    "Draft a one-page marketing plan for a fictional startup. Details in the portal.",
			AssignedDate:   "2024-09-01",
			SubmissionDate: "2024-09-20",
		},
	}
}

// Attendance returns student01's tallies
func Attendance() []*models.AttendanceRecord {
	rows := []struct {
		subjectID, subject string
		attended, total    int
	}{
		{"cs101", "Data Structures", 28, 30},
		{"cs102", "Algorithms", 25, 30},
		{"cs103", "Database Systems", 29, 30},
		{"os201", "Operating Systems", 22, 30},
	}
	out := make([]*models.AttendanceRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, &models.AttendanceRecord{
			ID:          models.AttendanceID("student01", r.subjectID),
			StudentID:   "student01",
			ClassroomID: "bca_2a",
			SubjectID:   r.subjectID,
			Subject:     r.subject,
			Attended:    r.attended,
			Total:       r.total,
		})
	}
	return out
}

// Identifier is the stored form of a login identifier
func Identifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func slot(day models.DayOfWeek, start, subjectID, facultyID string) models.TimetableSlot {
	end, _ := models.SlotEnd(start)
	return models.TimetableSlot{Day: day, StartTime: start, EndTime: end, SubjectID: subjectID, FacultyID: facultyID}
}

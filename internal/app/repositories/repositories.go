package repositories

import (
	"context"
	"fmt"

	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/db"
)

// Where filters documents by equality on indexed fields. A Member value matches
// when the field is an array containing it.
type Where map[string]any

// Member matches array fields that contain the value
type Member string

// Collection is the persistence contract every entity store satisfies
type Collection[T any] interface {
	// FindByID returns apperrors.ErrResourceNotFound when id is unknown.
	FindByID(ctx context.Context, id string) (*T, error)
	// Find returns documents matching every condition, ordered by id.
	Find(ctx context.Context, where Where) ([]*T, error)
	// Insert fails with apperrors.ErrResourceAlreadyExists on a duplicate id.
	Insert(ctx context.Context, doc *T) error
	// Replace fails with apperrors.ErrResourceNotFound when the id is unknown.
	Replace(ctx context.Context, doc *T) error
	// SaveAll upserts every document as one atomic unit.
	SaveAll(ctx context.Context, docs ...*T) error
	// Delete fails with apperrors.ErrResourceNotFound when the id is unknown.
	Delete(ctx context.Context, id string) error
	// DeleteAll removes every listed id as one atomic unit; unknown ids are skipped.
	DeleteAll(ctx context.Context, ids ...string) error
}

// Indexed fields per collection. Filters on any other field are rejected.
var (
	userIndexes       = []string{"role", "uucms", "classroomId", "followerIds", "followingIds"}
	credentialIndexes = []string{"identifier", "role"}
	postIndexes       = []string{"authorId", "isNotice", "likes"}
	storyIndexes      = []string{"authorId"}
	subjectIndexes    = []string{"code"}
	classroomIndexes  = []string{"department", "semester", "studentIds", "subjectIds", "coordinatorId"}
	assignmentIndexes = []string{"classroomId", "facultyId", "subjectId"}
	attendanceIndexes = []string{"studentId", "classroomId", "subjectId"}
)

// Repositories holds all the collections
type Repositories struct {
	Users       Collection[models.User]
	Credentials Collection[models.Credential]
	Posts       Collection[models.Post]
	Stories     Collection[models.Story]
	Subjects    Collection[models.Subject]
	Classrooms  Collection[models.Classroom]
	Assignments Collection[models.Assignment]
	Attendance  Collection[models.AttendanceRecord]
}

// NewMemoryRepositories builds process-local collections
func NewMemoryRepositories() *Repositories {
	return &Repositories{
		Users:       NewMemoryCollection("users", (*models.User).GetID, userIndexes...),
		Credentials: NewMemoryCollection("credentials", (*models.Credential).GetID, credentialIndexes...),
		Posts:       NewMemoryCollection("posts", (*models.Post).GetID, postIndexes...),
		Stories:     NewMemoryCollection("stories", (*models.Story).GetID, storyIndexes...),
		Subjects:    NewMemoryCollection("subjects", (*models.Subject).GetID, subjectIndexes...),
		Classrooms:  NewMemoryCollection("classrooms", (*models.Classroom).GetID, classroomIndexes...),
		Assignments: NewMemoryCollection("assignments", (*models.Assignment).GetID, assignmentIndexes...),
		Attendance:  NewMemoryCollection("attendance_records", (*models.AttendanceRecord).GetID, attendanceIndexes...),
	}
}

// NewPostgresRepositories builds collections backed by the document tables
func NewPostgresRepositories(database *db.PostgresDB) *Repositories {
	return &Repositories{
		Users:       NewPostgresCollection(database, "users", (*models.User).GetID, userIndexes...),
		Credentials: NewPostgresCollection(database, "credentials", (*models.Credential).GetID, credentialIndexes...),
		Posts:       NewPostgresCollection(database, "posts", (*models.Post).GetID, postIndexes...),
		Stories:     NewPostgresCollection(database, "stories", (*models.Story).GetID, storyIndexes...),
		Subjects:    NewPostgresCollection(database, "subjects", (*models.Subject).GetID, subjectIndexes...),
		Classrooms:  NewPostgresCollection(database, "classrooms", (*models.Classroom).GetID, classroomIndexes...),
		Assignments: NewPostgresCollection(database, "assignments", (*models.Assignment).GetID, assignmentIndexes...),
		Attendance:  NewPostgresCollection(database, "attendance_records", (*models.AttendanceRecord).GetID, attendanceIndexes...),
	}
}

func checkIndexed(collection string, indexed map[string]struct{}, where Where) error {
	for field := range where {
		if _, ok := indexed[field]; !ok {
			return fmt.Errorf("%s: field %q is not indexed", collection, field)
		}
	}
	return nil
}

func indexSet(fields []string) map[string]struct{} {
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

// Package services holds the business rules of the campus: identity and the
// follow graph, content engagement, academic scheduling, the onboarding state
// machine and report exports. Services are interfaces backed by unexported
// implementations; every mutation of an aggregate runs under its keylock.
package services

import (
	"context"
	"errors"
	"sort"

	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/app/repositories"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
)

// Notifier receives domain events for live delivery. The websocket hub implements it.
type Notifier interface {
	Publish(topic, event string, payload interface{})
}

type noopNotifier struct{}

func (noopNotifier) Publish(string, string, interface{}) {}

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// Topics and event names published to the Notifier
const (
	TopicFeed = "feed"

	EventPostCreated   = "post.created"
	EventNoticeCreated = "notice.created"
	EventPostLiked     = "post.liked"
	EventCommentAdded  = "comment.added"
	EventStoryCreated  = "story.created"
	EventFollowed      = "user.followed"
	EventEnrolled      = "classroom.enrolled"
)

// UserTopic is the private topic of one user
func UserTopic(userID string) string {
	return "user:" + userID
}

// Lock keys
func userKey(id string) string      { return "user:" + id }
func postKey(id string) string      { return "post:" + id }
func classroomKey(id string) string { return "classroom:" + id }
func cohortKey(c *models.Classroom) string {
	return "cohort:" + c.CohortKey()
}

// findUser maps a missing user onto ErrUserNotFound
func findUser(ctx context.Context, repo repositories.Collection[models.User], id string) (*models.User, error) {
	u, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func findClassroom(ctx context.Context, repo repositories.Collection[models.Classroom], id string) (*models.Classroom, error) {
	c, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.ErrClassroomNotFound
		}
		return nil, err
	}
	return c, nil
}

func findPost(ctx context.Context, repo repositories.Collection[models.Post], id string) (*models.Post, error) {
	p, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.ErrPostNotFound
		}
		return nil, err
	}
	return p, nil
}

func findSubject(ctx context.Context, repo repositories.Collection[models.Subject], id string) (*models.Subject, error) {
	s, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.ErrSubjectNotFound
		}
		return nil, err
	}
	return s, nil
}

// userIndex loads every user into a map keyed by id
func userIndex(ctx context.Context, repo repositories.Collection[models.User]) (map[string]*models.User, error) {
	users, err := repo.Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	index := make(map[string]*models.User, len(users))
	for _, u := range users {
		index[u.ID] = u
	}
	return index, nil
}

// sortPostsNewestFirst orders by timestamp descending, id breaking ties
func sortPostsNewestFirst(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].Timestamp.Equal(posts[j].Timestamp) {
			return posts[i].Timestamp.After(posts[j].Timestamp)
		}
		return posts[i].ID < posts[j].ID
	})
}

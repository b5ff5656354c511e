package services

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/app/models/dto"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
)

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.content.CreatePost(env.ctx, "student03", &dto.CreatePostRequest{
		Caption:  "  Graph algorithms study group tonight  ",
		MediaURL: "https://picsum.photos/seed/post4/600/400",
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if resp.MediaType != models.MediaImage {
		t.Errorf("media type = %q, want image", resp.MediaType)
	}
	if resp.Caption != "Graph algorithms study group tonight" {
		t.Errorf("caption = %q", resp.Caption)
	}
	if resp.Author.ID != "student03" || resp.Author.Name != "Sam Wilson" {
		t.Errorf("author = %+v", resp.Author)
	}
	if got := env.user(t, "student03").Stats.Posts; got != 1 {
		t.Errorf("post count = %d, want 1", got)
	}
	if !env.notifier.has(TopicFeed, EventPostCreated) {
		t.Error("expected a post.created event")
	}

	feed, err := env.content.ListFeed(env.ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListFeed: %v", err)
	}
	if feed.Posts[0].ID != resp.ID {
		t.Errorf("newest post should lead the feed, got %s", feed.Posts[0].ID)
	}
}

func TestCreatePostValidation(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.content.CreatePost(env.ctx, "student01", &dto.CreatePostRequest{MediaURL: " "}); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Errorf("missing media error = %v", err)
	}
	if _, err := env.content.CreatePost(env.ctx, "student01", &dto.CreatePostRequest{MediaURL: "x", MediaType: "gif"}); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Errorf("bad media type error = %v", err)
	}
	if _, err := env.content.CreatePost(env.ctx, "ghost", &dto.CreatePostRequest{MediaURL: "x"}); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Errorf("unknown author error = %v", err)
	}
}

func TestListNotices(t *testing.T) {
	env := newTestEnv(t)

	notices, err := env.content.ListNotices(env.ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListNotices: %v", err)
	}
	if got := postIDs(notices.Posts); !reflect.DeepEqual(got, []string{"post02", "post03"}) {
		t.Errorf("notices = %v", got)
	}

	created, err := env.content.CreatePost(env.ctx, "admin01", &dto.CreatePostRequest{
		Caption:  "Library closed on Friday.",
		MediaURL: "https://picsum.photos/seed/notice/600/400",
		IsNotice: true,
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if !env.notifier.has(TopicFeed, EventNoticeCreated) {
		t.Error("expected a notice.created event")
	}

	notices, err = env.content.ListNotices(env.ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListNotices: %v", err)
	}
	if got := postIDs(notices.Posts); !reflect.DeepEqual(got, []string{created.ID, "post02", "post03"}) {
		t.Errorf("notices = %v", got)
	}
}

func TestNoticesSequenceIsRestartable(t *testing.T) {
	env := newTestEnv(t)

	posts, err := env.repos.Posts.Find(env.ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	seq := Notices(posts)

	var first, second []string
	for p := range seq {
		first = append(first, p.ID)
	}
	for p := range seq {
		second = append(second, p.ID)
	}
	if !reflect.DeepEqual(first, []string{"post02", "post03"}) || !reflect.DeepEqual(first, second) {
		t.Errorf("first = %v, second = %v", first, second)
	}

	for p := range seq {
		if p.ID != "post02" {
			t.Errorf("first yielded %s", p.ID)
		}
		break
	}
}

func TestListFeedPagination(t *testing.T) {
	env := newTestEnv(t)

	page, err := env.content.ListFeed(env.ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListFeed: %v", err)
	}
	if got := postIDs(page.Posts); !reflect.DeepEqual(got, []string{"post01", "post02"}) {
		t.Errorf("page 1 = %v", got)
	}
	if page.Pagination.TotalItems != 3 || page.Pagination.TotalPages != 2 {
		t.Errorf("pagination = %+v", page.Pagination)
	}

	page, err = env.content.ListFeed(env.ctx, 2, 2)
	if err != nil {
		t.Fatalf("ListFeed: %v", err)
	}
	if got := postIDs(page.Posts); !reflect.DeepEqual(got, []string{"post03"}) {
		t.Errorf("page 2 = %v", got)
	}
}

func TestToggleLikeTwiceRestoresLikes(t *testing.T) {
	cases := []struct{ post, user string }{
		{"post01", "student03"}, // not yet liked
		{"post01", "faculty01"}, // already liked
		{"post03", "admin01"},
	}
	for _, tc := range cases {
		t.Run(tc.post+"/"+tc.user, func(t *testing.T) {
			env := newTestEnv(t)
			before := mustPost(t, env, tc.post).Likes

			first, err := env.content.ToggleLike(env.ctx, tc.post, tc.user)
			if err != nil {
				t.Fatalf("ToggleLike: %v", err)
			}
			if models.Contains(first.Likes, tc.user) == models.Contains(before, tc.user) {
				t.Error("first toggle did not flip membership")
			}
			if _, err := env.content.ToggleLike(env.ctx, tc.post, tc.user); err != nil {
				t.Fatalf("ToggleLike: %v", err)
			}

			after := mustPost(t, env, tc.post).Likes
			if len(after) != len(before) || !sameSet(after, before) {
				t.Errorf("likes = %v, want %v", after, before)
			}
		})
	}
}

func TestToggleLikeUnknown(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.content.ToggleLike(env.ctx, "missing", "student01"); !errors.Is(err, apperrors.ErrPostNotFound) {
		t.Errorf("unknown post error = %v", err)
	}
	if _, err := env.content.ToggleLike(env.ctx, "post01", "ghost"); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Errorf("unknown user error = %v", err)
	}
}

func TestAddComment(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.content.AddComment(env.ctx, "post03", "student01", "   "); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Errorf("blank comment error = %v", err)
	}

	resp, err := env.content.AddComment(env.ctx, "post03", "student01", "  Can't wait!  ")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if len(resp.Comments) != 1 {
		t.Fatalf("comments = %d, want 1", len(resp.Comments))
	}
	c := resp.Comments[0]
	if c.Text != "Can't wait!" || c.Author.ID != "student01" || !c.Timestamp.Equal(testNow) {
		t.Errorf("comment = %+v", c)
	}
	if !env.notifier.has(TopicFeed, EventCommentAdded) {
		t.Error("expected a comment.added event")
	}
}

func TestActiveStories(t *testing.T) {
	env := newTestEnv(t)

	stale := &models.Story{
		ID:        "story_old",
		AuthorID:  "admin01",
		MediaURL:  "https://picsum.photos/seed/old/400/800",
		MediaType: models.MediaImage,
		Timestamp: testNow.Add(-25 * time.Hour),
	}
	if err := env.repos.Stories.Insert(env.ctx, stale); err != nil {
		t.Fatal(err)
	}

	reel, err := env.content.ActiveStories(env.ctx, "student01")
	if err != nil {
		t.Fatalf("ActiveStories: %v", err)
	}
	if len(reel) != 2 {
		t.Fatalf("reel has %d authors, want 2", len(reel))
	}
	if reel[0].Author.ID != "faculty01" || reel[1].Author.ID != "student02" {
		t.Errorf("author order = %s, %s", reel[0].Author.ID, reel[1].Author.ID)
	}
	var order []string
	for _, s := range reel[1].Stories {
		order = append(order, s.ID)
	}
	if !reflect.DeepEqual(order, []string{"story02", "story03"}) {
		t.Errorf("student02 stories = %v", order)
	}

	reel, err = env.content.ActiveStories(env.ctx, "student02")
	if err != nil {
		t.Fatalf("ActiveStories: %v", err)
	}
	if len(reel) != 1 || reel[0].Author.ID != "faculty01" {
		t.Errorf("viewer's own stories should be excluded: %+v", reel)
	}

	env.clock.Advance(22 * time.Hour)
	stories, err := env.content.UserStories(env.ctx, "student02")
	if err != nil {
		t.Fatalf("UserStories: %v", err)
	}
	if len(stories) != 0 {
		t.Errorf("stories past the window still shown: %d", len(stories))
	}
}

func TestCreateStory(t *testing.T) {
	env := newTestEnv(t)

	story, err := env.content.CreateStory(env.ctx, "student03", &dto.CreateStoryRequest{
		MediaURL:  "https://example.com/clip.mp4",
		MediaType: models.MediaVideo,
	})
	if err != nil {
		t.Fatalf("CreateStory: %v", err)
	}
	if !story.ExpiresAt.Equal(testNow.Add(models.StoryWindow)) {
		t.Errorf("expires at %v", story.ExpiresAt)
	}

	own, err := env.content.UserStories(env.ctx, "student03")
	if err != nil {
		t.Fatalf("UserStories: %v", err)
	}
	if len(own) != 1 || own[0].ID != story.ID {
		t.Errorf("UserStories = %+v", own)
	}
}

func postIDs(posts []dto.PostResponse) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

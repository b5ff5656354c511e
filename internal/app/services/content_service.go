package services

import (
	"context"
	"iter"
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/app/models/dto"
	"github.com/yigit/campuskizuna/internal/app/repositories"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
	"github.com/yigit/campuskizuna/internal/pkg/helpers"
	"github.com/yigit/campuskizuna/internal/pkg/keylock"
)

// ContentService manages posts, stories, likes and comments
type ContentService interface {
	CreatePost(ctx context.Context, authorID string, req *dto.CreatePostRequest) (*dto.PostResponse, error)
	CreateStory(ctx context.Context, authorID string, req *dto.CreateStoryRequest) (*dto.StoryResponse, error)
	GetPost(ctx context.Context, postID string) (*dto.PostResponse, error)
	ToggleLike(ctx context.Context, postID, userID string) (*dto.PostResponse, error)
	AddComment(ctx context.Context, postID, authorID, text string) (*dto.PostResponse, error)
	ListFeed(ctx context.Context, page, size int) (*dto.PostListResponse, error)
	ListNotices(ctx context.Context, page, size int) (*dto.PostListResponse, error)
	ListUserPosts(ctx context.Context, authorID string) ([]dto.PostResponse, error)
	ActiveStories(ctx context.Context, viewerID string) ([]dto.StoryReelEntry, error)
	UserStories(ctx context.Context, authorID string) ([]dto.StoryResponse, error)
}

type contentServiceImpl struct {
	repos    *repositories.Repositories
	locks    *keylock.Locker
	clock    helpers.Clock
	notifier Notifier
	logger   zerolog.Logger
}

// NewContentService creates a new ContentService
func NewContentService(
	repos *repositories.Repositories,
	locks *keylock.Locker,
	clock helpers.Clock,
	notifier Notifier,
	logger zerolog.Logger,
) ContentService {
	return &contentServiceImpl{
		repos:    repos,
		locks:    locks,
		clock:    clock,
		notifier: notifierOrNoop(notifier),
		logger:   logger.With().Str("service", "content").Logger(),
	}
}

// Notices yields the notice posts of posts, newest first. The sequence is a
// pure view over a sorted copy and can be ranged over any number of times.
func Notices(posts []*models.Post) iter.Seq[*models.Post] {
	sorted := slices.Clone(posts)
	sortPostsNewestFirst(sorted)
	return func(yield func(*models.Post) bool) {
		for _, p := range sorted {
			if !p.IsNotice {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Feed yields every post newest first
func Feed(posts []*models.Post) iter.Seq[*models.Post] {
	sorted := slices.Clone(posts)
	sortPostsNewestFirst(sorted)
	return slices.Values(sorted)
}

func mediaTypeOrDefault(m models.MediaType) (models.MediaType, error) {
	if m == "" {
		return models.MediaImage, nil
	}
	if !m.Valid() {
		return "", apperrors.NewValidationError("mediaType", "media type must be image or video")
	}
	return m, nil
}

// CreatePost publishes a post and bumps the author's post counter
func (s *contentServiceImpl) CreatePost(ctx context.Context, authorID string, req *dto.CreatePostRequest) (*dto.PostResponse, error) {
	mediaURL := strings.TrimSpace(req.MediaURL)
	if mediaURL == "" {
		return nil, apperrors.NewValidationError("mediaUrl", "media reference is required")
	}
	mediaType, err := mediaTypeOrDefault(req.MediaType)
	if err != nil {
		return nil, err
	}

	// RemoveUser holds the same key while it deletes the author's posts
	unlock := s.locks.Lock(userKey(authorID))
	author, err := findUser(ctx, s.repos.Users, authorID)
	if err != nil {
		unlock()
		return nil, err
	}

	post := &models.Post{
		ID:           models.NewID(models.PrefixPost),
		AuthorID:     authorID,
		MediaURL:     mediaURL,
		MediaType:    mediaType,
		ThumbnailURL: strings.TrimSpace(req.ThumbnailURL),
		Caption:      strings.TrimSpace(req.Caption),
		Likes:        []string{},
		Comments:     []models.Comment{},
		Timestamp:    s.clock.Now().UTC(),
		IsNotice:     req.IsNotice,
	}
	if err := s.repos.Posts.Insert(ctx, post); err != nil {
		unlock()
		s.logger.Error().Err(err).Str("authorID", authorID).Msg("Failed to create post")
		return nil, err
	}

	author.Stats.Posts++
	if err := s.repos.Users.Replace(ctx, author); err != nil {
		s.logger.Warn().Err(err).Str("authorID", authorID).Msg("Post created but author counter not updated")
	}
	unlock()

	resp := dto.NewPostResponse(post, map[string]*models.User{authorID: author})
	s.logger.Info().Str("postID", post.ID).Str("authorID", authorID).Bool("notice", post.IsNotice).Msg("Post created")

	event := EventPostCreated
	if post.IsNotice {
		event = EventNoticeCreated
	}
	s.notifier.Publish(TopicFeed, event, resp)
	return &resp, nil
}

// CreateStory publishes a story into the author's reel
func (s *contentServiceImpl) CreateStory(ctx context.Context, authorID string, req *dto.CreateStoryRequest) (*dto.StoryResponse, error) {
	mediaURL := strings.TrimSpace(req.MediaURL)
	if mediaURL == "" {
		return nil, apperrors.NewValidationError("mediaUrl", "media reference is required")
	}
	mediaType, err := mediaTypeOrDefault(req.MediaType)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(userKey(authorID))
	author, err := findUser(ctx, s.repos.Users, authorID)
	if err != nil {
		unlock()
		return nil, err
	}

	story := &models.Story{
		ID:        models.NewID(models.PrefixStory),
		AuthorID:  authorID,
		MediaURL:  mediaURL,
		MediaType: mediaType,
		Timestamp: s.clock.Now().UTC(),
	}
	err = s.repos.Stories.Insert(ctx, story)
	unlock()
	if err != nil {
		s.logger.Error().Err(err).Str("authorID", authorID).Msg("Failed to create story")
		return nil, err
	}

	resp := dto.NewStoryResponse(story, author)
	s.notifier.Publish(TopicFeed, EventStoryCreated, resp)
	return &resp, nil
}

// GetPost returns one post with authors resolved
func (s *contentServiceImpl) GetPost(ctx context.Context, postID string) (*dto.PostResponse, error) {
	post, err := findPost(ctx, s.repos.Posts, postID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, post)
}

// ToggleLike flips userID's membership in the post's likes
func (s *contentServiceImpl) ToggleLike(ctx context.Context, postID, userID string) (*dto.PostResponse, error) {
	unlock := s.locks.Lock(userKey(userID), postKey(postID))
	if _, err := findUser(ctx, s.repos.Users, userID); err != nil {
		unlock()
		return nil, err
	}
	post, err := findPost(ctx, s.repos.Posts, postID)
	if err != nil {
		unlock()
		return nil, err
	}

	liked := !post.LikedBy(userID)
	if liked {
		post.Likes = models.WithAdded(post.Likes, userID)
	} else {
		post.Likes = models.Without(post.Likes, userID)
	}
	err = s.repos.Posts.Replace(ctx, post)
	unlock()
	if err != nil {
		s.logger.Error().Err(err).Str("postID", postID).Msg("Failed to toggle like")
		return nil, err
	}

	resp, err := s.resolve(ctx, post)
	if err != nil {
		return nil, err
	}
	if liked {
		s.notifier.Publish(UserTopic(post.AuthorID), EventPostLiked, map[string]string{"postId": postID, "userId": userID})
	}
	return resp, nil
}

// AddComment appends a comment to the post
func (s *contentServiceImpl) AddComment(ctx context.Context, postID, authorID, text string) (*dto.PostResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("text", "comment text must not be empty")
	}
	unlock := s.locks.Lock(userKey(authorID), postKey(postID))
	if _, err := findUser(ctx, s.repos.Users, authorID); err != nil {
		unlock()
		return nil, err
	}
	post, err := findPost(ctx, s.repos.Posts, postID)
	if err != nil {
		unlock()
		return nil, err
	}

	comment := models.Comment{
		ID:        models.NewID(models.PrefixComment),
		AuthorID:  authorID,
		Text:      text,
		Timestamp: s.clock.Now().UTC(),
	}
	post.Comments = append(post.Comments, comment)
	err = s.repos.Posts.Replace(ctx, post)
	unlock()
	if err != nil {
		s.logger.Error().Err(err).Str("postID", postID).Msg("Failed to add comment")
		return nil, err
	}

	resp, err := s.resolve(ctx, post)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(TopicFeed, EventCommentAdded, map[string]interface{}{"postId": postID, "comment": resp.Comments[len(resp.Comments)-1]})
	return resp, nil
}

// ListFeed pages through every post, newest first
func (s *contentServiceImpl) ListFeed(ctx context.Context, page, size int) (*dto.PostListResponse, error) {
	posts, err := s.repos.Posts.Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, slices.Collect(Feed(posts)), page, size)
}

// ListNotices pages through notice posts, newest first
func (s *contentServiceImpl) ListNotices(ctx context.Context, page, size int) (*dto.PostListResponse, error) {
	posts, err := s.repos.Posts.Find(ctx, repositories.Where{"isNotice": true})
	if err != nil {
		return nil, err
	}
	return s.page(ctx, slices.Collect(Notices(posts)), page, size)
}

// ListUserPosts returns the posts of one author, newest first
func (s *contentServiceImpl) ListUserPosts(ctx context.Context, authorID string) ([]dto.PostResponse, error) {
	if _, err := findUser(ctx, s.repos.Users, authorID); err != nil {
		return nil, err
	}
	posts, err := s.repos.Posts.Find(ctx, repositories.Where{"authorId": authorID})
	if err != nil {
		return nil, err
	}
	sortPostsNewestFirst(posts)
	return s.resolveAll(ctx, posts)
}

// ActiveStories builds the story reel: stories inside the viewing window grouped
// by author, leaving out the viewer's own. Authors with the freshest story come
// first; within an author stories play oldest first.
func (s *contentServiceImpl) ActiveStories(ctx context.Context, viewerID string) ([]dto.StoryReelEntry, error) {
	stories, err := s.repos.Stories.Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	users, err := userIndex(ctx, s.repos.Users)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	byAuthor := make(map[string][]*models.Story)
	for _, st := range stories {
		if st.AuthorID == viewerID || !st.ActiveAt(now) {
			continue
		}
		byAuthor[st.AuthorID] = append(byAuthor[st.AuthorID], st)
	}

	reel := make([]dto.StoryReelEntry, 0, len(byAuthor))
	latest := make(map[string]int64, len(byAuthor))
	for authorID, group := range byAuthor {
		sortStoriesOldestFirst(group)
		entry := dto.StoryReelEntry{Author: dto.NewUserSummary(users[authorID])}
		for _, st := range group {
			entry.Stories = append(entry.Stories, dto.NewStoryResponse(st, users[authorID]))
		}
		latest[authorID] = group[len(group)-1].Timestamp.UnixNano()
		reel = append(reel, entry)
	}
	sort.SliceStable(reel, func(i, j int) bool {
		li, lj := latest[reel[i].Author.ID], latest[reel[j].Author.ID]
		if li != lj {
			return li > lj
		}
		return reel[i].Author.ID < reel[j].Author.ID
	})
	return reel, nil
}

// UserStories returns one author's active stories, oldest first
func (s *contentServiceImpl) UserStories(ctx context.Context, authorID string) ([]dto.StoryResponse, error) {
	author, err := findUser(ctx, s.repos.Users, authorID)
	if err != nil {
		return nil, err
	}
	stories, err := s.repos.Stories.Find(ctx, repositories.Where{"authorId": authorID})
	if err != nil {
		return nil, err
	}
	sortStoriesOldestFirst(stories)

	now := s.clock.Now()
	out := make([]dto.StoryResponse, 0, len(stories))
	for _, st := range stories {
		if st.ActiveAt(now) {
			out = append(out, dto.NewStoryResponse(st, author))
		}
	}
	return out, nil
}

func (s *contentServiceImpl) page(ctx context.Context, posts []*models.Post, page, size int) (*dto.PostListResponse, error) {
	items, info := helpers.Paginate(posts, page, size)
	resolved, err := s.resolveAll(ctx, items)
	if err != nil {
		return nil, err
	}
	return &dto.PostListResponse{Posts: resolved, Pagination: info}, nil
}

func (s *contentServiceImpl) resolve(ctx context.Context, post *models.Post) (*dto.PostResponse, error) {
	out, err := s.resolveAll(ctx, []*models.Post{post})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// resolveAll attaches live author records to posts and their comments
func (s *contentServiceImpl) resolveAll(ctx context.Context, posts []*models.Post) ([]dto.PostResponse, error) {
	users, err := userIndex(ctx, s.repos.Users)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, dto.NewPostResponse(p, users))
	}
	return out, nil
}

func sortStoriesOldestFirst(stories []*models.Story) {
	sort.SliceStable(stories, func(i, j int) bool {
		if !stories[i].Timestamp.Equal(stories[j].Timestamp) {
			return stories[i].Timestamp.Before(stories[j].Timestamp)
		}
		return stories[i].ID < stories[j].ID
	})
}

package dto

import (
	"time"

	"github.com/yigit/campuskizuna/internal/app/models"
)

// CreatePostRequest creates a feed post. MediaURL is a reference already resolved by
// the media storage collaborator.
type CreatePostRequest struct {
	Caption      string           `json:"caption" binding:"max=2200"`
	MediaURL     string           `json:"mediaUrl" binding:"required"`
	MediaType    models.MediaType `json:"mediaType" binding:"omitempty,oneof=image video"`
	ThumbnailURL string           `json:"thumbnailUrl"`
	IsNotice     bool             `json:"isNotice"`
}

// CreateStoryRequest creates a story
type CreateStoryRequest struct {
	MediaURL  string           `json:"mediaUrl" binding:"required"`
	MediaType models.MediaType `json:"mediaType" binding:"omitempty,oneof=image video"`
}

// AddCommentRequest appends a comment to a post
type AddCommentRequest struct {
	Text string `json:"text" binding:"required,max=1000"`
}

// CommentResponse is a comment with its author resolved
type CommentResponse struct {
	ID        string      `json:"id"`
	Author    UserSummary `json:"author"`
	Text      string      `json:"text"`
	Timestamp time.Time   `json:"timestamp"`
}

// PostResponse is a post with author and commenters resolved at read time
type PostResponse struct {
	ID           string            `json:"id" example:"post01"`
	Author       UserSummary       `json:"author"`
	MediaURL     string            `json:"mediaUrl"`
	MediaType    models.MediaType  `json:"mediaType" example:"image"`
	ThumbnailURL string            `json:"thumbnailUrl,omitempty"`
	Caption      string            `json:"caption"`
	Likes        []string          `json:"likes"`
	LikeCount    int               `json:"likeCount"`
	Comments     []CommentResponse `json:"comments"`
	Timestamp    time.Time         `json:"timestamp"`
	IsNotice     bool              `json:"isNotice"`
}

// PostListResponse is one page of the feed or notices
type PostListResponse struct {
	Posts      []PostResponse `json:"posts"`
	Pagination PaginationInfo `json:"pagination"`
}

// StoryResponse is a story with its author resolved
type StoryResponse struct {
	ID        string           `json:"id"`
	Author    UserSummary      `json:"author"`
	MediaURL  string           `json:"mediaUrl"`
	MediaType models.MediaType `json:"mediaType"`
	Timestamp time.Time        `json:"timestamp"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

// StoryReelEntry groups one author's active stories, oldest first
type StoryReelEntry struct {
	Author  UserSummary     `json:"author"`
	Stories []StoryResponse `json:"stories"`
}

// NewPostResponse resolves a post against the supplied author lookup
func NewPostResponse(p *models.Post, users map[string]*models.User) PostResponse {
	comments := make([]CommentResponse, 0, len(p.Comments))
	for _, c := range p.Comments {
		comments = append(comments, CommentResponse{
			ID:        c.ID,
			Author:    NewUserSummary(users[c.AuthorID]),
			Text:      c.Text,
			Timestamp: c.Timestamp,
		})
	}
	return PostResponse{
		ID:           p.ID,
		Author:       NewUserSummary(users[p.AuthorID]),
		MediaURL:     p.MediaURL,
		MediaType:    p.MediaType,
		ThumbnailURL: p.ThumbnailURL,
		Caption:      p.Caption,
		Likes:        nonNil(p.Likes),
		LikeCount:    len(p.Likes),
		Comments:     comments,
		Timestamp:    p.Timestamp,
		IsNotice:     p.IsNotice,
	}
}

// NewStoryResponse resolves a story against its author
func NewStoryResponse(s *models.Story, author *models.User) StoryResponse {
	return StoryResponse{
		ID:        s.ID,
		Author:    NewUserSummary(author),
		MediaURL:  s.MediaURL,
		MediaType: s.MediaType,
		Timestamp: s.Timestamp,
		ExpiresAt: s.Timestamp.Add(models.StoryWindow),
	}
}

package models

import "time"

// StoryWindow is how long a story stays in the reel
const StoryWindow = 24 * time.Hour

// Comment is an attributed reply owned by exactly one post
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Post is a feed entry. Notices are posts flagged for campus-wide announcement.
type Post struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"authorId"`
	MediaURL     string    `json:"mediaUrl"`
	MediaType    MediaType `json:"mediaType"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	Caption      string    `json:"caption"`
	Likes        []string  `json:"likes"`
	Comments     []Comment `json:"comments"`
	Timestamp    time.Time `json:"timestamp"`
	IsNotice     bool      `json:"isNotice"`
}

// GetID returns the document id
func (p *Post) GetID() string { return p.ID }

// LikedBy reports whether userID has liked the post
func (p *Post) LikedBy(userID string) bool {
	return Contains(p.Likes, userID)
}

// Story is an ephemeral media post
type Story struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	MediaURL  string    `json:"mediaUrl"`
	MediaType MediaType `json:"mediaType"`
	Timestamp time.Time `json:"timestamp"`
}

// GetID returns the document id
func (s *Story) GetID() string { return s.ID }

// ActiveAt reports whether the story is still inside its viewing window at now
func (s *Story) ActiveAt(now time.Time) bool {
	return !s.Timestamp.After(now) && now.Sub(s.Timestamp) < StoryWindow
}

package seriesnet

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"
)

const backendTimestampLayout = "2006-01-02 15:04:05"

// Reaction targets accepted by the likes, dislikes and comments endpoints.
const (
	TargetPost    = "post"
	TargetEpisode = "episode"
)

// Auth is the payload returned by /login and /register.
type Auth struct {
	Token  string `json:"token"`
	Role   string `json:"role"`
	UserID string `json:"_id"`
	Image  string `json:"image"`
}

// UserRef describes a user as embedded in other payloads.
type UserRef struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Profile  string `json:"profile"`
	Gender   string `json:"gender"`
	Role     string `json:"role"`
	IsOnline bool   `json:"isOnline"`
}

// UnmarshalJSON accepts either a populated user object or a bare id.
func (u *UserRef) UnmarshalJSON(data []byte) error {
	if id, ok := bareString(data); ok {
		*u = UserRef{ID: id}
		return nil
	}
	type plain UserRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = UserRef(p)
	return nil
}

// Comment is one entry in a post or episode thread.
type Comment struct {
	ID        string  `json:"_id"`
	Author    UserRef `json:"user"`
	Content   string  `json:"content"`
	CreatedAt string  `json:"createDate"`
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (c Comment) ParsedCreatedAt() time.Time {
	return parseTime(c.CreatedAt)
}

// Post mirrors the feed entries served by /posts.
type Post struct {
	ID           string    `json:"_id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Tags         []string  `json:"tags"`
	Images       []string  `json:"images"`
	Announcement bool      `json:"announcement"`
	Author       UserRef   `json:"user"`
	Likes        []string  `json:"likes"`
	Dislikes     []string  `json:"dislikes"`
	Comments     []Comment `json:"comments"`
	CreatedAt    string    `json:"createDate"`
	UpdatedAt    string    `json:"updateDate"`
}

// LikedBy reports whether userID liked the post.
func (p Post) LikedBy(userID string) bool {
	return userID != "" && slices.Contains(p.Likes, userID)
}

// DislikedBy reports whether userID disliked the post.
func (p Post) DislikedBy(userID string) bool {
	return userID != "" && slices.Contains(p.Dislikes, userID)
}

// Edited reports whether the post was updated after creation.
func (p Post) Edited() bool {
	return p.UpdatedAt != "" && p.UpdatedAt != p.CreatedAt
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (p Post) ParsedCreatedAt() time.Time {
	return parseTime(p.CreatedAt)
}

// ParsedUpdatedAt returns the parsed UpdatedAt timestamp.
func (p Post) ParsedUpdatedAt() time.Time {
	return parseTime(p.UpdatedAt)
}

// Genre is a series category.
type Genre struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// GenreRef is a genre as referenced from a series. Ids are canonical; a bare
// string in the payload is read as an id.
type GenreRef struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON accepts either a genre object or a bare id.
func (g *GenreRef) UnmarshalJSON(data []byte) error {
	if id, ok := bareString(data); ok {
		*g = GenreRef{ID: id}
		return nil
	}
	type plain GenreRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*g = GenreRef(p)
	return nil
}

// EpisodeRef is the summary of an episode listed on a series.
type EpisodeRef struct {
	ID     string `json:"_id"`
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// Series mirrors /animes entries.
type Series struct {
	ID          string       `json:"_id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Genres      []GenreRef   `json:"genres"`
	Poster      string       `json:"poster"`
	Background  string       `json:"background"`
	Popularity  int          `json:"popularity"`
	Episodes    []EpisodeRef `json:"episodes,omitempty"`
}

// HasGenre reports whether the series is tagged with genreID.
func (s Series) HasGenre(genreID string) bool {
	for _, g := range s.Genres {
		if g.ID == genreID {
			return true
		}
	}
	return false
}

// Episode mirrors /episodes/:id.
type Episode struct {
	ID       string    `json:"_id"`
	SeriesID string    `json:"anime"`
	Video    string    `json:"video"`
	Number   int       `json:"number"`
	Title    string    `json:"title"`
	Likes    []string  `json:"likes"`
	Dislikes []string  `json:"dislikes"`
	Comments []Comment `json:"comments"`
}

// LikedBy reports whether userID liked the episode.
func (e Episode) LikedBy(userID string) bool {
	return userID != "" && slices.Contains(e.Likes, userID)
}

// DislikedBy reports whether userID disliked the episode.
func (e Episode) DislikedBy(userID string) bool {
	return userID != "" && slices.Contains(e.Dislikes, userID)
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Msg string `json:"msg"`
}

func bareString(data []byte) (string, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", false
	}
	return s, true
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(backendTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

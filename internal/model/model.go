package model

import (
	"io"
	"time"
)

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type Group struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// Post is always loaded with its author; Group is nil for ungrouped posts and
// Image is empty when nothing is attached.
type Post struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text"`
	PubDate time.Time `json:"pub_date"`
	Author  User      `json:"author"`
	Group   *Group    `json:"group,omitempty"`
	Image   string    `json:"image,omitempty"`
}

const excerptLen = 15

// Excerpt returns the first runes of the text, enough to identify a post in listings.
func (p Post) Excerpt() string {
	r := []rune(p.Text)
	if len(r) <= excerptLen {
		return p.Text
	}
	return string(r[:excerptLen])
}

// GroupID returns the id of the post's group or nil.
func (p Post) GroupID() *int64 {
	if p.Group == nil {
		return nil
	}
	id := p.Group.ID
	return &id
}

type Comment struct {
	ID      int64     `json:"id"`
	PostID  int64     `json:"post_id"`
	Author  User      `json:"author"`
	Text    string    `json:"text"`
	Created time.Time `json:"created"`
}

// PostFilter narrows a post listing; nil fields match everything.
type PostFilter struct {
	GroupID  *int64
	AuthorID *int64
}

// ImageUpload carries image bytes to the blob store. The core never reads Body.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

package repository

import (
	"context"
	"errors"

	"github.com/gfdmit/yatube/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a unique constraint violation (group slug, username).
	ErrConflict = errors.New("already exists")
)

type Users interface {
	CreateUser(ctx context.Context, username string) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// DeleteUser removes the user together with their posts and comments.
	DeleteUser(ctx context.Context, id int64) error
}

type Groups interface {
	CreateGroup(ctx context.Context, g *model.Group) (*model.Group, error)
	GetGroup(ctx context.Context, id int64) (*model.Group, error)
	GetGroupBySlug(ctx context.Context, slug string) (*model.Group, error)
	ListGroups(ctx context.Context) ([]model.Group, error)
	// DeleteGroup detaches the group's posts and then removes the group.
	DeleteGroup(ctx context.Context, id int64) error
}

type Posts interface {
	CreatePost(ctx context.Context, p *model.Post) (*model.Post, error)
	// UpdatePost writes text, group and image only.
	UpdatePost(ctx context.Context, p *model.Post) (*model.Post, error)
	GetPost(ctx context.Context, id int64) (*model.Post, error)
	CountPosts(ctx context.Context, f model.PostFilter) (int, error)
	// ListPosts returns posts newest first, ties broken by id descending.
	ListPosts(ctx context.Context, f model.PostFilter, offset, limit int) ([]model.Post, error)
}

type Comments interface {
	CreateComment(ctx context.Context, c *model.Comment) (*model.Comment, error)
	ListComments(ctx context.Context, postID int64) ([]model.Comment, error)
}

type Repository interface {
	Users
	Groups
	Posts
	Comments
}

// Media stores post images and hands back an opaque key.
type Media interface {
	PutImage(ctx context.Context, upload model.ImageUpload) (string, error)
	// ImageURL returns a temporary download link for a stored key.
	ImageURL(ctx context.Context, key string) (string, error)
	DeleteImage(ctx context.Context, key string) error
}

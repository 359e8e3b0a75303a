package service

import (
	"errors"
	"fmt"

	"github.com/gfdmit/yatube/internal/model"
	"github.com/gfdmit/yatube/internal/repository"
	"github.com/gfdmit/yatube/internal/validation"
)

// Route names a page the caller should send the user to.
type Route string

const (
	RouteProfile    Route = "profile"
	RoutePostDetail Route = "post_detail"
	RoutePostCreate Route = "post_create"
	RouteLogin      Route = "login"
)

// Reason tells why a redirect was issued.
type Reason string

const (
	ReasonCreated       Reason = "created"
	ReasonUpdated       Reason = "updated"
	ReasonForbiddenEdit Reason = "forbidden_edit"
	ReasonCommented     Reason = "commented"
	ReasonLogin         Reason = "login_required"
)

type Redirect struct {
	Route    Route  `json:"route"`
	Username string `json:"username,omitempty"`
	PostID   int64  `json:"post_id,omitempty"`
	Reason   Reason `json:"reason"`
}

var (
	// ErrNotFound is returned when the post, group or user named by a request
	// does not exist. It is the repository sentinel so errors.Is matches both.
	ErrNotFound = repository.ErrNotFound

	ErrAuthorizationRequired = errors.New("authorization required")
)

// AuthRequiredError is returned when an anonymous actor attempts an action
// reserved for signed-in users. Login is where to send them and Next is where
// to return afterwards.
type AuthRequiredError struct {
	Next Redirect
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("%v: %s", ErrAuthorizationRequired, e.Next.Route)
}

func (e *AuthRequiredError) Unwrap() error {
	return ErrAuthorizationRequired
}

func (e *AuthRequiredError) Login() Redirect {
	return Redirect{Route: RouteLogin, Reason: ReasonLogin}
}

func authRequired(next Redirect) error {
	return &AuthRequiredError{Next: next}
}

// PostInput is the post form. Upload carries new image bytes; Image is a
// reference to an already stored image.
type PostInput struct {
	Text    string             `json:"text"`
	GroupID *int64             `json:"group,omitempty"`
	Image   string             `json:"image,omitempty"`
	Upload  *model.ImageUpload `json:"-"`
}

// PostForm is returned instead of a redirect when the submitted post is
// invalid. Values echoes the submission unchanged.
type PostForm struct {
	Errors validation.Errors `json:"errors"`
	Values PostInput         `json:"values"`
	IsEdit bool              `json:"is_edit"`
	PostID int64             `json:"post_id,omitempty"`
}

// PostOutcome holds either a redirect (with the stored post) or a form to
// render again.
type PostOutcome struct {
	Post     *model.Post `json:"post,omitempty"`
	Redirect *Redirect   `json:"redirect,omitempty"`
	Form     *PostForm   `json:"form,omitempty"`
}

func (o PostOutcome) Invalid() bool {
	return o.Form != nil
}

type CommentInput struct {
	Text string `json:"text"`
}

type CommentForm struct {
	Errors validation.Errors `json:"errors"`
	Values CommentInput      `json:"values"`
	PostID int64             `json:"post_id"`
}

type CommentOutcome struct {
	Comment  *model.Comment `json:"comment,omitempty"`
	Redirect *Redirect      `json:"redirect,omitempty"`
	Form     *CommentForm   `json:"form,omitempty"`
}

func (o CommentOutcome) Invalid() bool {
	return o.Form != nil
}

type GroupInput struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type GroupForm struct {
	Errors validation.Errors `json:"errors"`
	Values GroupInput        `json:"values"`
}

type GroupOutcome struct {
	Group *model.Group `json:"group,omitempty"`
	Form  *GroupForm   `json:"form,omitempty"`
}

func (o GroupOutcome) Invalid() bool {
	return o.Form != nil
}

// Package policy decides who may create, edit and comment on posts.
// Every check is a total function of its arguments.
package policy

import "github.com/gfdmit/yatube/internal/model"

// Actor is the identity behind a request. The zero value is the anonymous actor.
type Actor struct {
	UserID   int64
	Username string
}

var Anonymous = Actor{}

// ActorFor builds the actor for an authenticated user.
func ActorFor(u model.User) Actor {
	return Actor{UserID: u.ID, Username: u.Username}
}

func (a Actor) Authenticated() bool {
	return a.UserID != 0
}

func CanCreatePost(a Actor) bool {
	return a.Authenticated()
}

// CanEditPost is true only for the author of the post.
func CanEditPost(a Actor, p model.Post) bool {
	return a.Authenticated() && a.UserID == p.Author.ID
}

func CanComment(a Actor) bool {
	return a.Authenticated()
}

package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gfdmit/yatube/internal/model"
	"github.com/gfdmit/yatube/internal/policy"
	"github.com/gfdmit/yatube/internal/repository"
	"github.com/gfdmit/yatube/internal/validation"
)

const (
	msgInvalidGroup   = "Select a valid choice. That choice is not one of the available choices."
	msgUploadDisabled = "Image uploads are not available."
)

// PostDetail is everything the post page shows.
type PostDetail struct {
	Post            model.Post      `json:"post"`
	Comments        []model.Comment `json:"comments"`
	AuthorPostCount int             `json:"author_post_count"`
	ImageURL        string          `json:"image_url,omitempty"`
}

// CreatePost publishes a post written by actor. Anonymous actors get an
// *AuthRequiredError; an invalid submission comes back as a form.
func (svc *Service) CreatePost(ctx context.Context, actor policy.Actor, in PostInput) (PostOutcome, error) {
	if !policy.CanCreatePost(actor) {
		return PostOutcome{}, authRequired(Redirect{Route: RoutePostCreate})
	}

	text, group, errs, err := svc.checkPost(ctx, in)
	if err != nil {
		return PostOutcome{}, err
	}
	if len(errs) > 0 {
		return PostOutcome{Form: &PostForm{Errors: errs, Values: in}}, nil
	}

	image := in.Image
	uploaded := ""
	if in.Upload != nil {
		if image, err = svc.media.PutImage(ctx, *in.Upload); err != nil {
			return PostOutcome{}, fmt.Errorf("store image: %w", err)
		}
		uploaded = image
	}

	created, err := svc.repo.CreatePost(ctx, &model.Post{
		Text:    text,
		PubDate: svc.now(),
		Author:  model.User{ID: actor.UserID, Username: actor.Username},
		Group:   group,
		Image:   image,
	})
	if err != nil {
		svc.discardImage(ctx, uploaded)
		if errors.Is(err, repository.ErrNotFound) && svc.groupGone(ctx, in.GroupID) {
			// the group went away between the check and the insert
			errs.Add("group", msgInvalidGroup)
			return PostOutcome{Form: &PostForm{Errors: errs, Values: in}}, nil
		}
		return PostOutcome{}, fmt.Errorf("create post: %w", err)
	}

	svc.log.Info("post created",
		zap.Int64("post_id", created.ID),
		zap.Int64("author_id", actor.UserID),
	)
	return PostOutcome{
		Post: created,
		Redirect: &Redirect{
			Route:    RouteProfile,
			Username: created.Author.Username,
			Reason:   ReasonCreated,
		},
	}, nil
}

// EditPost replaces the text, group and image of a post. Anonymous actors get
// an *AuthRequiredError; other users are sent to the post page and nothing
// changes. An empty Image with no Upload keeps the current image.
func (svc *Service) EditPost(ctx context.Context, actor policy.Actor, postID int64, in PostInput) (PostOutcome, error) {
	if !actor.Authenticated() {
		return PostOutcome{}, authRequired(Redirect{Route: RoutePostDetail, PostID: postID})
	}

	post, err := svc.repo.GetPost(ctx, postID)
	if err != nil {
		return PostOutcome{}, fmt.Errorf("post %d: %w", postID, err)
	}

	if !policy.CanEditPost(actor, *post) {
		svc.log.Warn("edit by non-author redirected",
			zap.Int64("post_id", postID),
			zap.Int64("actor_id", actor.UserID),
		)
		return PostOutcome{
			Post:     post,
			Redirect: &Redirect{Route: RoutePostDetail, PostID: postID, Reason: ReasonForbiddenEdit},
		}, nil
	}

	text, group, errs, err := svc.checkPost(ctx, in)
	if err != nil {
		return PostOutcome{}, err
	}
	form := func() PostOutcome {
		return PostOutcome{Form: &PostForm{Errors: errs, Values: in, IsEdit: true, PostID: postID}}
	}
	if len(errs) > 0 {
		return form(), nil
	}

	edit := *post
	edit.Text = text
	edit.Group = group
	uploaded := ""
	switch {
	case in.Upload != nil:
		if edit.Image, err = svc.media.PutImage(ctx, *in.Upload); err != nil {
			return PostOutcome{}, fmt.Errorf("store image: %w", err)
		}
		uploaded = edit.Image
	case in.Image != "":
		edit.Image = in.Image
	}

	updated, err := svc.repo.UpdatePost(ctx, &edit)
	if err != nil {
		svc.discardImage(ctx, uploaded)
		if errors.Is(err, repository.ErrNotFound) && svc.groupGone(ctx, in.GroupID) {
			errs.Add("group", msgInvalidGroup)
			return form(), nil
		}
		return PostOutcome{}, fmt.Errorf("update post %d: %w", postID, err)
	}

	svc.log.Info("post updated", zap.Int64("post_id", postID), zap.Int64("author_id", actor.UserID))
	return PostOutcome{
		Post:     updated,
		Redirect: &Redirect{Route: RoutePostDetail, PostID: postID, Reason: ReasonUpdated},
	}, nil
}

// GetPost loads a post with its comments, oldest comment first.
func (svc *Service) GetPost(ctx context.Context, postID int64) (PostDetail, error) {
	post, err := svc.repo.GetPost(ctx, postID)
	if err != nil {
		return PostDetail{}, fmt.Errorf("post %d: %w", postID, err)
	}

	comments, err := svc.repo.ListComments(ctx, postID)
	if err != nil {
		return PostDetail{}, fmt.Errorf("comments of post %d: %w", postID, err)
	}

	authorID := post.Author.ID
	count, err := svc.repo.CountPosts(ctx, model.PostFilter{AuthorID: &authorID})
	if err != nil {
		return PostDetail{}, fmt.Errorf("count posts: %w", err)
	}

	detail := PostDetail{Post: *post, Comments: comments, AuthorPostCount: count}
	if post.Image != "" && svc.media != nil {
		link, err := svc.media.ImageURL(ctx, post.Image)
		if err != nil {
			// the page still renders without the picture
			svc.log.Warn("image link failed", zap.Int64("post_id", postID), zap.Error(err))
		}
		detail.ImageURL = link
	}
	return detail, nil
}

// groupGone reports whether the chosen group no longer exists, telling a
// vanished group apart from other missing references.
func (svc *Service) groupGone(ctx context.Context, groupID *int64) bool {
	if groupID == nil {
		return false
	}
	_, err := svc.repo.GetGroup(ctx, *groupID)
	return errors.Is(err, repository.ErrNotFound)
}

// discardImage removes an upload whose post was never written. A failed
// removal leaves the key in the log for cleanup.
func (svc *Service) discardImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := svc.media.DeleteImage(ctx, key); err != nil {
		svc.log.Error("orphaned image", zap.String("key", key), zap.Error(err))
	}
}

// checkPost validates a post form. Field problems are returned in errs; err is
// reserved for failures of the store itself.
func (svc *Service) checkPost(ctx context.Context, in PostInput) (string, *model.Group, validation.Errors, error) {
	text := validation.Clean(in.Text)
	errs := validation.Struct(validation.Post{Text: text})

	var group *model.Group
	if in.GroupID != nil {
		g, err := svc.repo.GetGroup(ctx, *in.GroupID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			errs.Add("group", msgInvalidGroup)
		case err != nil:
			return "", nil, nil, fmt.Errorf("group %d: %w", *in.GroupID, err)
		default:
			group = g
		}
	}

	if in.Upload != nil {
		switch {
		case svc.media == nil:
			errs.Add("image", msgUploadDisabled)
		case !validation.ImageContentType(in.Upload.ContentType):
			errs.Add("image", validation.ImageMessage())
		}
	}

	return text, group, errs, nil
}

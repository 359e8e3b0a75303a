package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gfdmit/yatube/internal/model"
	"github.com/gfdmit/yatube/internal/policy"
	"github.com/gfdmit/yatube/internal/validation"
)

// AddComment attaches a comment by actor to a post.
func (svc *Service) AddComment(ctx context.Context, actor policy.Actor, postID int64, in CommentInput) (CommentOutcome, error) {
	detail := Redirect{Route: RoutePostDetail, PostID: postID}
	if !policy.CanComment(actor) {
		return CommentOutcome{}, authRequired(detail)
	}

	if _, err := svc.repo.GetPost(ctx, postID); err != nil {
		return CommentOutcome{}, fmt.Errorf("post %d: %w", postID, err)
	}

	text := validation.Clean(in.Text)
	if errs := validation.Struct(validation.Comment{Text: text}); len(errs) > 0 {
		return CommentOutcome{Form: &CommentForm{Errors: errs, Values: in, PostID: postID}}, nil
	}

	comment, err := svc.repo.CreateComment(ctx, &model.Comment{
		PostID:  postID,
		Author:  model.User{ID: actor.UserID, Username: actor.Username},
		Text:    text,
		Created: svc.now(),
	})
	if err != nil {
		return CommentOutcome{}, fmt.Errorf("comment on post %d: %w", postID, err)
	}

	svc.log.Info("comment added",
		zap.Int64("comment_id", comment.ID),
		zap.Int64("post_id", postID),
		zap.Int64("author_id", actor.UserID),
	)
	detail.Reason = ReasonCommented
	return CommentOutcome{Comment: comment, Redirect: &detail}, nil
}

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
	msgSlugTaken     = "Group with this slug already exists."
	msgUsernameTaken = "A user with that username already exists."
)

// RegisterUser records a user known to the identity provider. Invalid or taken
// usernames are reported as validation.Errors.
func (svc *Service) RegisterUser(ctx context.Context, username string) (*model.User, error) {
	username = validation.Clean(username)
	if errs := validation.Struct(validation.User{Username: username}); len(errs) > 0 {
		return nil, errs
	}

	u, err := svc.repo.CreateUser(ctx, username)
	if errors.Is(err, repository.ErrConflict) {
		errs := validation.Errors{}
		errs.Add("username", msgUsernameTaken)
		return nil, errs
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	svc.log.Info("user registered", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// Identify resolves a username to an actor. The empty username is the
// anonymous actor.
func (svc *Service) Identify(ctx context.Context, username string) (policy.Actor, error) {
	if username == "" {
		return policy.Anonymous, nil
	}
	u, err := svc.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return policy.Anonymous, fmt.Errorf("user %q: %w", username, err)
	}
	return policy.ActorFor(*u), nil
}

func (svc *Service) CreateGroup(ctx context.Context, in GroupInput) (GroupOutcome, error) {
	g := validation.Group{
		Title:       validation.Clean(in.Title),
		Slug:        validation.Clean(in.Slug),
		Description: in.Description,
	}
	invalid := func(errs validation.Errors) GroupOutcome {
		return GroupOutcome{Form: &GroupForm{Errors: errs, Values: in}}
	}
	if errs := validation.Struct(g); len(errs) > 0 {
		return invalid(errs), nil
	}

	created, err := svc.repo.CreateGroup(ctx, &model.Group{Title: g.Title, Slug: g.Slug, Description: g.Description})
	if errors.Is(err, repository.ErrConflict) {
		errs := validation.Errors{}
		errs.Add("slug", msgSlugTaken)
		return invalid(errs), nil
	}
	if err != nil {
		return GroupOutcome{}, fmt.Errorf("create group: %w", err)
	}

	svc.log.Info("group created", zap.Int64("group_id", created.ID), zap.String("slug", created.Slug))
	return GroupOutcome{Group: created}, nil
}

// DeleteGroup removes a group; its posts stay and lose their group.
func (svc *Service) DeleteGroup(ctx context.Context, slug string) error {
	g, err := svc.repo.GetGroupBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("group %q: %w", slug, err)
	}
	if err := svc.repo.DeleteGroup(ctx, g.ID); err != nil {
		return fmt.Errorf("delete group %q: %w", slug, err)
	}

	svc.log.Info("group deleted", zap.Int64("group_id", g.ID), zap.String("slug", slug))
	return nil
}

func (svc *Service) Groups(ctx context.Context) ([]model.Group, error) {
	return svc.repo.ListGroups(ctx)
}

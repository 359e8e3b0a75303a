package service

import (
	"context"
	"fmt"

	"github.com/gfdmit/yatube/internal/model"
	"github.com/gfdmit/yatube/internal/paginator"
)

// Feed is one page of posts plus the group or author the listing is about.
type Feed struct {
	Page   paginator.Page[model.Post] `json:"page"`
	Group  *model.Group               `json:"group,omitempty"`
	Author *model.User                `json:"author,omitempty"`
}

// Index lists every post, newest first.
func (svc *Service) Index(ctx context.Context, page int) (Feed, error) {
	p, err := svc.paginate(ctx, model.PostFilter{}, page)
	if err != nil {
		return Feed{}, err
	}
	return Feed{Page: p}, nil
}

// GroupFeed lists the posts of the group with the given slug.
func (svc *Service) GroupFeed(ctx context.Context, slug string, page int) (Feed, error) {
	group, err := svc.repo.GetGroupBySlug(ctx, slug)
	if err != nil {
		return Feed{}, fmt.Errorf("group %q: %w", slug, err)
	}

	p, err := svc.paginate(ctx, model.PostFilter{GroupID: &group.ID}, page)
	if err != nil {
		return Feed{}, err
	}
	return Feed{Page: p, Group: group}, nil
}

// Profile lists the posts written by username.
func (svc *Service) Profile(ctx context.Context, username string, page int) (Feed, error) {
	author, err := svc.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return Feed{}, fmt.Errorf("user %q: %w", username, err)
	}

	p, err := svc.paginate(ctx, model.PostFilter{AuthorID: &author.ID}, page)
	if err != nil {
		return Feed{}, err
	}
	return Feed{Page: p, Author: author}, nil
}

func (svc *Service) paginate(ctx context.Context, f model.PostFilter, page int) (paginator.Page[model.Post], error) {
	p, err := paginator.Paginate[model.Post](ctx, svc.posts(f), svc.pageSize, page)
	if err != nil {
		return p, fmt.Errorf("list posts: %w", err)
	}
	return p, nil
}

// posts exposes a filtered listing as a paginator source.
func (svc *Service) posts(f model.PostFilter) paginator.Source[model.Post] {
	return paginator.SourceFunc[model.Post]{
		CountFunc: func(ctx context.Context) (int, error) {
			return svc.repo.CountPosts(ctx, f)
		},
		SliceFunc: func(ctx context.Context, offset, limit int) ([]model.Post, error) {
			return svc.repo.ListPosts(ctx, f, offset, limit)
		},
	}
}

// Package cache puts a redis read-through cache in front of group lookups.
// Group pages resolve the slug on every request while groups change only
// through administrative commands.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gfdmit/yatube/internal/model"
	"github.com/gfdmit/yatube/internal/repository"
)

const (
	slugKeyPrefix = "group:slug:"
	idKeyPrefix   = "group:id:"
)

type GroupCache struct {
	next repository.Groups
	rdb  *redis.Client
	ttl  time.Duration
	log  *zap.Logger
}

var _ repository.Groups = (*GroupCache)(nil)

func NewGroupCache(next repository.Groups, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *GroupCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &GroupCache{next: next, rdb: rdb, ttl: ttl, log: log}
}

func slugKey(slug string) string { return slugKeyPrefix + slug }
func idKey(id int64) string      { return fmt.Sprintf("%s%d", idKeyPrefix, id) }

func (c *GroupCache) CreateGroup(ctx context.Context, g *model.Group) (*model.Group, error) {
	return c.next.CreateGroup(ctx, g)
}

func (c *GroupCache) ListGroups(ctx context.Context) ([]model.Group, error) {
	return c.next.ListGroups(ctx)
}

func (c *GroupCache) GetGroup(ctx context.Context, id int64) (*model.Group, error) {
	return c.readThrough(ctx, idKey(id), func() (*model.Group, error) {
		return c.next.GetGroup(ctx, id)
	})
}

func (c *GroupCache) GetGroupBySlug(ctx context.Context, slug string) (*model.Group, error) {
	return c.readThrough(ctx, slugKey(slug), func() (*model.Group, error) {
		return c.next.GetGroupBySlug(ctx, slug)
	})
}

// DeleteGroup removes the group and evicts both of its keys.
func (c *GroupCache) DeleteGroup(ctx context.Context, id int64) error {
	g, err := c.next.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if err := c.next.DeleteGroup(ctx, id); err != nil {
		return err
	}
	if err := c.rdb.Del(ctx, idKey(id), slugKey(g.Slug)).Err(); err != nil {
		c.log.Warn("group cache evict failed", zap.Int64("group_id", id), zap.Error(err))
	}
	return nil
}

// readThrough serves key from redis, falling back to load on a miss. Redis
// failures are logged and never fail the lookup; misses of load are not cached.
func (c *GroupCache) readThrough(ctx context.Context, key string, load func() (*model.Group, error)) (*model.Group, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var g model.Group
		if uErr := json.Unmarshal(data, &g); uErr == nil {
			return &g, nil
		}
		c.log.Warn("group cache entry corrupt", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("group cache read failed", zap.String("key", key), zap.Error(err))
	}

	g, err := load()
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(g); err == nil {
		pipe := c.rdb.Pipeline()
		pipe.Set(ctx, idKey(g.ID), payload, c.ttl)
		pipe.Set(ctx, slugKey(g.Slug), payload, c.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			c.log.Warn("group cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return g, nil
}

type cachedRepository struct {
	repository.Users
	repository.Groups
	repository.Posts
	repository.Comments
}

// Wrap returns repo with its group lookups served through c.
func Wrap(repo repository.Repository, c *GroupCache) repository.Repository {
	return cachedRepository{
		Users:    repo,
		Groups:   c,
		Posts:    repo,
		Comments: repo,
	}
}

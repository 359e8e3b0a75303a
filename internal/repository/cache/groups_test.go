package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gfdmit/yatube/internal/model"
	"github.com/gfdmit/yatube/internal/repository"
)

type countingGroups struct {
	groups map[int64]model.Group
	loads  int
}

func (g *countingGroups) CreateGroup(_ context.Context, in *model.Group) (*model.Group, error) {
	out := *in
	out.ID = int64(len(g.groups) + 1)
	g.groups[out.ID] = out
	return &out, nil
}

func (g *countingGroups) GetGroup(_ context.Context, id int64) (*model.Group, error) {
	g.loads++
	out, ok := g.groups[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &out, nil
}

func (g *countingGroups) GetGroupBySlug(_ context.Context, slug string) (*model.Group, error) {
	g.loads++
	for _, out := range g.groups {
		if out.Slug == slug {
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (g *countingGroups) ListGroups(context.Context) ([]model.Group, error) {
	out := make([]model.Group, 0, len(g.groups))
	for _, v := range g.groups {
		out = append(out, v)
	}
	return out, nil
}

func (g *countingGroups) DeleteGroup(_ context.Context, id int64) error {
	if _, ok := g.groups[id]; !ok {
		return repository.ErrNotFound
	}
	delete(g.groups, id)
	return nil
}

func newCache(t *testing.T) (*GroupCache, *countingGroups, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	next := &countingGroups{groups: map[int64]model.Group{
		1: {ID: 1, Title: "Cats", Slug: "cats", Description: "meow"},
	}}
	return NewGroupCache(next, rdb, time.Minute, zaptest.NewLogger(t)), next, mr
}

func TestReadThrough(t *testing.T) {
	c, next, mr := newCache(t)
	ctx := context.Background()

	g, err := c.GetGroupBySlug(ctx, "cats")
	require.NoError(t, err)
	assert.Equal(t, "Cats", g.Title)
	assert.Equal(t, 1, next.loads)
	assert.True(t, mr.Exists("group:slug:cats"))
	assert.True(t, mr.Exists("group:id:1"))

	again, err := c.GetGroupBySlug(ctx, "cats")
	require.NoError(t, err)
	assert.Equal(t, g, again)

	byID, err := c.GetGroup(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, g, byID)
	assert.Equal(t, 1, next.loads)
}

func TestExpiry(t *testing.T) {
	c, next, mr := newCache(t)
	ctx := context.Background()

	_, err := c.GetGroupBySlug(ctx, "cats")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	_, err = c.GetGroupBySlug(ctx, "cats")
	require.NoError(t, err)
	assert.Equal(t, 2, next.loads)
}

func TestMissIsNotCached(t *testing.T) {
	c, next, mr := newCache(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.GetGroupBySlug(ctx, "dogs")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	}
	assert.Equal(t, 2, next.loads)
	assert.False(t, mr.Exists("group:slug:dogs"))
}

func TestDeleteEvicts(t *testing.T) {
	c, _, mr := newCache(t)
	ctx := context.Background()

	_, err := c.GetGroupBySlug(ctx, "cats")
	require.NoError(t, err)

	require.NoError(t, c.DeleteGroup(ctx, 1))
	assert.False(t, mr.Exists("group:slug:cats"))
	assert.False(t, mr.Exists("group:id:1"))

	_, err = c.GetGroupBySlug(ctx, "cats")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, c.DeleteGroup(ctx, 1), repository.ErrNotFound)
}

func TestRedisDownFallsBack(t *testing.T) {
	c, next, mr := newCache(t)
	mr.Close()

	g, err := c.GetGroupBySlug(context.Background(), "cats")
	require.NoError(t, err)
	assert.Equal(t, "cats", g.Slug)
	assert.Equal(t, 1, next.loads)
}

func TestCorruptEntryReloads(t *testing.T) {
	c, next, mr := newCache(t)
	require.NoError(t, mr.Set("group:slug:cats", "{not json"))

	g, err := c.GetGroupBySlug(context.Background(), "cats")
	require.NoError(t, err)
	assert.Equal(t, int64(1), g.ID)
	assert.Equal(t, 1, next.loads)
}

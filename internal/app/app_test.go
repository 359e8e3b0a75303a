package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gfdmit/yatube/config"
	"github.com/gfdmit/yatube/internal/service"
)

func sqliteConfig() config.Config {
	return config.Config{
		App:    config.App{PageSize: 5, LogLevel: "debug", Storage: config.StorageSQLite},
		SQLite: config.SQLite{Path: ":memory:"},
		Redis:  config.Redis{TTL: time.Minute},
	}
}

func TestNewSQLite(t *testing.T) {
	ctx := context.Background()
	a, err := newWithLogger(ctx, sqliteConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 5, a.Service.PageSize())

	_, err = a.Service.RegisterUser(ctx, "leo")
	require.NoError(t, err)
	actor, err := a.Service.Identify(ctx, "leo")
	require.NoError(t, err)

	out, err := a.Service.CreatePost(ctx, actor, service.PostInput{Text: "hello"})
	require.NoError(t, err)
	require.False(t, out.Invalid())

	feed, err := a.Service.Index(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Page.Count)
}

func TestNewWithRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	conf := sqliteConfig()
	conf.Redis.Addr = mr.Addr()
	a, err := newWithLogger(ctx, conf, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	created, err := a.Service.CreateGroup(ctx, service.GroupInput{Title: "Cats", Slug: "cats"})
	require.NoError(t, err)
	require.False(t, created.Invalid())

	_, err = a.Service.GroupFeed(ctx, "cats", 1)
	require.NoError(t, err)
	assert.True(t, mr.Exists("group:slug:cats"))

	require.NoError(t, a.Service.DeleteGroup(ctx, "cats"))
	assert.False(t, mr.Exists("group:slug:cats"))
}

func TestNewUnknownStorage(t *testing.T) {
	conf := sqliteConfig()
	conf.App.Storage = "mongo"
	_, err := newWithLogger(context.Background(), conf, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, `unknown storage "mongo"`)
}

func TestNewBadLogLevel(t *testing.T) {
	conf := sqliteConfig()
	conf.App.LogLevel = "loud"
	_, err := New(context.Background(), conf)
	assert.Error(t, err)
}

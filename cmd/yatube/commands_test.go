package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gfdmit/yatube/internal/repository/sqldb"
	"github.com/gfdmit/yatube/internal/service"
)

func newService(t *testing.T) *service.Service {
	t.Helper()
	store, err := sqldb.NewSQLite(context.Background(), ":memory:", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return service.New(store, service.WithPageSize(2), service.WithLogger(zaptest.NewLogger(t)))
}

// exec runs one command line and decodes its output into v when v is not nil.
func exec(t *testing.T, svc *service.Service, v any, args ...string) error {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), svc, args, &out)
	if v != nil && out.Len() > 0 {
		require.NoError(t, json.Unmarshal(out.Bytes(), v))
	}
	return err
}

func TestRunUsage(t *testing.T) {
	svc := newService(t)
	assert.ErrorIs(t, exec(t, svc, nil), errUsage)
	assert.ErrorIs(t, exec(t, svc, nil, "post", "delete"), errUsage)
	assert.ErrorIs(t, exec(t, svc, nil, "user", "add", "-nope"), errUsage)
	assert.ErrorIs(t, exec(t, svc, nil, "feed", "-group", "a", "-author", "b"), errUsage)
}

func TestRunPostLifecycle(t *testing.T) {
	svc := newService(t)

	var status map[string]string
	require.NoError(t, exec(t, svc, &status, "migrate"))
	assert.Equal(t, "migrated", status["status"])

	require.NoError(t, exec(t, svc, nil, "user", "add", "-username", "leo"))
	require.NoError(t, exec(t, svc, nil, "user", "add", "-username", "tolstoy"))

	var group service.GroupOutcome
	require.NoError(t, exec(t, svc, &group, "group", "add", "-title", "Cats", "-slug", "cats"))
	require.NotNil(t, group.Group)

	var dup service.GroupOutcome
	assert.ErrorIs(t, exec(t, svc, &dup, "group", "add", "-title", "Cats", "-slug", "cats"), errRejected)
	assert.True(t, dup.Invalid())

	var created service.PostOutcome
	require.NoError(t, exec(t, svc, &created, "post", "add", "-as", "leo", "-text", "Все счастливые семьи похожи друг на друга", "-group", "1"))
	require.NotNil(t, created.Post)
	assert.Equal(t, service.RouteProfile, created.Redirect.Route)

	var forbidden service.PostOutcome
	assert.ErrorIs(t, exec(t, svc, &forbidden, "post", "edit", "-as", "tolstoy", "-id", "1", "-text", "mine"), errRejected)
	assert.Equal(t, service.ReasonForbiddenEdit, forbidden.Redirect.Reason)

	err := exec(t, svc, nil, "post", "add", "-text", "anonymous")
	assert.ErrorIs(t, err, service.ErrAuthorizationRequired)

	var comment service.CommentOutcome
	require.NoError(t, exec(t, svc, &comment, "comment", "add", "-as", "tolstoy", "-post", "1", "-text", "agreed"))
	assert.Equal(t, service.ReasonCommented, comment.Redirect.Reason)

	var detail service.PostDetail
	require.NoError(t, exec(t, svc, &detail, "post", "show", "-id", "1"))
	assert.Len(t, detail.Comments, 1)
	assert.Equal(t, 1, detail.AuthorPostCount)

	var feed feedResult
	require.NoError(t, exec(t, svc, &feed, "feed", "-group", "cats"))
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, "Все счастливые ", feed.Posts[0].Excerpt)
	assert.Equal(t, "cats", feed.Posts[0].Group)

	require.NoError(t, exec(t, svc, nil, "group", "rm", "-slug", "cats"))
	assert.ErrorIs(t, exec(t, svc, nil, "feed", "-group", "cats"), service.ErrNotFound)
}

func TestRunFeedPages(t *testing.T) {
	svc := newService(t)
	require.NoError(t, exec(t, svc, nil, "user", "add", "-username", "leo"))
	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, exec(t, svc, nil, "post", "add", "-as", "leo", "-text", text))
	}

	var first feedResult
	require.NoError(t, exec(t, svc, &first, "feed", "-author", "leo"))
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, 2, first.TotalPages)
	assert.Equal(t, 2, first.Next)
	assert.Len(t, first.Posts, 2)

	var last feedResult
	require.NoError(t, exec(t, svc, &last, "feed", "-page", "last"))
	assert.Equal(t, 1, last.Page, "non-numeric pages mean the first page")

	require.NoError(t, exec(t, svc, &last, "feed", "-page", "9"))
	assert.Equal(t, 2, last.Page)
	assert.Equal(t, 1, last.Previous)
	assert.Len(t, last.Posts, 1)
}

func TestOpenImage(t *testing.T) {
	dir := t.TempDir()

	gif := filepath.Join(dir, "dot.gif")
	require.NoError(t, os.WriteFile(gif, []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"), 0o600))
	up, err := openImage(gif)
	require.NoError(t, err)
	defer up.Body.(*os.File).Close()
	assert.Equal(t, "image/gif", up.ContentType)
	assert.Equal(t, "dot.gif", up.Filename)
	assert.EqualValues(t, 14, up.Size)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("just words"), 0o600))
	up, err = openImage(txt)
	require.NoError(t, err)
	defer up.Body.(*os.File).Close()
	assert.Contains(t, up.ContentType, "text/plain")

	_, err = openImage(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestRunUploadWithoutMedia(t *testing.T) {
	svc := newService(t)
	require.NoError(t, exec(t, svc, nil, "user", "add", "-username", "leo"))

	gif := filepath.Join(t.TempDir(), "dot.gif")
	require.NoError(t, os.WriteFile(gif, []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"), 0o600))

	var out service.PostOutcome
	assert.ErrorIs(t, exec(t, svc, &out, "post", "add", "-as", "leo", "-text", "pic", "-image", gif), errRejected)
	require.True(t, out.Invalid())
	assert.True(t, out.Form.Errors.Has("image"))
}

package config

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv unsets the variables the env files below touch and restores them
// once the test ends.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PAGE_SIZE", "STORAGE", "POSTGRES_DB", "POSTGRES_HOST", "POSTGRES_PORT"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestNewDefaults(t *testing.T) {
	isolateEnv(t)
	conf, err := New(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 10, conf.PageSize)
	assert.Equal(t, StorageSQLite, conf.Storage)
	assert.Equal(t, "info", conf.LogLevel)
	assert.False(t, conf.MinIO.Enabled)
	assert.Equal(t, time.Hour, conf.MinIO.LinkExpiry)
	assert.Empty(t, conf.Redis.Addr)
	assert.Equal(t, 10*time.Minute, conf.Redis.TTL)
}

func TestNewFromEnvFile(t *testing.T) {
	isolateEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PAGE_SIZE=25\nSTORAGE=postgres\nPOSTGRES_DB=blog\n"), 0o600))

	conf, err := New(envFile)
	require.NoError(t, err)

	assert.Equal(t, 25, conf.PageSize)
	assert.Equal(t, StoragePostgres, conf.Storage)
	assert.Contains(t, conf.Postgres.DSN(), "@localhost:5432/blog?")
	assert.Contains(t, conf.Postgres.DSN(), "sslmode=disable")
}

func TestNewRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"unknown storage": "STORAGE=mongo\n",
		"zero page size":  "PAGE_SIZE=0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			isolateEnv(t)
			envFile := filepath.Join(t.TempDir(), ".env")
			require.NoError(t, os.WriteFile(envFile, []byte(body), 0o600))

			_, err := New(envFile)
			assert.Error(t, err)
		})
	}
}

func TestPostgresDSNEscapesCredentials(t *testing.T) {
	p := Postgres{
		User:    "blog",
		Pass:    "p@ss/word?#",
		Host:    "db.local",
		Port:    "5432",
		DB:      "yatube",
		SSLMode: "disable",
		Timeout: 5 * time.Second,
	}

	u, err := url.Parse(p.DSN())
	require.NoError(t, err)
	assert.Equal(t, "postgresql", u.Scheme)
	assert.Equal(t, "db.local:5432", u.Host)
	assert.Equal(t, "/yatube", u.Path)
	assert.Equal(t, "blog", u.User.Username())
	pass, ok := u.User.Password()
	require.True(t, ok)
	assert.Equal(t, "p@ss/word?#", pass)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "5", u.Query().Get("connect_timeout"))
}

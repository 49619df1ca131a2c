package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigContent = `
[development]
host = "localhost"
port = 8080
log_level = "trace"
log_to_stdout = true
postgres_host = "localhost"
postgres_port = "5432"
postgres_db_name = "devpy_blog"
redis_host = "localhost"
redis_port = "6379"
prometheus_metrics_host = "localhost"
prometheus_metrics_port = "2112"
login_rate_limit_allowed_per_min = 5
post_images_path = "/tmp/post-images"

[production]
host = ""
port = 9000
log_level = "debug"
logs_path = "/var/log/devpy/service.log"
postgres_host = "db"
postgres_port = "5432"
postgres_db_name = "devpy_blog"
redis_host = "redis"
redis_port = "6379"
prometheus_metrics_host = ""
prometheus_metrics_port = "2112"
login_rate_limit_allowed_per_min = 5
post_images_path = "/var/devpy/post-images"
github_mirror_enabled = true
github_owner = "devpystudio"
github_repo = "site-content"
github_branch = "main"
github_index_path = "blog/posts/index.json"
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigContent), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeTestConfig(t)

	cfg, err := Load("development", path)
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "trace", cfg.LogLevel)
	assert.True(t, cfg.LogToStdout)
	assert.Equal(t, "devpy_blog", cfg.PostgresDBName)
	assert.False(t, cfg.GithubMirrorEnabled)

	cfg, err = Load("prod", path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "/var/log/devpy/service.log", cfg.LogsPath)
	assert.True(t, cfg.GithubMirrorEnabled)
	assert.Equal(t, "site-content", cfg.GithubRepo)
	assert.Equal(t, "blog/posts/index.json", cfg.GithubIndexPath)
}

func TestLoad_UnknownEnv(t *testing.T) {
	path := writeTestConfig(t)

	cfg, err := Load("staging", path)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "unknown env")
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load("development", "/invalid/path/config.toml")
	require.Error(t, err)
	assert.Nil(t, cfg)
}

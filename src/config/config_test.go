package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: sqlite3
  url: ./pricewatch.db
search:
  sample_results: true
notifier:
  kind: smtp
  smtp:
    host: mail.local
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "./pricewatch.db", cfg.Database.URL)
	assert.True(t, cfg.Search.SampleResults)
	assert.Equal(t, "mail.local", cfg.Notifier.SMTP.Host)

	// 未出现在文件里的保持默认值
	assert.Equal(t, 5, cfg.Search.Limit)
	assert.Equal(t, 100, cfg.Search.NameLength)
	assert.Equal(t, uint32(12), cfg.Downloader.Timeout)
	assert.Equal(t, 587, cfg.Notifier.SMTP.Port)
	assert.Equal(t, "@every 12h", cfg.Refresh.Schedule)
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvOnlyKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))
	t.Setenv("NOTIFIER_SMTP_PASSWORD", "secret")
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("SEARCH_LIMIT", "8")

	for _, p := range []string{path, ""} {
		cfg, err := Load(p)
		require.NoError(t, err)
		assert.Equal(t, "secret", cfg.Notifier.SMTP.Password, p)
		assert.Equal(t, "postgres://x", cfg.Database.URL, p)
		assert.Equal(t, 8, cfg.Search.Limit, p)
		// 没有覆盖的保持默认值
		assert.Equal(t, "postgres", cfg.Database.Driver, p)
		assert.Equal(t, 587, cfg.Notifier.SMTP.Port, p)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NOTIFIER_TELEGRAM_TOKEN=123:abc\n"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	// 注册还原，再清空，让.env里的值生效
	t.Setenv("NOTIFIER_TELEGRAM_TOKEN", "")
	os.Unsetenv("NOTIFIER_TELEGRAM_TOKEN")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Notifier.Telegram.Token)
}

func TestLoadWithoutPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

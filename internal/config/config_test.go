package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir switches into a fresh directory so a stray portfolio.yaml does
// not leak into the test.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "table", cfg.Format)
	assert.Equal(t, "portfolio.db", cfg.DatabasePath)
	assert.Equal(t, "smtp.gmail.com", cfg.SMTP.Host)
	assert.Equal(t, 60, cfg.RateLimit.PerMinute)
	assert.Equal(t, 365, cfg.RetentionDays)
	assert.Empty(t, cfg.File)
	assert.False(t, cfg.SMTP.Enabled())
}

func TestLoadPrecedence(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9000
format: json
smtp:
  user: file-user
  pass: file-pass
rate_limit:
  burst: 5
`), 0o644))

	t.Setenv("PORT", "9100")
	t.Setenv("TO_EMAIL", "me@example.com")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "12")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("output", "o", "", "")
	flags.String("resume-path", "", "")
	flags.Int("port", 0, "")
	require.NoError(t, flags.Parse([]string{"-o", "csv", "--resume-path", "cv.yaml"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, 9100, cfg.Port, "env beats file, unset flag is ignored")
	assert.Equal(t, "csv", cfg.Format, "flag beats file")
	assert.Equal(t, "cv.yaml", cfg.ResumePath)
	assert.Equal(t, "me@example.com", cfg.SMTP.To)
	assert.Equal(t, 12, cfg.RateLimit.PerMinute)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.True(t, cfg.SMTP.Enabled())
}

func TestLoadPicksUpDefaultFile(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte("port: 7000\n"), 0o644))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, DefaultFile, cfg.File)
}

func TestLoadMissingFile(t *testing.T) {
	chdir(t)
	_, err := Load("nope.yaml", nil)
	assert.ErrorContains(t, err, "read config file")
}

func TestValidate(t *testing.T) {
	chdir(t)
	t.Setenv("PORT", "70000")
	t.Setenv("OUTPUT_FORMAT", "xml")
	t.Setenv("LOG_LEVEL", "loud")

	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port 70000 out of range")
	assert.Contains(t, err.Error(), `format "xml"`)
	assert.Contains(t, err.Error(), `log level "loud"`)
}

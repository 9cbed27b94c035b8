package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/eventgraph/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 6, cfg.Applications.TopN)
	assert.Equal(t, "CometLanding", cfg.EventToken())
	assert.Equal(t, []string{"time"}, cfg.Input.DropColumns)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
version = 1

[input]
path = "export.xlsx"
sheet = "Archive"

[event]
hashtag = "#Philae"
window_start = 2014-11-10T00:00:00Z
window_end = 2014-11-20T00:00:00Z

[hashtags]
threshold = 5
exclude_event = false
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "export.xlsx", cfg.Input.Path)
	assert.Equal(t, "Archive", cfg.Input.Sheet)
	assert.Equal(t, "Philae", cfg.EventToken())
	assert.Equal(t, time.Date(2014, 11, 10, 0, 0, 0, 0, time.UTC), cfg.Event.WindowStart.UTC())
	assert.Equal(t, 5, cfg.Hashtags.Threshold)
	assert.False(t, cfg.Hashtags.ExcludeEvent)
	// untouched sections keep defaults
	assert.Equal(t, 6, cfg.Applications.TopN)
}

func TestLoad_EnvWins(t *testing.T) {
	t.Setenv(config.EnvInput, "from-env.csv")
	t.Setenv(config.EnvOutputDir, "env-out")
	t.Setenv(config.EnvLogLevel, "debug")

	cfg, err := config.Load(writeConfig(t, `[input]
path = "from-file.csv"
`))
	require.NoError(t, err)

	assert.Equal(t, "from-env.csv", cfg.Input.Path)
	assert.Equal(t, "env-out", cfg.Output.Dir)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	t.Parallel()

	cfg, created, err := config.LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, config.Default().Event, cfg.Event)
}

func TestLoad_InvalidWindow(t *testing.T) {
	t.Parallel()

	_, err := config.Load(writeConfig(t, `[event]
window_start = 2014-12-06T00:00:00Z
window_end = 2014-11-12T00:00:00Z
`))

	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "event.window_end", verr.Field)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		field  string
	}{
		{name: "empty hashtag", mutate: func(c *config.Config) { c.Event.Hashtag = "#" }, field: "event.hashtag"},
		{name: "zero top n", mutate: func(c *config.Config) { c.Applications.TopN = 0 }, field: "applications.top_n"},
		{name: "negative threshold", mutate: func(c *config.Config) { c.Hashtags.Threshold = -1 }, field: "hashtags.threshold"},
		{name: "bad timeline day", mutate: func(c *config.Config) { c.Timeline.Day = "12/11/2014" }, field: "timeline.day"},
		{name: "no output dir", mutate: func(c *config.Config) { c.Output.Dir = " " }, field: "output.dir"},
		{name: "notify without host", mutate: func(c *config.Config) { c.Notify.Enabled = true; c.Notify.ToAddr = "a@b.c" }, field: "notify.smtp_host"},
		{name: "notify without recipient", mutate: func(c *config.Config) { c.Notify.Enabled = true; c.Notify.SMTPHost = "smtp" }, field: "notify.to_addr"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(cfg)

			var verr *config.ValidationError
			require.ErrorAs(t, cfg.Validate(), &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := config.Default()
	cfg.Hashtags.Threshold = 42
	require.NoError(t, cfg.Save(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Hashtags.Threshold)
	assert.True(t, loaded.Event.WindowEnd.Equal(cfg.Event.WindowEnd))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 75*time.Second, cfg.Session.Timeout)
	assert.Equal(t, 3, cfg.Session.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Session.CreateTimeout)
	assert.Equal(t, 6, cfg.Scheduler.ConcurrencyLevel)
	assert.Equal(t, 4, cfg.Scheduler.CoincidenceLevel)
	assert.Equal(t, 2, cfg.Scheduler.BatchSize)
	assert.Equal(t, 8040, cfg.Agent.Port)
	assert.Equal(t, int64(50*1024*1024), cfg.Agent.MaxFrameSize)
	assert.Equal(t, "http://127.0.0.1:8040", cfg.AgentBaseURL())
}

func TestDefaultSessions(t *testing.T) {
	sessions := DefaultSessions()
	require.Len(t, sessions, 22)

	counts := map[models.BrowserKind]int{}
	for _, s := range sessions {
		counts[s.Browser]++
	}
	assert.Equal(t, 2, counts[models.BrowserFoxhound])
	for _, kind := range []models.BrowserKind{models.BrowserFirefox, models.BrowserFirefoxNoPS, models.BrowserBrave, models.BrowserBraveAggr} {
		assert.Equal(t, 5, counts[kind], kind)
	}
	assert.Equal(t, "tf1", sessions[0].Name)
	assert.Equal(t, "fx5", sessions[21].Name)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	sites := writeFile(t, "sites.txt", "# top sites\nexample.test\n\n  other.test  \n")
	path := writeFile(t, "crossbrowse.yaml", `
outputBasePath: /tmp/out
foxhound:
  executablePath: /opt/foxhound/firefox
scheduler:
  concurrencyLevel: 8
  coincidenceLevel: 3
  batchSize: 5
session:
  timeout: 90s
sessions:
  - name: tf1
    browser: foxhound
  - name: br1
    browser: brave
sites: [first.test]
siteListFile: `+sites+`
`)
	t.Setenv("CROSSBROWSE_SCHEDULER_BATCH_SIZE", "4")
	t.Setenv("CROSSBROWSE_BRAVE_EXECUTABLE_PATH", "/usr/bin/brave")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/out", cfg.OutputBasePath)
	assert.Equal(t, "./profiles", cfg.ProfilesBasePath)
	assert.Equal(t, "/opt/foxhound/firefox", cfg.ExecutablePath(models.BrowserFoxhound))
	assert.Equal(t, "/usr/bin/brave", cfg.ExecutablePath(models.BrowserBraveAggr))
	assert.Equal(t, 8, cfg.Scheduler.ConcurrencyLevel)
	assert.Equal(t, 4, cfg.Scheduler.BatchSize)
	assert.Equal(t, 90*time.Second, cfg.Session.Timeout)
	assert.Equal(t, 3, cfg.Session.MaxAttempts)
	assert.Equal(t, []SessionSpec{{Name: "tf1", Browser: models.BrowserFoxhound}, {Name: "br1", Browser: models.BrowserBrave}}, cfg.Sessions)
	assert.Equal(t, []string{"first.test", "example.test", "other.test"}, cfg.Sites)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"coincidence above concurrency", func(c *Config) { c.Scheduler.CoincidenceLevel = 10 }},
		{"zero batch", func(c *Config) { c.Scheduler.BatchSize = 0 }},
		{"zero timeout", func(c *Config) { c.Session.Timeout = 0 }},
		{"zero attempts", func(c *Config) { c.Session.MaxAttempts = 0 }},
		{"bad port", func(c *Config) { c.Agent.Port = 70000 }},
		{"unknown browser", func(c *Config) { c.Sessions = []SessionSpec{{Name: "x1", Browser: "netscape"}} }},
		{"duplicate session", func(c *Config) {
			c.Sessions = []SessionSpec{{Name: "ff1", Browser: models.BrowserFirefox}, {Name: "ff1", Browser: models.BrowserFirefox}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "scheduler: [")
	_, err := Load(path)
	assert.Error(t, err)
}

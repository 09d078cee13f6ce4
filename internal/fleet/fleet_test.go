package fleet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/crossbrowse/internal/agent"
	"github.com/shehryarbajwa/crossbrowse/internal/browser"
	"github.com/shehryarbajwa/crossbrowse/internal/config"
	"github.com/shehryarbajwa/crossbrowse/internal/profile"
	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

func TestBuild_DefaultRoster(t *testing.T) {
	seedSrc := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(seedSrc, "Preferences"), []byte("aggressive"), 0644))
	seed := filepath.Join(t.TempDir(), "brave-aggr.tgz")
	require.NoError(t, profile.Pack(seedSrc, seed))

	cfg := config.Default()
	cfg.ProfilesBasePath = t.TempDir()
	cfg.AggressiveShieldsSeed = seed

	profiles, err := profile.NewManager(cfg.ProfilesBasePath)
	require.NoError(t, err)
	agents := agent.NewController(cfg.AgentBaseURL(), 0)
	defer agents.Close()

	entries, err := Build(cfg, Deps{Agents: agents, Profiles: profiles})
	require.NoError(t, err)
	require.Len(t, entries, 22)

	for i, e := range entries {
		assert.Equal(t, cfg.Sessions[i].Name, e.Name)
		assert.Equal(t, cfg.Sessions[i].Browser, e.Browser)
		assert.NotNil(t, e.Controller)
		assert.DirExists(t, filepath.Join(cfg.ProfilesBasePath, e.Name))
	}

	data, err := os.ReadFile(filepath.Join(cfg.ProfilesBasePath, "bx1", "Preferences"))
	require.NoError(t, err)
	assert.Equal(t, "aggressive", string(data))
	assert.NoFileExists(t, filepath.Join(cfg.ProfilesBasePath, "br1", "Preferences"))
}

func TestFirefoxOptions_TrackingProtectionPerKind(t *testing.T) {
	cfg := config.Default()
	cfg.Foxhound.ExecutablePath = "/opt/foxhound/firefox"
	cfg.Firefox.ExecutablePath = "/usr/bin/firefox"

	tf := FirefoxOptions(cfg, models.BrowserFoxhound, "/p/tf1")
	assert.Equal(t, browser.TrackingProtectionDisabled, tf.TrackingProtection)
	assert.Equal(t, "/opt/foxhound/firefox", tf.ExecutablePath)

	ff := FirefoxOptions(cfg, models.BrowserFirefox, "/p/ff1")
	assert.Equal(t, browser.TrackingProtectionStandard, ff.TrackingProtection)
	assert.Equal(t, "/usr/bin/firefox", ff.ExecutablePath)

	fx := FirefoxOptions(cfg, models.BrowserFirefoxNoPS, "/p/fx1")
	assert.Equal(t, browser.CookieRejectTrackers, fx.TrackingProtection.CookieBehavior)
	assert.Equal(t, "/p/fx1", fx.ProfilePath)
}

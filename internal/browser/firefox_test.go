package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirefoxArgs(t *testing.T) {
	args := FirefoxArgs(FirefoxOptions{
		ExecutablePath:     "/opt/foxhound/firefox",
		ProfilePath:        "/profiles/tf1",
		Headless:           true,
		TrackingProtection: TrackingProtectionDisabled,
	}, "http://127.0.0.1:8040/firefox-agent/abc")

	assert.Equal(t, []string{
		"run",
		"--source-dir=firefox-agent",
		"--firefox=/opt/foxhound/firefox",
		"--firefox-profile=/profiles/tf1",
		"--profile-create-if-missing",
		"--keep-profile-changes",
		"--no-reload",
		"--start-url", "http://127.0.0.1:8040/firefox-agent/abc",
		"--pref", "toolkit.startup.max_resumed_crashes=-1",
		"--pref", "browser.contentblocking.category=custom",
		"--pref", "network.cookie.cookieBehavior=0",
		"--pref", "privacy.trackingprotection.pbmode.enabled=false",
		"--pref", "privacy.trackingprotection.emailtracking.pbmode.enabled=false",
		"--pref", "privacy.trackingprotection.cryptomining.enabled=false",
		"--pref", "privacy.trackingprotection.fingerprinting.enabled=false",
		"--pref", "privacy.fingerprintingProtection.pbmode=false",
		"--arg=--headless",
	}, args)
}

func TestFirefoxArgs_StandardProtection(t *testing.T) {
	args := FirefoxArgs(FirefoxOptions{
		ExecutablePath:     "firefox",
		ProfilePath:        "/profiles/ff1",
		TrackingProtection: TrackingProtectionStandard,
		ExtensionDir:       "/srv/agent",
		DebugMode:          true,
	}, "")

	assert.Contains(t, args, "--source-dir=/srv/agent")
	assert.Contains(t, args, "browser.contentblocking.category=standard")
	assert.Contains(t, args, "network.cookie.cookieBehavior=5")
	assert.Contains(t, args, "privacy.trackingprotection.cryptomining.enabled=true")
	assert.Contains(t, args, "--verbose")
	assert.NotContains(t, args, "--start-url")
	assert.NotContains(t, args, "--arg=--headless")
}

func TestFirefoxArgs_NoPartitioning(t *testing.T) {
	args := FirefoxArgs(FirefoxOptions{TrackingProtection: TrackingProtectionNoPartitioning}, "")
	assert.Contains(t, args, "network.cookie.cookieBehavior=4")
	assert.Contains(t, args, "browser.contentblocking.category=standard")
}

func TestSpawn_MissingBinary(t *testing.T) {
	_, err := Spawn("/nonexistent/web-ext", nil, false)
	assert.Error(t, err)
}

func TestSpawn_InterruptAndKill(t *testing.T) {
	p, err := Spawn("sleep", []string{"30"}, false)
	if err != nil {
		t.Skip("sleep not available")
	}
	assert.Positive(t, p.Pid())
	assert.NoError(t, p.Kill())
	<-p.Done()
	assert.Error(t, p.Err())
	// signalling an exited process is a no-op
	assert.NoError(t, p.Interrupt())
}

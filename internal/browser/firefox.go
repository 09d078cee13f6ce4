package browser

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
)

// CookieBehavior mirrors firefox's network.cookie.cookieBehavior pref
type CookieBehavior int

const (
	CookieAccept                     CookieBehavior = 0
	CookieRejectTrackers             CookieBehavior = 4
	CookieRejectTrackersAndPartition CookieBehavior = 5
)

type TrackingProtection struct {
	Enabled        bool
	CookieBehavior CookieBehavior
}

var (
	TrackingProtectionDisabled       = TrackingProtection{Enabled: false, CookieBehavior: CookieAccept}
	TrackingProtectionStandard       = TrackingProtection{Enabled: true, CookieBehavior: CookieRejectTrackersAndPartition}
	// Standard protection with storage partitioning turned off
	TrackingProtectionNoPartitioning = TrackingProtection{Enabled: true, CookieBehavior: CookieRejectTrackers}
)

type FirefoxOptions struct {
	ExecutablePath     string
	ProfilePath        string
	Headless           bool
	TrackingProtection TrackingProtection
	DebugMode          bool
	// Directory holding the agent web extension
	ExtensionDir string
	// web-ext binary, looked up on PATH when empty
	WebExt string
}

// FirefoxArgs builds the web-ext command line that starts firefox with the agent
// extension loaded and startURL opened in the first tab.
func FirefoxArgs(opts FirefoxOptions, startURL string) []string {
	extensionDir := opts.ExtensionDir
	if extensionDir == "" {
		extensionDir = "firefox-agent"
	}

	args := []string{
		"run",
		"--source-dir=" + extensionDir,
		"--firefox=" + opts.ExecutablePath,
		"--firefox-profile=" + opts.ProfilePath,
		"--profile-create-if-missing",
		"--keep-profile-changes",
		"--no-reload",
	}
	if startURL != "" {
		args = append(args, "--start-url", startURL)
	}
	args = append(args, pref("toolkit.startup.max_resumed_crashes", -1)...)
	args = append(args, trackingProtectionPrefs(opts.TrackingProtection)...)
	if opts.Headless {
		args = append(args, "--arg=--headless")
	}
	if opts.DebugMode {
		args = append(args, "--verbose")
	}
	return args
}

func trackingProtectionPrefs(tp TrackingProtection) []string {
	category := "custom"
	if tp.Enabled {
		category = "standard"
	}

	var args []string
	args = append(args, pref("browser.contentblocking.category", category)...)
	args = append(args, pref("network.cookie.cookieBehavior", int(tp.CookieBehavior))...)
	for _, key := range []string{
		"privacy.trackingprotection.pbmode.enabled",
		"privacy.trackingprotection.emailtracking.pbmode.enabled",
		"privacy.trackingprotection.cryptomining.enabled",
		"privacy.trackingprotection.fingerprinting.enabled",
		"privacy.fingerprintingProtection.pbmode",
	} {
		args = append(args, pref(key, tp.Enabled)...)
	}
	return args
}

func pref(key string, value any) []string {
	var v string
	switch value := value.(type) {
	case bool:
		v = strconv.FormatBool(value)
	case int:
		v = strconv.Itoa(value)
	default:
		v = fmt.Sprint(value)
	}
	return []string{"--pref", key + "=" + v}
}

// Process is a spawned browser process
type Process struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// SpawnFirefox starts firefox through web-ext. The process is not bound to any
// context; callers own it and must Interrupt or Kill it.
func SpawnFirefox(opts FirefoxOptions, startURL string) (*Process, error) {
	webExt := opts.WebExt
	if webExt == "" {
		webExt = "web-ext"
	}
	return Spawn(webExt, FirefoxArgs(opts, startURL), opts.DebugMode)
}

// Spawn starts an arbitrary browser command, piping its output when verbose is set
func Spawn(name string, args []string, verbose bool) (*Process, error) {
	cmd := exec.Command(name, args...)
	if verbose {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	p := &Process{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()

	log.Printf("🦊 Spawned %s (pid %d)", name, cmd.Process.Pid)
	return p, nil
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Interrupt sends SIGINT, letting web-ext shut firefox down
func (p *Process) Interrupt() error {
	return p.signal(os.Interrupt)
}

func (p *Process) Kill() error {
	return p.signal(os.Kill)
}

// Done is closed once the process has exited
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err returns the exit error, valid after Done is closed
func (p *Process) Err() error {
	<-p.done
	return p.err
}

func (p *Process) signal(sig os.Signal) error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.cmd.Process.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to signal pid %d: %w", p.cmd.Process.Pid, err)
	}
	return nil
}

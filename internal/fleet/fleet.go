// Package fleet turns the configured session roster into runnable session entries.
package fleet

import (
	"fmt"
	"log"

	"github.com/shehryarbajwa/crossbrowse/internal/browser"
	"github.com/shehryarbajwa/crossbrowse/internal/config"
	"github.com/shehryarbajwa/crossbrowse/internal/profile"
	"github.com/shehryarbajwa/crossbrowse/internal/runner"
	"github.com/shehryarbajwa/crossbrowse/internal/session"
	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

// Deps are the shared collaborators of every session
type Deps struct {
	Agents   session.Rendezvous
	Profiles *profile.Manager
	Limiter  session.Limiter

	// Runs chromium sessions in docker when set
	Pool *browser.Pool

	// Defaults to launching firefox through web-ext
	SpawnFirefox func(opts browser.FirefoxOptions) session.Spawner
}

// Build prepares one profile and one fault-tolerant session per configured slot.
// No browser is started until a session is first used.
func Build(cfg *config.Config, deps Deps) ([]*runner.SessionEntry, error) {
	if deps.SpawnFirefox == nil {
		deps.SpawnFirefox = webExtSpawner
	}

	entries := make([]*runner.SessionEntry, 0, len(cfg.Sessions))
	for _, spec := range cfg.Sessions {
		seed := ""
		if spec.Browser == models.BrowserBraveAggr {
			seed = cfg.AggressiveShieldsSeed
		}
		p, err := deps.Profiles.EnsureSeeded(spec.Name, seed)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare profile for %s: %w", spec.Name, err)
		}

		controller, err := session.NewController(spec.Name, factory(cfg, deps, spec, p.Path), cfg.ControllerOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to create session %s: %w", spec.Name, err)
		}
		entries = append(entries, &runner.SessionEntry{
			Browser:    spec.Browser,
			Name:       spec.Name,
			Controller: controller,
		})
	}

	log.Printf("✅ Prepared %d sessions", len(entries))
	return entries, nil
}

func factory(cfg *config.Config, deps Deps, spec config.SessionSpec, profilePath string) session.Factory {
	if spec.Browser.IsFirefox() {
		opts := FirefoxOptions(cfg, spec.Browser, profilePath)
		return session.NewFirefoxFactory(deps.Agents, deps.SpawnFirefox(opts), deps.Limiter, session.FirefoxSessionOptions{
			Name:          spec.Name,
			IsFoxhound:    spec.Browser == models.BrowserFoxhound,
			LimitKey:      string(spec.Browser),
			CreateTimeout: cfg.Session.CreateTimeout,
		})
	}

	return session.NewChromiumFactory(deps.Pool, deps.Limiter, session.ChromiumSessionOptions{
		Name:          spec.Name,
		LimitKey:      string(spec.Browser),
		CreateTimeout: cfg.Session.CreateTimeout,
		Chromium: browser.ChromiumOptions{
			ExecutablePath: cfg.ExecutablePath(spec.Browser),
			ProfilePath:    profilePath,
			Headless:       cfg.Session.Headless,
		},
	})
}

// FirefoxOptions maps a firefox-family kind to its launch settings
func FirefoxOptions(cfg *config.Config, kind models.BrowserKind, profilePath string) browser.FirefoxOptions {
	tp := browser.TrackingProtectionStandard
	switch kind {
	case models.BrowserFoxhound:
		tp = browser.TrackingProtectionDisabled
	case models.BrowserFirefoxNoPS:
		tp = browser.TrackingProtectionNoPartitioning
	}

	return browser.FirefoxOptions{
		ExecutablePath:     cfg.ExecutablePath(kind),
		ProfilePath:        profilePath,
		Headless:           cfg.Session.Headless,
		TrackingProtection: tp,
		DebugMode:          cfg.Debug,
		ExtensionDir:       cfg.Agent.ExtensionDir,
		WebExt:             cfg.Agent.WebExt,
	}
}

func webExtSpawner(opts browser.FirefoxOptions) session.Spawner {
	return func(connectURL string) (session.Process, error) {
		p, err := browser.SpawnFirefox(opts, connectURL)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

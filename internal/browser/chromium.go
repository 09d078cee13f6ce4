package browser

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// CloseTimeout bounds a cooperative browser close
const CloseTimeout = 10 * time.Second

type ChromiumOptions struct {
	ExecutablePath string
	ProfilePath    string
	Headless       bool
}

// Chromium is a connected devtools browser, local or inside a container
type Chromium struct {
	Browser *rod.Browser
	stop    func(ctx context.Context, force bool) error
}

// LaunchChromium starts a local chromium-family browser (brave, chrome) with the
// rod launcher and connects to it. ctx bounds the launch only; the browser
// outlives it.
func LaunchChromium(ctx context.Context, opts ChromiumOptions) (*Chromium, error) {
	l := launcher.New().
		Context(ctx).
		UserDataDir(opts.ProfilePath).
		Headless(opts.Headless)
	if opts.ExecutablePath != "" {
		l = l.Bin(opts.ExecutablePath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	b, err := connect(ctx, controlURL)
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to chromium: %w", err)
	}
	closeExtraPages(b)

	return &Chromium{
		Browser: b,
		stop: func(ctx context.Context, force bool) error {
			if !force {
				err := closeBrowser(ctx, b)
				if err == nil {
					return nil
				}
				log.Printf("⚠️ Browser did not close, killing it: %v", err)
			}
			l.Kill()
			return nil
		},
	}, nil
}

// connect attaches to controlURL, giving up when ctx is done. The browser is not
// bound to ctx.
func connect(ctx context.Context, controlURL string) (*rod.Browser, error) {
	b := rod.New().ControlURL(controlURL)
	done := make(chan error, 1)
	go func() {
		done <- b.Connect()
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return b, nil
	case <-ctx.Done():
		go func() {
			if err := <-done; err == nil {
				_ = b.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// LaunchChromium runs a browser container for the named session and connects to it
func (p *Pool) LaunchChromium(ctx context.Context, opts LaunchOptions) (*Chromium, error) {
	c, err := p.Launch(ctx, opts)
	if err != nil {
		return nil, err
	}

	b, err := connect(ctx, c.ControlURL)
	if err != nil {
		p.remove(c.ID)
		return nil, fmt.Errorf("failed to connect to container %s: %w", c.Name, err)
	}

	return &Chromium{
		Browser: b,
		stop: func(ctx context.Context, force bool) error {
			// a crashed container has no browser left to close
			if !force && p.IsHealthy(ctx, c.ID) {
				if err := closeBrowser(ctx, b); err != nil {
					log.Printf("⚠️ Failed to close browser in %s: %v", c.Name, err)
				}
			}
			return p.Stop(ctx, c.ID, force)
		},
	}, nil
}

// Close shuts the browser down; force kills it
func (c *Chromium) Close(ctx context.Context, force bool) error {
	return c.stop(ctx, force)
}

// closeBrowser asks the browser to exit, waiting at most CloseTimeout
func closeBrowser(ctx context.Context, b *rod.Browser) error {
	ctx, cancel := context.WithTimeout(ctx, CloseTimeout)
	defer cancel()
	return b.Context(ctx).Close()
}

func closeExtraPages(b *rod.Browser) {
	pages, err := b.Pages()
	if err != nil || len(pages) < 2 {
		return
	}
	for _, page := range pages[1:] {
		_ = page.Close()
	}
}

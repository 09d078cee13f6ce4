package agentclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/shehryarbajwa/crossbrowse/internal/agent"
)

const (
	pollAttempts = 100
	pollInterval = 100 * time.Millisecond
)

var titlePrefix = agent.PathPrefix + ":"

// ResolveConnectURL turns the start page handed to the browser into the websocket URL
// to dial. ws(s) URLs are returned unchanged; http(s) pages are fetched and the URL is
// read from their <title>, retrying while the orchestrator is not reachable yet.
func ResolveConnectURL(ctx context.Context, startURL string) (string, error) {
	u, err := url.Parse(startURL)
	if err != nil {
		return "", fmt.Errorf("invalid connect url: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		return startURL, nil
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported connect url scheme %q", u.Scheme)
	}

	var lastErr error
	for i := 0; i < pollAttempts; i++ {
		wsURL, err := fetchConnectURL(ctx, startURL)
		if err == nil {
			return wsURL, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return "", fmt.Errorf("connect url not found after %d attempts: %w", pollAttempts, lastErr)
}

func fetchConnectURL(ctx context.Context, startURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, startURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("start page returned %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse start page: %w", err)
	}

	title := findTitle(doc)
	if !strings.HasPrefix(title, titlePrefix) {
		return "", fmt.Errorf("start page title %q has no connect url", title)
	}
	return strings.TrimPrefix(title, titlePrefix), nil
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			return strings.TrimSpace(n.FirstChild.Data)
		}
		return ""
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if title := findTitle(child); title != "" {
			return title
		}
	}
	return ""
}

package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

const (
	NavigationTimeout = 30 * time.Second
	// SettleDelay lets late requests and storage writes land before the snapshot
	SettleDelay = 5 * time.Second
)

const snapshotScript = `() => {
  const cookies = [];
  if (document.cookie) {
    for (const token of document.cookie.split("; ")) {
      const i = token.indexOf("=");
      cookies.push({ key: token.substring(0, i), value: token.substring(i + 1) });
    }
  }
  const storageItems = [];
  try {
    for (let i = 0; i < localStorage.length; i += 1) {
      const key = localStorage.key(i);
      storageItems.push({ key, value: localStorage.getItem(key) });
    }
  } catch (e) {}
  return {
    url: document.URL,
    baseUrl: document.baseURI,
    cookies,
    storageItems,
  };
}`

// Analyze loads url in a new tab and collects the requests it sent plus a
// cookie and storage snapshot of every reachable frame.
func Analyze(ctx context.Context, b *rod.Browser, target string) (*models.Detail, error) {
	pageCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	page, err := b.Context(pageCtx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	var mu sync.Mutex
	requests := []models.Request{}
	wait := page.EachEvent(func(e *proto.NetworkRequestWillBeSent) {
		if e.Request == nil || !isHTTP(e.Request.URL) {
			return
		}
		req := models.Request{
			RequestID:    string(e.RequestID),
			FrameID:      string(e.FrameID),
			Method:       e.Request.Method,
			URL:          e.Request.URL,
			Body:         requestBody(e.Request),
			ResourceType: string(e.Type),
		}
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()
	})
	go wait()

	if err := page.Timeout(NavigationTimeout).Navigate(target); err != nil {
		return nil, fmt.Errorf("navigation error: %w", err)
	}
	if err := page.Timeout(NavigationTimeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("navigation error: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(SettleDelay):
	}

	frames := snapshotFrames(page)

	mu.Lock()
	defer mu.Unlock()
	return &models.Detail{
		Requests: append([]models.Request(nil), requests...),
		Frames:   frames,
	}, nil
}

func snapshotFrames(page *rod.Page) []models.Frame {
	frames := []models.Frame{}
	if frame, err := snapshotFrame(page); err == nil {
		frames = append(frames, *frame)
	}

	iframes, err := page.Elements("iframe")
	if err != nil {
		return frames
	}
	for _, el := range iframes {
		child, err := el.Frame()
		if err != nil {
			continue
		}
		// cross-origin frames may refuse evaluation
		if frame, err := snapshotFrame(child); err == nil {
			frames = append(frames, *frame)
		}
	}
	return frames
}

func snapshotFrame(page *rod.Page) (*models.Frame, error) {
	res, err := page.Eval(snapshotScript)
	if err != nil {
		return nil, err
	}
	var frame models.Frame
	if err := res.Value.Unmarshal(&frame); err != nil {
		return nil, err
	}
	frame.FrameID = string(page.FrameID)
	return &frame, nil
}

func requestBody(req *proto.NetworkRequest) *models.RequestBody {
	if req.PostData == "" {
		return nil
	}

	contentType := ""
	for key, value := range req.Headers {
		if strings.EqualFold(key, "content-type") {
			contentType = value.Str()
		}
	}
	if strings.Contains(contentType, "application/x-www-form-urlencoded") {
		return &models.RequestBody{FormData: parseForm(req.PostData)}
	}
	return &models.RequestBody{Raw: req.PostData}
}

// parseForm keeps field order, unlike url.ParseQuery
func parseForm(body string) []models.KeyValue {
	fields := []models.KeyValue{}
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		fields = append(fields, models.KeyValue{Key: key, Value: value})
	}
	return fields
}

func isHTTP(raw string) bool {
	return strings.HasPrefix(raw, "http:") || strings.HasPrefix(raw, "https:")
}

package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

// Failure kinds recorded per browser in status.json
const (
	NavigationError = "NavigationError"
	AnalysisError   = "AnalysisError"
)

type logfile struct {
	name    string
	payload []byte
}

// SiteLog accumulates the result files and failures of one site until it is persisted
type SiteLog struct {
	dir    string
	status models.SiteStatus

	mu    sync.Mutex
	files []logfile
}

func NewSiteLog(outputPath string, site models.SiteEntry) *SiteLog {
	return &SiteLog{
		dir: filepath.Join(outputPath, fmt.Sprintf("%d-%s", site.SiteIndex, site.Site)),
		status: models.SiteStatus{
			Site:      site.Site,
			SiteIndex: site.SiteIndex,
			Failures:  map[models.BrowserKind]string{},
		},
	}
}

func (l *SiteLog) Dir() string {
	return l.dir
}

func (l *SiteLog) Add(name string, payload []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files = append(l.files, logfile{name: name, payload: payload})
}

// SetFailure marks the browser kind as failed for this site; the first failure wins
func (l *SiteLog) SetFailure(browser models.BrowserKind, kind string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.status.Failures[browser]; !ok {
		l.status.Failures[browser] = kind
	}
}

func (l *SiteLog) Failure(browser models.BrowserKind) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kind, ok := l.status.Failures[browser]
	return kind, ok
}

// Persist writes <name>.json for every result plus status.json
func (l *SiteLog) Persist() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create site directory: %w", err)
	}
	for _, f := range l.files {
		if err := os.WriteFile(filepath.Join(l.dir, f.name+".json"), f.payload, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}

	status, err := json.Marshal(l.status)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.dir, "status.json"), status, 0644); err != nil {
		return fmt.Errorf("failed to write status: %w", err)
	}
	return nil
}

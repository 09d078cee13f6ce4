package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

// DefaultContext runs every (site, session) pair twice, records the results in a
// SiteLog per site and persists it when the site is complete. Once a browser kind
// fails on a site, its remaining sessions skip that site.
type DefaultContext struct {
	outputPath string
	probe      AvailabilityProbe

	mu   sync.Mutex
	logs map[int]*SiteLog
}

func NewDefaultContext(outputPath string, probe AvailabilityProbe) *DefaultContext {
	if probe == nil {
		probe = HTTPProbe(nil)
	}
	return &DefaultContext{
		outputPath: outputPath,
		probe:      probe,
		logs:       make(map[int]*SiteLog),
	}
}

func (c *DefaultContext) RunAnalysis(ctx context.Context, siteAnalysisID int, site models.SiteEntry, entry *SessionEntry) error {
	siteLog := c.siteLog(siteAnalysisID, site)

	if _, failed := siteLog.Failure(entry.Browser); failed {
		analysesTotal.WithLabelValues(string(entry.Browser), "skipped").Inc()
		return nil
	}

	log.Printf("🔎 begin analysis %d: %s [%s]", site.SiteIndex, site.Site, entry.Name)

	for _, runID := range models.RunIDs {
		name := entry.Name + string(runID)

		result, err := entry.Controller.RunAnalysis(ctx, site.URL)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			result = models.Failure(err.Error())
		}

		if !result.OK() {
			log.Printf("⚠️ failure %d: %s [%s]: %s", site.SiteIndex, site.Site, name, result.Reason)
			analysesTotal.WithLabelValues(string(entry.Browser), "failure").Inc()
			siteLog.SetFailure(entry.Browser, c.classify(ctx, entry.Browser, site))
			break
		}

		payload, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode result %s: %w", name, err)
		}
		siteLog.Add(name, payload)
		analysesTotal.WithLabelValues(string(entry.Browser), "success").Inc()
		log.Printf("✅ success %d: %s [%s]", site.SiteIndex, site.Site, name)
	}

	log.Printf("🔚 end analysis %d: %s [%s]", site.SiteIndex, site.Site, entry.Name)
	return nil
}

func (c *DefaultContext) EndSiteAnalysis(ctx context.Context, siteAnalysisID int, site models.SiteEntry) error {
	c.mu.Lock()
	siteLog, ok := c.logs[siteAnalysisID]
	delete(c.logs, siteAnalysisID)
	c.mu.Unlock()

	if !ok {
		siteLog = NewSiteLog(c.outputPath, site)
	}
	if err := siteLog.Persist(); err != nil {
		return err
	}

	log.Printf("🏁 DONE %d: %s", site.SiteIndex, site.Site)
	return nil
}

// classify blames the site when foxhound fails and the site does not answer
// plain HTTP either.
func (c *DefaultContext) classify(ctx context.Context, browser models.BrowserKind, site models.SiteEntry) string {
	if browser == models.BrowserFoxhound && !c.probe(ctx, site.URL) {
		return NavigationError
	}
	return AnalysisError
}

func (c *DefaultContext) siteLog(id int, site models.SiteEntry) *SiteLog {
	c.mu.Lock()
	defer c.mu.Unlock()

	siteLog, ok := c.logs[id]
	if !ok {
		siteLog = NewSiteLog(c.outputPath, site)
		c.logs[id] = siteLog
	}
	return siteLog
}

// Package runner schedules (site, session) analyses over a fleet of sessions.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/shehryarbajwa/crossbrowse/internal/session"
	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

const (
	DefaultConcurrencyLevel = 6
	DefaultCoincidenceLevel = 4
	DefaultBatchSize        = 2

	sweepTimeout = 30 * time.Second
)

var ErrInvalidOptions = errors.New("invalid runner options")

type Options struct {
	// Sessions working at the same time
	ConcurrencyLevel int
	// Sessions allowed on the same site at the same time
	CoincidenceLevel int
	// Sites a session handles before it is recycled
	BatchSize int
}

func (o Options) Validate() error {
	if o.ConcurrencyLevel < 1 {
		return fmt.Errorf("%w: concurrencyLevel must be at least 1, got %d", ErrInvalidOptions, o.ConcurrencyLevel)
	}
	if o.CoincidenceLevel < 1 || o.CoincidenceLevel > o.ConcurrencyLevel {
		return fmt.Errorf("%w: coincidenceLevel must be between 1 and %d, got %d", ErrInvalidOptions, o.ConcurrencyLevel, o.CoincidenceLevel)
	}
	if o.BatchSize < 1 {
		return fmt.Errorf("%w: batchSize must be at least 1, got %d", ErrInvalidOptions, o.BatchSize)
	}
	return nil
}

// SessionEntry is one named session slot
type SessionEntry struct {
	Browser    models.BrowserKind
	Name       string
	Controller session.Session
}

// Context is called for every (site, session) pair and once per finished site.
// Analysis failures are recorded, not returned; a returned error stops the worker.
type Context interface {
	RunAnalysis(ctx context.Context, siteAnalysisID int, site models.SiteEntry, entry *SessionEntry) error
	EndSiteAnalysis(ctx context.Context, siteAnalysisID int, site models.SiteEntry) error
}

// Progress is a point-in-time view of a run
type Progress struct {
	Running        bool `json:"running"`
	SitesTotal     int  `json:"sitesTotal"`
	SitesCompleted int  `json:"sitesCompleted"`
	BatchesTotal   int  `json:"batchesTotal"`
	BatchesPulled  int  `json:"batchesPulled"`
	InFlight       int  `json:"inFlight"`
}

type Runner struct {
	opts Options

	// called under the cursor lock for every pulled batch
	onBatch func(b *batch)

	mu      sync.Mutex
	current *run
}

func New(opts Options) (*Runner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Runner{opts: opts}, nil
}

type siteAnalysis struct {
	id   int
	site models.SiteEntry
	gate *semaphore.Weighted

	mu        sync.Mutex
	remaining int
}

type batch struct {
	index int
	sites []*siteAnalysis
	entry *SessionEntry
}

type run struct {
	rc           Context
	sites        []*siteAnalysis
	batches      []*batch
	sessionLocks map[*SessionEntry]*sync.Mutex

	mu             sync.Mutex
	cursor         int
	sitesCompleted int
	inFlight       int
	done           bool
}

func newRun(opts Options, sites []models.SiteEntry, sessions []*SessionEntry, rc Context) *run {
	r := &run{
		rc:           rc,
		sessionLocks: make(map[*SessionEntry]*sync.Mutex, len(sessions)),
	}
	for id, site := range sites {
		r.sites = append(r.sites, &siteAnalysis{
			id:        id,
			site:      site,
			gate:      semaphore.NewWeighted(int64(opts.CoincidenceLevel)),
			remaining: len(sessions),
		})
	}
	for _, entry := range sessions {
		r.sessionLocks[entry] = &sync.Mutex{}
	}

	// group-major, session-minor
	for start := 0; start < len(r.sites); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(r.sites))
		for _, entry := range sessions {
			r.batches = append(r.batches, &batch{
				index: len(r.batches),
				sites: r.sites[start:end],
				entry: entry,
			})
		}
	}
	return r
}

// Run analyzes every site with every session and returns once all sites are
// complete, or with the first worker error once the other workers are done.
// Every session is terminated before Run returns.
func (r *Runner) Run(ctx context.Context, sites []models.SiteEntry, sessions []*SessionEntry, rc Context) error {
	ru := newRun(r.opts, sites, sessions, rc)
	r.mu.Lock()
	r.current = ru
	r.mu.Unlock()
	defer ru.finish()

	log.Printf("🚀 Analyzing %d sites with %d sessions (%d batches, concurrency=%d, coincidence=%d)",
		len(sites), len(sessions), len(ru.batches), r.opts.ConcurrencyLevel, r.opts.CoincidenceLevel)

	if len(sessions) == 0 {
		for _, sa := range ru.sites {
			if err := ru.endSite(ctx, sa); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	for w := 0; w < r.opts.ConcurrencyLevel; w++ {
		worker := w
		g.Go(func() error {
			return r.work(ctx, ru, worker)
		})
	}
	err := g.Wait()

	ru.terminateAll(ctx, sessions)
	if err != nil {
		return err
	}

	log.Printf("✅ Analyzed %d sites", len(sites))
	return nil
}

// Progress reports on the current or last run
func (r *Runner) Progress() Progress {
	r.mu.Lock()
	ru := r.current
	r.mu.Unlock()
	if ru == nil {
		return Progress{}
	}

	ru.mu.Lock()
	defer ru.mu.Unlock()
	return Progress{
		Running:        !ru.done,
		SitesTotal:     len(ru.sites),
		SitesCompleted: ru.sitesCompleted,
		BatchesTotal:   len(ru.batches),
		BatchesPulled:  ru.cursor,
		InFlight:       ru.inFlight,
	}
}

func (r *Runner) work(ctx context.Context, ru *run, worker int) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, ok := ru.next(r.onBatch)
		if !ok {
			return nil
		}
		if err := ru.process(ctx, b); err != nil {
			log.Printf("❌ Worker %d stopped: %v", worker, err)
			return fmt.Errorf("worker %d: %w", worker, err)
		}
	}
}

func (ru *run) next(hook func(*batch)) (*batch, bool) {
	ru.mu.Lock()
	defer ru.mu.Unlock()

	if ru.cursor >= len(ru.batches) {
		return nil, false
	}
	b := ru.batches[ru.cursor]
	ru.cursor++
	if hook != nil {
		hook(b)
	}
	return b, true
}

// process runs the batch's sites in order on its session, then recycles the session
func (ru *run) process(ctx context.Context, b *batch) error {
	lock := ru.sessionLocks[b.entry]
	lock.Lock()
	defer lock.Unlock()

	activeBatches.Inc()
	defer activeBatches.Dec()

	first, last := b.sites[0].site.SiteIndex, b.sites[len(b.sites)-1].site.SiteIndex
	log.Printf("📦 [%s] batch %d/%d: sites %d-%d", b.entry.Name, b.index+1, len(ru.batches), first, last)

	for _, sa := range b.sites {
		if err := ru.analyze(ctx, sa, b.entry); err != nil {
			return err
		}
	}

	if err := b.entry.Controller.Terminate(ctx, false); err != nil {
		log.Printf("⚠️ [%s] failed to recycle session: %v", b.entry.Name, err)
	}
	batchesProcessed.Inc()
	return nil
}

func (ru *run) analyze(ctx context.Context, sa *siteAnalysis, entry *SessionEntry) error {
	if err := sa.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	ru.track(1)
	err := ru.rc.RunAnalysis(ctx, sa.id, sa.site, entry)
	ru.track(-1)
	sa.gate.Release(1)
	if err != nil {
		return fmt.Errorf("analysis of %s with %s: %w", sa.site.Site, entry.Name, err)
	}

	sa.mu.Lock()
	sa.remaining--
	complete := sa.remaining == 0
	sa.mu.Unlock()

	if complete {
		return ru.endSite(ctx, sa)
	}
	return nil
}

func (ru *run) endSite(ctx context.Context, sa *siteAnalysis) error {
	if err := ru.rc.EndSiteAnalysis(ctx, sa.id, sa.site); err != nil {
		return fmt.Errorf("failed to end analysis of %s: %w", sa.site.Site, err)
	}

	ru.mu.Lock()
	ru.sitesCompleted++
	ru.mu.Unlock()
	sitesCompleted.Inc()
	return nil
}

func (ru *run) track(delta int) {
	ru.mu.Lock()
	ru.inFlight += delta
	ru.mu.Unlock()
	assignmentsInFlight.Add(float64(delta))
}

func (ru *run) finish() {
	ru.mu.Lock()
	ru.done = true
	ru.mu.Unlock()
}

// terminateAll closes every session, even when ctx is already cancelled
func (ru *run) terminateAll(ctx context.Context, sessions []*SessionEntry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sweepTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, entry := range sessions {
		wg.Add(1)
		go func(entry *SessionEntry) {
			defer wg.Done()
			if err := entry.Controller.Terminate(ctx, false); err != nil {
				log.Printf("⚠️ [%s] failed to terminate: %v", entry.Name, err)
			}
		}(entry)
	}
	wg.Wait()
}

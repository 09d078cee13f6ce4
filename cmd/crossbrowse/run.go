package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/crossbrowse/internal/agent"
	"github.com/shehryarbajwa/crossbrowse/internal/api"
	"github.com/shehryarbajwa/crossbrowse/internal/browser"
	"github.com/shehryarbajwa/crossbrowse/internal/config"
	"github.com/shehryarbajwa/crossbrowse/internal/fleet"
	"github.com/shehryarbajwa/crossbrowse/internal/profile"
	"github.com/shehryarbajwa/crossbrowse/internal/ratelimit"
	"github.com/shehryarbajwa/crossbrowse/internal/runner"
	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

var runSiteList string

var runCmd = &cobra.Command{
	Use:   "run [sites...]",
	Short: "Analyze sites with every configured browser session",
	Long: `Analyze each site with every configured session.

Sites are taken from the arguments, the config file, CROSSBROWSE_SITES and the
site list file. Results are written to <outputBasePath>/<unix-millis>/.`,
	RunE: runAnalysis,
}

func init() {
	runCmd.Flags().StringVarP(&runSiteList, "sites", "s", "", "File with one site per line")
	rootCmd.AddCommand(runCmd)
}

func runAnalysis(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.Sites = append(cfg.Sites, args...)
	if runSiteList != "" {
		sites, err := config.ReadSiteList(runSiteList)
		if err != nil {
			return err
		}
		cfg.Sites = append(cfg.Sites, sites...)
	}
	if len(cfg.Sites) == 0 {
		return errors.New("no sites to analyze")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outputPath := filepath.Join(cfg.OutputBasePath, strconv.FormatInt(time.Now().UnixMilli(), 10))
	if err := os.MkdirAll(outputPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	log.Printf("💾 Writing results to %s", outputPath)

	profiles, err := profile.NewManager(cfg.ProfilesBasePath)
	if err != nil {
		return err
	}
	log.Println("✓ Profile manager initialized")

	agents := agent.NewController(cfg.AgentBaseURL(), cfg.Agent.MaxFrameSize)
	defer agents.Close()

	var pool *browser.Pool
	if cfg.Docker.Enabled {
		pool, err = browser.NewPool(cfg.Docker.Image)
		if err != nil {
			return err
		}
		defer pool.Close()

		imageCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		err = pool.EnsureImage(imageCtx)
		cancel()
		if err != nil {
			return err
		}
		log.Printf("✓ Browser image %s ready", cfg.Docker.Image)
	}

	launches := ratelimit.NewLimiter(cfg.Launch.PerMinute, cfg.Launch.Burst)
	sessions, err := fleet.Build(cfg, fleet.Deps{
		Agents:   agents,
		Profiles: profiles,
		Limiter:  launches,
		Pool:     pool,
	})
	if err != nil {
		return err
	}

	r, err := runner.New(cfg.RunnerOptions())
	if err != nil {
		return err
	}

	connects := ratelimit.NewLimiter(float64(cfg.Agent.ConnectsPerMinute), max(cfg.Agent.ConnectsPerMinute/10, 1))
	router := api.NewHandler(agents, r).SetupRoutes(connects)

	listener, err := net.Listen("tcp", cfg.AgentAddr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.AgentAddr(), err)
	}
	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		log.Printf("🚀 Agent endpoint listening on %s", cfg.AgentBaseURL())
		log.Printf("📍 Progress available at %s/v1/progress", cfg.AgentBaseURL())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("❌ Server error: %v", err)
		}
	}()

	rc := runner.NewDefaultContext(outputPath, runner.HTTPProbe(nil))
	runErr := r.Run(ctx, models.NewSiteEntries(cfg.Sites), sessions, rc)

	log.Println("⏳ Shutting down agent endpoint...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Server forced to shutdown: %v", err)
	}

	if runErr != nil {
		return fmt.Errorf("analysis failed: %w", runErr)
	}
	log.Printf("✅ Results stored in %s", outputPath)
	return nil
}

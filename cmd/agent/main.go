// agent is a reference analysis agent: it drives a local chromium through the
// devtools protocol and serves RunAnalysis tasks from a crossbrowse orchestrator.
// Useful for exercising the agent endpoint without the firefox extension.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/crossbrowse/internal/agentclient"
	"github.com/shehryarbajwa/crossbrowse/internal/browser"
	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

var (
	chromiumPath string
	profilePath  string
	headless     bool
)

var rootCmd = &cobra.Command{
	Use:          "agent <connect-url>",
	Short:        "Serve analysis tasks from a local chromium",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runAgent,
}

func init() {
	rootCmd.Flags().StringVar(&chromiumPath, "chromium", "", "Browser binary (downloaded by rod when empty)")
	rootCmd.Flags().StringVar(&profilePath, "profile", "", "User data directory")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "Run the browser headless")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAgent(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chromium, err := browser.LaunchChromium(ctx, browser.ChromiumOptions{
		ExecutablePath: chromiumPath,
		ProfilePath:    profilePath,
		Headless:       headless,
	})
	if err != nil {
		return err
	}
	log.Println("✓ Browser started")

	handler := agentclient.HandlerFunc(func(ctx context.Context, params models.RunAnalysisParams) (*models.Detail, error) {
		log.Printf("🔍 Analyzing %s", params.URL)
		return browser.Analyze(ctx, chromium.Browser, params.URL)
	})

	client, err := agentclient.Dial(ctx, args[0], handler)
	if err != nil {
		chromium.Close(context.Background(), true)
		return err
	}
	closed := false
	client.OnShutdown(func(ctx context.Context) error {
		closed = true
		return chromium.Close(ctx, false)
	})
	log.Printf("🚀 Connected to %s", args[0])

	serveErr := client.Serve(ctx)
	if !closed {
		// connection ended without a Shutdown task
		if err := chromium.Close(context.Background(), true); err != nil {
			log.Printf("⚠️ Failed to close browser: %v", err)
		}
	}
	if serveErr != nil {
		return serveErr
	}

	log.Println("✅ Agent stopped cleanly")
	return nil
}

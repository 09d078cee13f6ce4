// Package config loads crossbrowse settings from a YAML file, .env and the environment.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/shehryarbajwa/crossbrowse/internal/agent"
	"github.com/shehryarbajwa/crossbrowse/internal/runner"
	"github.com/shehryarbajwa/crossbrowse/internal/session"
	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

const EnvPrefix = "CROSSBROWSE"

var ErrInvalidConfig = errors.New("invalid config")

type BrowserConfig struct {
	ExecutablePath string `yaml:"executablePath" envconfig:"EXECUTABLE_PATH"`
}

type SchedulerConfig struct {
	ConcurrencyLevel int `yaml:"concurrencyLevel" envconfig:"CONCURRENCY_LEVEL"`
	CoincidenceLevel int `yaml:"coincidenceLevel" envconfig:"COINCIDENCE_LEVEL"`
	BatchSize        int `yaml:"batchSize" envconfig:"BATCH_SIZE"`
}

type SessionConfig struct {
	Timeout       time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	MaxAttempts   int           `yaml:"maxAttempts" envconfig:"MAX_ATTEMPTS"`
	CreateTimeout time.Duration `yaml:"createTimeout" envconfig:"CREATE_TIMEOUT"`
	SettleDelay   time.Duration `yaml:"settleDelay" envconfig:"SETTLE_DELAY"`
	Headless      bool          `yaml:"headless" envconfig:"HEADLESS"`
}

type AgentConfig struct {
	Host         string `yaml:"host" envconfig:"HOST"`
	Port         int    `yaml:"port" envconfig:"PORT"`
	MaxFrameSize int64  `yaml:"maxFrameSize" envconfig:"MAX_FRAME_SIZE"`
	ExtensionDir string `yaml:"extensionDir" envconfig:"EXTENSION_DIR"`
	WebExt       string `yaml:"webExt" envconfig:"WEB_EXT"`

	// Inbound agent connections allowed per minute per remote address
	ConnectsPerMinute int `yaml:"connectsPerMinute" envconfig:"CONNECTS_PER_MINUTE"`
}

type LaunchConfig struct {
	PerMinute float64 `yaml:"perMinute" envconfig:"PER_MINUTE"`
	Burst     int     `yaml:"burst" envconfig:"BURST"`
}

type DockerConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	Image   string `yaml:"image" envconfig:"IMAGE"`
}

// SessionSpec is one configured session slot
type SessionSpec struct {
	Name    string             `yaml:"name"`
	Browser models.BrowserKind `yaml:"browser"`
}

type Config struct {
	OutputBasePath   string `yaml:"outputBasePath" envconfig:"OUTPUT_BASE_PATH"`
	ProfilesBasePath string `yaml:"profilesBasePath" envconfig:"PROFILES_BASE_PATH"`

	// Profile archive copied into empty brave-aggr profiles
	AggressiveShieldsSeed string `yaml:"aggressiveShieldsSeed" envconfig:"AGGRESSIVE_SHIELDS_SEED"`

	Foxhound BrowserConfig `yaml:"foxhound" envconfig:"FOXHOUND"`
	Firefox  BrowserConfig `yaml:"firefox" envconfig:"FIREFOX"`
	Brave    BrowserConfig `yaml:"brave" envconfig:"BRAVE"`

	Scheduler SchedulerConfig `yaml:"scheduler" envconfig:"SCHEDULER"`
	Session   SessionConfig   `yaml:"session" envconfig:"SESSION"`
	Agent     AgentConfig     `yaml:"agent" envconfig:"AGENT"`
	Launch    LaunchConfig    `yaml:"launch" envconfig:"LAUNCH"`
	Docker    DockerConfig    `yaml:"docker" envconfig:"DOCKER"`

	Sessions     []SessionSpec `yaml:"sessions" ignored:"true"`
	Sites        []string      `yaml:"sites" envconfig:"SITES"`
	SiteListFile string        `yaml:"siteListFile" envconfig:"SITE_LIST_FILE"`
	Debug        bool          `yaml:"debug" envconfig:"DEBUG"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		OutputBasePath:   "./output",
		ProfilesBasePath: "./profiles",
		Scheduler: SchedulerConfig{
			ConcurrencyLevel: runner.DefaultConcurrencyLevel,
			CoincidenceLevel: runner.DefaultCoincidenceLevel,
			BatchSize:        runner.DefaultBatchSize,
		},
		Session: SessionConfig{
			Timeout:       session.DefaultTimeout,
			MaxAttempts:   session.DefaultMaxAttempts,
			CreateTimeout: session.CreateTimeout,
			SettleDelay:   time.Second,
		},
		Agent: AgentConfig{
			Host:              "127.0.0.1",
			Port:              8040,
			MaxFrameSize:      agent.DefaultMaxFrameSize,
			ExtensionDir:      "firefox-agent",
			WebExt:            "web-ext",
			ConnectsPerMinute: 600,
		},
		Launch: LaunchConfig{
			PerMinute: 30,
			Burst:     4,
		},
		Docker: DockerConfig{
			Image: "browserless/chrome:latest",
		},
		Sessions: DefaultSessions(),
	}
}

// DefaultSessions is the standard roster: two foxhound slots and five of every
// other kind, interleaved so that early batches mix browsers.
func DefaultSessions() []SessionSpec {
	order := []struct {
		kind models.BrowserKind
		n    int
	}{
		{models.BrowserFoxhound, 1}, {models.BrowserFoxhound, 2},
		{models.BrowserBrave, 1}, {models.BrowserBrave, 2},
		{models.BrowserFirefox, 1}, {models.BrowserFirefox, 2},
		{models.BrowserBrave, 3}, {models.BrowserBrave, 4},
		{models.BrowserFirefox, 3}, {models.BrowserFirefox, 4},
		{models.BrowserBrave, 5}, {models.BrowserBraveAggr, 1},
		{models.BrowserFirefox, 5}, {models.BrowserFirefoxNoPS, 1},
		{models.BrowserBraveAggr, 2}, {models.BrowserBraveAggr, 3},
		{models.BrowserFirefoxNoPS, 2}, {models.BrowserFirefoxNoPS, 3},
		{models.BrowserBraveAggr, 4}, {models.BrowserBraveAggr, 5},
		{models.BrowserFirefoxNoPS, 4}, {models.BrowserFirefoxNoPS, 5},
	}

	specs := make([]SessionSpec, 0, len(order))
	for _, o := range order {
		specs = append(specs, SessionSpec{
			Name:    fmt.Sprintf("%s%d", o.kind.Signature(), o.n),
			Browser: o.kind,
		})
	}
	return specs
}

// Load reads .env (if present), then the YAML file (if path is set), then
// CROSSBROWSE_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if cfg.SiteListFile != "" {
		sites, err := ReadSiteList(cfg.SiteListFile)
		if err != nil {
			return nil, err
		}
		cfg.Sites = append(cfg.Sites, sites...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadSiteList reads one site per line, skipping blanks and # comments
func ReadSiteList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open site list: %w", err)
	}
	defer f.Close()

	var sites []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sites = append(sites, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read site list: %w", err)
	}
	return sites, nil
}

// Validate checks everything that would otherwise fail mid-run
func (c *Config) Validate() error {
	opts := c.RunnerOptions()
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Session.Timeout <= 0 {
		return fmt.Errorf("%w: session timeout must be positive", ErrInvalidConfig)
	}
	if c.Session.MaxAttempts < 1 {
		return fmt.Errorf("%w: session maxAttempts must be at least 1", ErrInvalidConfig)
	}
	if c.Agent.Port < 1 || c.Agent.Port > 65535 {
		return fmt.Errorf("%w: agent port %d out of range", ErrInvalidConfig, c.Agent.Port)
	}
	if c.OutputBasePath == "" || c.ProfilesBasePath == "" {
		return fmt.Errorf("%w: outputBasePath and profilesBasePath are required", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Sessions))
	for _, s := range c.Sessions {
		if _, err := models.ParseBrowserKind(string(s.Browser)); err != nil {
			return fmt.Errorf("%w: session %s: %w", ErrInvalidConfig, s.Name, err)
		}
		if s.Name == "" || seen[s.Name] {
			return fmt.Errorf("%w: session names must be unique and non-empty, got %q", ErrInvalidConfig, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

func (c *Config) RunnerOptions() runner.Options {
	return runner.Options{
		ConcurrencyLevel: c.Scheduler.ConcurrencyLevel,
		CoincidenceLevel: c.Scheduler.CoincidenceLevel,
		BatchSize:        c.Scheduler.BatchSize,
	}
}

func (c *Config) ControllerOptions() session.ControllerOptions {
	return session.ControllerOptions{
		Timeout:     c.Session.Timeout,
		MaxAttempts: c.Session.MaxAttempts,
		SettleDelay: c.Session.SettleDelay,
	}
}

// AgentAddr is the listen address of the agent endpoint
func (c *Config) AgentAddr() string {
	return fmt.Sprintf("%s:%d", c.Agent.Host, c.Agent.Port)
}

// AgentBaseURL is the base of the connect URLs handed to spawned browsers
func (c *Config) AgentBaseURL() string {
	return "http://" + c.AgentAddr()
}

// ExecutablePath returns the binary configured for a browser kind
func (c *Config) ExecutablePath(kind models.BrowserKind) string {
	switch kind {
	case models.BrowserFoxhound:
		return c.Foxhound.ExecutablePath
	case models.BrowserFirefox, models.BrowserFirefoxNoPS:
		return c.Firefox.ExecutablePath
	default:
		return c.Brave.ExecutablePath
	}
}

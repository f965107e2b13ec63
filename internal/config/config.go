// Package config loads blueprint.yml and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/blueprint/internal/graph"
	"github.com/dusk-indust/blueprint/internal/oracle"
	"github.com/dusk-indust/blueprint/internal/orchestrator"
	"github.com/dusk-indust/blueprint/internal/reconcile"
)

// FileNames are tried in order by Load.
var FileNames = []string{"blueprint.yml", "blueprint.yaml"}

// Defaults for paths under the workspace.
const (
	DefaultIndexDir    = ".blueprint/index"
	DefaultHistoryPath = ".blueprint/history.db"
)

// ProjectConfig holds project-level settings loaded from blueprint.yml.
type ProjectConfig struct {
	Languages    []string `yaml:"languages,omitempty" validate:"dive,oneof=go typescript javascript python rust markdown json text"`
	ExcludeDirs  []string `yaml:"excludeDirs,omitempty"`
	ExcludeGlobs []string `yaml:"excludeGlobs,omitempty"`
	IndexDir     string   `yaml:"indexDir,omitempty"`
	HistoryPath  string   `yaml:"historyPath,omitempty"`
	Verbose      bool     `yaml:"verbose,omitempty"`

	Commit CommitConfig `yaml:"commit"`
	Oracle OracleConfig `yaml:"oracle"`
}

// CommitConfig tunes the commit pipeline.
type CommitConfig struct {
	Limit           int     `yaml:"limit" validate:"gte=1"`
	Workers         int     `yaml:"workers" validate:"gte=1,lte=64"`
	MaxAttempts     int     `yaml:"maxAttempts" validate:"gte=1,lte=10"`
	ChangeThreshold float64 `yaml:"changeThreshold" validate:"gte=0,lte=1"`
	MaxFileChars    int     `yaml:"maxFileChars" validate:"gte=1"`
	CoverageWarning float64 `yaml:"coverageWarning" validate:"gte=0,lte=1"`
}

// OracleConfig selects and tunes the text-generation backend.
type OracleConfig struct {
	Backend        string        `yaml:"backend,omitempty" validate:"omitempty,oneof=openai agent echo"`
	Model          string        `yaml:"model,omitempty"`
	BaseURL        string        `yaml:"baseUrl,omitempty" validate:"omitempty,url"`
	AgentEndpoints []string      `yaml:"agentEndpoints,omitempty" validate:"dive,url"`
	MaxRetries     int           `yaml:"maxRetries" validate:"gte=0,lte=10"`
	RetryDelay     time.Duration `yaml:"retryDelay" validate:"gte=0"`
	RateLimit      float64       `yaml:"rateLimit,omitempty" validate:"gte=0"`
	Burst          int           `yaml:"burst,omitempty" validate:"gte=0"`
	Temperature    float32       `yaml:"temperature,omitempty" validate:"gte=0,lte=2"`

	// APIKey and AgentToken only come from the environment.
	APIKey     string `yaml:"-"`
	AgentToken string `yaml:"-"`
}

// Default returns a config with every default filled in.
func Default() *ProjectConfig {
	return &ProjectConfig{
		IndexDir:    DefaultIndexDir,
		HistoryPath: DefaultHistoryPath,
		Commit: CommitConfig{
			Limit:           reconcile.DefaultCommitLimit,
			Workers:         orchestrator.DefaultWorkers,
			MaxAttempts:     orchestrator.DefaultMaxAttempts,
			ChangeThreshold: orchestrator.DefaultChangeThreshold,
			MaxFileChars:    orchestrator.DefaultMaxFileChars,
			CoverageWarning: reconcile.DefaultCoverageWarning,
		},
		Oracle: OracleConfig{
			MaxRetries: orchestrator.DefaultOracleRetries,
			RetryDelay: orchestrator.DefaultOracleDelay,
		},
	}
}

var validate = validator.New()

// Load reads blueprint.yml or blueprint.yaml from dir over the defaults,
// applies environment overrides, and validates the result. A missing file
// is not an error.
func Load(dir string) (*ProjectConfig, error) {
	cfg := Default()
	for _, name := range FileNames {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", name, err)
		}
		break
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *ProjectConfig) applyEnv(getenv func(string) string) error {
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.Oracle.APIKey = v
	}
	if v := getenv("OPENAI_MODEL"); v != "" {
		c.Oracle.Model = v
	}
	if v := getenv("OPENAI_BASE_URL"); v != "" {
		c.Oracle.BaseURL = v
	}
	if v := getenv("BLUEPRINT_A2A_TOKEN"); v != "" {
		c.Oracle.AgentToken = v
	}
	if v := getenv("BLUEPRINT_ORACLE"); v != "" {
		c.Oracle.Backend = v
	}
	if v := getenv("BLUEPRINT_A2A_ENDPOINT"); v != "" {
		c.Oracle.AgentEndpoints = nil
		for _, ep := range strings.Split(v, ",") {
			if ep = strings.TrimSpace(ep); ep != "" {
				c.Oracle.AgentEndpoints = append(c.Oracle.AgentEndpoints, ep)
			}
		}
	}
	if v := getenv("BLUEPRINT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: BLUEPRINT_WORKERS: %w", err)
		}
		c.Commit.Workers = n
	}
	return nil
}

// Write saves the config as blueprint.yml in dir, refusing to overwrite an
// existing file.
func (c *ProjectConfig) Write(dir string) (string, error) {
	path := filepath.Join(dir, FileNames[0])
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("config: encode: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("config: write %s: %w", path, err)
	}
	return path, nil
}

// Orchestrator returns the rewrite settings.
func (c *ProjectConfig) Orchestrator() orchestrator.Config {
	return orchestrator.Config{
		Workers:         c.Commit.Workers,
		MaxAttempts:     c.Commit.MaxAttempts,
		ChangeThreshold: c.Commit.ChangeThreshold,
		MaxFileChars:    c.Commit.MaxFileChars,
		Oracle: oracle.Options{
			MaxRetries: c.Oracle.MaxRetries,
			RetryDelay: c.Oracle.RetryDelay,
		},
	}
}

// Engine returns the commit settings for a workspace root.
func (c *ProjectConfig) Engine(root string) reconcile.Config {
	return reconcile.Config{
		Root:            root,
		CommitLimit:     c.Commit.Limit,
		CoverageWarning: c.Commit.CoverageWarning,
	}
}

// Detect returns the oracle backend selection.
func (c *ProjectConfig) Detect() oracle.DetectConfig {
	return oracle.DetectConfig{
		Backend: oracle.Backend(c.Oracle.Backend),
		OpenAI: oracle.OpenAIConfig{
			APIKey:      c.Oracle.APIKey,
			Model:       c.Oracle.Model,
			BaseURL:     c.Oracle.BaseURL,
			Temperature: c.Oracle.Temperature,
		},
		AgentEndpoints: c.Oracle.AgentEndpoints,
	}
}

// Build returns the index build options.
func (c *ProjectConfig) Build() graph.BuildOptions {
	opts := graph.BuildOptions{
		ExcludeDirs:  c.ExcludeDirs,
		ExcludeGlobs: c.ExcludeGlobs,
	}
	for _, l := range c.Languages {
		opts.Languages = append(opts.Languages, graph.Language(l))
	}
	return opts
}

// Resolve makes a workspace-relative path absolute.
func Resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, filepath.FromSlash(p))
}

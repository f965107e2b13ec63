package orchestrator

import (
	"time"

	"github.com/dusk-indust/blueprint/internal/oracle"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultWorkers         = 2
	DefaultMaxAttempts     = 2
	DefaultChangeThreshold = 0.12
	DefaultMaxFileChars    = 120_000
	DefaultOracleRetries   = 3
	DefaultOracleDelay     = 500 * time.Millisecond
)

// Config holds runtime configuration for a rewrite run.
type Config struct {
	// Workers is the pool size.
	Workers int

	// MaxAttempts is how many prompts each file gets before falling back.
	MaxAttempts int

	// ChangeThreshold is the minimum change ratio accepted for Markdown and
	// plain-text files.
	ChangeThreshold float64

	// MaxFileChars skips files whose current content is longer.
	MaxFileChars int

	// Oracle is passed through to every Generate call.
	Oracle oracle.Options
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.ChangeThreshold <= 0 {
		c.ChangeThreshold = DefaultChangeThreshold
	}
	if c.MaxFileChars <= 0 {
		c.MaxFileChars = DefaultMaxFileChars
	}
	if c.Oracle == (oracle.Options{}) {
		c.Oracle = oracle.Options{MaxRetries: DefaultOracleRetries, RetryDelay: DefaultOracleDelay}
	}
	return c
}

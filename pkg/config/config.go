package config

import (
	"cmp"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

// Defaults applied when the config file or environment leaves a field
// unset.
const (
	DefaultListen        = ":8080"
	DefaultAgentEndpoint = "http://localhost:8081/api/agent/stream"
	DefaultUpstreamURL   = "https://api.sarvam.ai/v1/chat/completions"
	DefaultModel         = "sarvam-m"
	DefaultMaxTokens     = 1000
	DefaultTemperature   = 0.7
	DefaultDBPath        = "kisan.db"

	DefaultMaxRetries       = 2
	DefaultRateLimitBase    = 1 * time.Second
	DefaultServerErrorStep  = 750 * time.Millisecond
	DefaultNetworkErrorStep = 1 * time.Second
)

type Config struct {
	Listen        string   `yaml:"listen,omitempty"`
	AgentEndpoint string   `yaml:"agent_endpoint,omitempty"`
	Debug         bool     `yaml:"debug,omitempty"`
	DB            DB       `yaml:"db,omitempty"`
	Upstream      Upstream `yaml:"upstream,omitempty"`
	Retry         Retry    `yaml:"retry,omitempty"`
}

type DB struct {
	Path string `yaml:"path,omitempty"`
}

// Upstream configures the suggestion model endpoint.
type Upstream struct {
	URL         string  `yaml:"url,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// Retry configures the suggestion retry schedule. MaxRetries counts extra
// attempts after the first.
type Retry struct {
	MaxRetries       int           `yaml:"max_retries,omitempty"`
	RateLimitBase    time.Duration `yaml:"rate_limit_base,omitempty"`
	ServerErrorStep  time.Duration `yaml:"server_error_step,omitempty"`
	NetworkErrorStep time.Duration `yaml:"network_error_step,omitempty"`
}

// Load reads the YAML config at path (missing file is fine), applies
// KISAN_* environment overrides and fills in defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("reading config %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing config file\n%s", yaml.FormatError(err, true, true))
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("KISAN_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("KISAN_AGENT_ENDPOINT"); v != "" {
		c.AgentEndpoint = v
	}
	if v := os.Getenv("KISAN_DB_PATH"); v != "" {
		c.DB.Path = v
	}
	if v := os.Getenv("KISAN_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Debug = debug
		}
	}
	if v := os.Getenv("KISAN_UPSTREAM_URL"); v != "" {
		c.Upstream.URL = v
	}
	// SARVAM_API_KEY is what the hosted deployments already set.
	if v := cmp.Or(os.Getenv("KISAN_SARVAM_API_KEY"), os.Getenv("SARVAM_API_KEY")); v != "" {
		c.Upstream.APIKey = v
	}
	if v := os.Getenv("KISAN_UPSTREAM_MODEL"); v != "" {
		c.Upstream.Model = v
	}
}

func (c *Config) applyDefaults() {
	c.Listen = cmp.Or(c.Listen, DefaultListen)
	c.AgentEndpoint = cmp.Or(c.AgentEndpoint, DefaultAgentEndpoint)
	c.DB.Path = cmp.Or(c.DB.Path, DefaultDBPath)
	c.Upstream.URL = cmp.Or(c.Upstream.URL, DefaultUpstreamURL)
	c.Upstream.Model = cmp.Or(c.Upstream.Model, DefaultModel)
	c.Upstream.MaxTokens = cmp.Or(c.Upstream.MaxTokens, DefaultMaxTokens)
	if c.Upstream.Temperature == 0 {
		c.Upstream.Temperature = DefaultTemperature
	}
	c.Retry.MaxRetries = cmp.Or(c.Retry.MaxRetries, DefaultMaxRetries)
	c.Retry.RateLimitBase = cmp.Or(c.Retry.RateLimitBase, DefaultRateLimitBase)
	c.Retry.ServerErrorStep = cmp.Or(c.Retry.ServerErrorStep, DefaultServerErrorStep)
	c.Retry.NetworkErrorStep = cmp.Or(c.Retry.NetworkErrorStep, DefaultNetworkErrorStep)
}

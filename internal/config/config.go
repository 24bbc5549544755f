package config

import (
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server          ServerConfig     `yaml:"server"`
	Store           StoreConfig      `yaml:"store"`
	Log             LogConfig        `yaml:"log"`
	EventBus        EventBusConfig   `yaml:"eventbus"`
	Collectors      CollectorsConfig `yaml:"collectors"`
	ShutdownTimeout Duration         `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// ServerConfig contains API server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig contains content store settings
type StoreConfig struct {
	TTL Duration `yaml:"ttl"` // Item lifetime (default: 36h)
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"json"` // Emit structured JSON instead of console output
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 4)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// CollectorsConfig groups the periodic feed collectors
type CollectorsConfig struct {
	RateLimitRPS float64       `yaml:"rate_limit_rps"` // Outbound request budget shared by all collectors
	HTTPTimeout  Duration      `yaml:"http_timeout"`   // Timeout for collector HTTP requests
	News         NewsConfig    `yaml:"news"`
	Weather      WeatherConfig `yaml:"weather"`
}

// NewsConfig contains news collection settings
type NewsConfig struct {
	RefreshInterval Duration       `yaml:"refresh_interval"`
	Outlets         []OutletConfig `yaml:"outlets"`
}

// OutletConfig describes a single news source. An outlet with a feed URL is
// collected over RSS; otherwise the page at URL is scraped with the
// selectors below.
type OutletConfig struct {
	Name string `yaml:"name"`
	Feed string `yaml:"feed"`
	URL  string `yaml:"url"`

	// Scrape selectors, only used when Feed is empty
	Container string `yaml:"container"`
	Item      string `yaml:"item"`
	Title     string `yaml:"title"`
	Link      string `yaml:"link"`
	Image     string `yaml:"image"`
	ImageAttr string `yaml:"image_attr"`
	TimeAttr  string `yaml:"time_attr"`
}

// WeatherConfig contains weather forecast collection settings
type WeatherConfig struct {
	Enabled         bool     `yaml:"enabled"`
	RefreshInterval Duration `yaml:"refresh_interval"`
	URL             string   `yaml:"url"`
	Latitude        float64  `yaml:"latitude"`
	Longitude       float64  `yaml:"longitude"`
	ClientID        string   `yaml:"client_id"`
	ClientSecret    string   `yaml:"client_secret"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	// Store defaults
	if cfg.Store.TTL == 0 {
		cfg.Store.TTL = Duration(36 * time.Hour)
	}

	// Collector defaults
	if cfg.Collectors.RateLimitRPS == 0 {
		cfg.Collectors.RateLimitRPS = 4.0
	}
	if cfg.Collectors.HTTPTimeout == 0 {
		cfg.Collectors.HTTPTimeout = Duration(30 * time.Second)
	}
	if cfg.Collectors.News.RefreshInterval == 0 {
		cfg.Collectors.News.RefreshInterval = Duration(1 * time.Hour)
	}
	if cfg.Collectors.Weather.RefreshInterval == 0 {
		cfg.Collectors.Weather.RefreshInterval = Duration(3 * time.Hour)
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}

	return &cfg, nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

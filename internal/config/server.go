package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig is the ingestion service configuration, read from the
// environment.
type ServerConfig struct {
	Port string

	// Gate configuration
	AllowedServers    []string // server-name allow-list
	AllowedIPs        []string // nil disables the origin stage entirely
	RequestTimeout    time.Duration
	MaxQueueEntries   int // admission ceiling per (server, kind)
	LogSecurityEvents bool
	APIKey            string // empty keeps mutating endpoints disabled
	AllowedOrigins    []string

	CatalogPath string

	// Live snapshot stream
	WSEnabled        bool
	WSStreamInterval time.Duration

	// Messaging surface / tracked message bootstrap
	MessagingBaseURL    string
	MessagingToken      string
	MessagingRatePerSec int
	TrackChannelID      string
	TrackInterval       time.Duration
	APIBaseURL          string
	ServerName          string
}

// LoadServerConfig reads the service configuration from the environment,
// applying defaults. A missing API_KEY is deliberately not an error: the
// mutating endpoints stay disabled instead of the process refusing to
// start.
func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{
		Port:                getEnvOrDefault("PORT", "8080"),
		AllowedServers:      splitCSV(getEnvOrDefault("ALLOWED_SERVERS", "Yurian")),
		AllowedIPs:          splitCSV(os.Getenv("ALLOWED_IPS")),
		RequestTimeout:      time.Duration(getEnvInt("REQUEST_TIMEOUT", 30000)) * time.Millisecond,
		MaxQueueEntries:     getEnvInt("MAX_QUEUE_ENTRIES", 100),
		LogSecurityEvents:   getEnvOrDefault("LOG_SECURITY_EVENTS", "false") == "true",
		APIKey:              os.Getenv("API_KEY"),
		AllowedOrigins:      splitCSV(getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000")),
		CatalogPath:         getEnvOrDefault("CATALOG_PATH", "configs/catalog.yaml"),
		WSEnabled:           getEnvOrDefault("WS_ENABLED", "true") == "true",
		WSStreamInterval:    getEnvDuration("WS_STREAM_INTERVAL", 5*time.Second),
		MessagingBaseURL:    os.Getenv("MESSAGING_BASE_URL"),
		MessagingToken:      os.Getenv("MESSAGING_TOKEN"),
		MessagingRatePerSec: getEnvInt("MESSAGING_RATE_PER_SEC", 2),
		TrackChannelID:      os.Getenv("TRACK_CHANNEL_ID"),
		TrackInterval:       getEnvDuration("TRACK_INTERVAL", time.Minute),
		APIBaseURL:          getEnvOrDefault("API_BASE_URL", "http://localhost:8080"),
		ServerName:          getEnvOrDefault("SERVER_NAME", "Yurian"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate aggregates configuration problems instead of stopping at the
// first one.
func (c *ServerConfig) Validate() error {
	errs := &ValidationErrors{}

	for _, server := range c.AllowedServers {
		if !ServerNamePattern.MatchString(server) {
			errs.InvalidServers = append(errs.InvalidServers, server)
		}
	}
	if len(c.AllowedServers) == 0 {
		errs.General = append(errs.General, "ALLOWED_SERVERS must name at least one server")
	}
	if c.RequestTimeout <= 0 {
		errs.General = append(errs.General, "REQUEST_TIMEOUT must be positive")
	}
	if c.MaxQueueEntries < 1 {
		errs.General = append(errs.General, "MAX_QUEUE_ENTRIES must be >= 1")
	}
	if c.WSEnabled && c.WSStreamInterval <= 0 {
		errs.General = append(errs.General, "WS_STREAM_INTERVAL must be positive")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return v
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return defaultVal
	}
	return v
}

// splitCSV parses a comma-separated env value, trimming whitespace and
// dropping empties. Returns nil for an unset value so optional lists can
// distinguish absent from empty.
func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

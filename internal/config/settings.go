package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by LoadSettings.
const EnvPrefix = "DOCINDEX"

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// Engine backend constants
const (
	BackendElasticsearch = "elasticsearch"
	BackendBleve         = "bleve"
)

// Transport constants
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// EngineSettings selects the search engine backend
type EngineSettings struct {
	Backend string `mapstructure:"backend"` // BackendElasticsearch or BackendBleve
}

// ElasticsearchSettings configuration for the Elasticsearch cluster
type ElasticsearchSettings struct {
	URL                string        `mapstructure:"url"` // overrides scheme, host and port when set
	Scheme             string        `mapstructure:"scheme"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	Timeout            time.Duration `mapstructure:"timeout"`
	Refresh            string        `mapstructure:"refresh"`
}

// Address returns the cluster URL.
func (e ElasticsearchSettings) Address() string {
	if e.URL != "" {
		return e.URL
	}
	return e.Scheme + "://" + net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// BleveSettings configuration for the embedded index
type BleveSettings struct {
	Dir string `mapstructure:"dir"`
}

// IngestSettings configuration for document ingestion
type IngestSettings struct {
	InputDir    string `mapstructure:"input_dir"`
	BatchSize   int    `mapstructure:"batch_size"`
	MaxFileSize int64  `mapstructure:"max_file_size"`
	ReportPath  string `mapstructure:"report_path"`
}

// ServeSettings configuration for the MCP server
type ServeSettings struct {
	Transport string       `mapstructure:"transport"`
	Host      string       `mapstructure:"host"`
	Port      int          `mapstructure:"port"`
	Auth      AuthSettings `mapstructure:"auth"`
}

// Settings application settings
type Settings struct {
	LogLevel      string                `mapstructure:"log_level"`
	Output        string                `mapstructure:"output"`
	Index         string                `mapstructure:"index"`
	Engine        EngineSettings        `mapstructure:"engine"`
	Elasticsearch ElasticsearchSettings `mapstructure:"elasticsearch"`
	Bleve         BleveSettings         `mapstructure:"bleve"`
	Ingest        IngestSettings        `mapstructure:"ingest"`
	Serve         ServeSettings         `mapstructure:"serve"`
}

// flagKeys maps setting keys to the CLI flags that override them.
var flagKeys = map[string]string{
	"log_level":                          "log-level",
	"output":                             "output",
	"index":                              "index",
	"engine.backend":                     "engine",
	"elasticsearch.url":                  "es-url",
	"elasticsearch.username":             "es-username",
	"elasticsearch.password":             "es-password",
	"elasticsearch.timeout":              "es-timeout",
	"elasticsearch.insecure_skip_verify": "es-insecure-skip-verify",
	"bleve.dir":                          "bleve-dir",
	"ingest.input_dir":                   "input-dir",
	"ingest.batch_size":                  "batch-size",
	"ingest.max_file_size":               "max-file-size",
	"ingest.report_path":                 "report",
	"serve.transport":                    "transport",
	"serve.host":                         "host",
	"serve.port":                         "port",
	"serve.auth.type":                    "auth-type",
	"serve.auth.basic.username":          "auth-basic-username",
	"serve.auth.basic.password":          "auth-basic-password",
	"serve.auth.api_keys":                "auth-api-keys",
}

// envOnlyKeys are settings without a CLI flag.
var envOnlyKeys = []string{
	"elasticsearch.scheme",
	"elasticsearch.host",
	"elasticsearch.port",
	"elasticsearch.refresh",
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("log_level", "info")
	v.SetDefault("output", "text")
	v.SetDefault("index", "document_index")
	v.SetDefault("engine.backend", BackendElasticsearch)

	v.SetDefault("elasticsearch.scheme", "http")
	v.SetDefault("elasticsearch.host", "localhost")
	v.SetDefault("elasticsearch.port", 9200)
	v.SetDefault("elasticsearch.timeout", 30*time.Second)
	v.SetDefault("elasticsearch.refresh", "wait_for")

	v.SetDefault("bleve.dir", defaultBleveDir())

	v.SetDefault("ingest.input_dir", "./data")
	v.SetDefault("ingest.batch_size", 100)
	v.SetDefault("ingest.max_file_size", int64(64<<20)) // 64MB

	v.SetDefault("serve.transport", TransportStdio)
	v.SetDefault("serve.host", "0.0.0.0")
	v.SetDefault("serve.port", 8080)
	v.SetDefault("serve.auth.type", AuthTypeNone)

	// Environment variables, e.g. DOCINDEX_ELASTICSEARCH_HOST
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind nested keys explicitly so Unmarshal sees keys without defaults
	for key := range flagKeys {
		_ = v.BindEnv(key)
	}
	for _, key := range envOnlyKeys {
		_ = v.BindEnv(key)
	}

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of API keys if provided via env var as comma-separated string
	apiKeysEnv := os.Getenv(EnvPrefix + "_SERVE_AUTH_API_KEYS")
	if apiKeysEnv != "" {
		keys := settings.Serve.Auth.APIKeys
		if len(keys) == 0 || (len(keys) == 1 && strings.Contains(keys[0], ",")) {
			settings.Serve.Auth.APIKeys = strings.Split(apiKeysEnv, ",")
		}
	}

	// Trim spaces from API keys
	for i := range settings.Serve.Auth.APIKeys {
		settings.Serve.Auth.APIKeys[i] = strings.TrimSpace(settings.Serve.Auth.APIKeys[i])
	}
	settings.Serve.Auth.APIKeys = filterEmptyStrings(settings.Serve.Auth.APIKeys)

	settings.Engine.Backend = strings.ToLower(strings.TrimSpace(settings.Engine.Backend))
	settings.Bleve.Dir = expandHomeDir(settings.Bleve.Dir)
	settings.Ingest.InputDir = expandHomeDir(settings.Ingest.InputDir)
	settings.Ingest.ReportPath = expandHomeDir(settings.Ingest.ReportPath)

	return &settings, nil
}

// defaultBleveDir returns the default directory for embedded indexes
func defaultBleveDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docindex"
	}
	return filepath.Join(home, ".docindex")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete config.
func ValidateSettings(s *Settings) error {
	if _, err := ParseLogLevel(s.LogLevel); err != nil {
		return err
	}

	if strings.TrimSpace(s.Index) == "" {
		return errors.New("index cannot be empty")
	}

	switch s.Engine.Backend {
	case BackendElasticsearch:
		if err := validateElasticsearchSettings(&s.Elasticsearch); err != nil {
			return err
		}
	case BackendBleve:
		if s.Bleve.Dir == "" {
			return errors.New("bleve-dir cannot be empty")
		}
	default:
		return errors.New("engine must be 'elasticsearch' or 'bleve', got: " + s.Engine.Backend)
	}

	if s.Ingest.BatchSize <= 0 {
		return errors.New("batch-size must be positive")
	}
	if s.Ingest.MaxFileSize < 0 {
		return errors.New("max-file-size cannot be negative")
	}

	return validateServeSettings(&s.Serve)
}

// validateElasticsearchSettings validates the cluster connection settings
func validateElasticsearchSettings(e *ElasticsearchSettings) error {
	if e.URL == "" {
		switch e.Scheme {
		case "http", "https":
			// valid
		default:
			return errors.New("elasticsearch scheme must be 'http' or 'https', got: " + e.Scheme)
		}
		if e.Host == "" {
			return errors.New("elasticsearch host cannot be empty")
		}
		if e.Port <= 0 || e.Port > 65535 {
			return fmt.Errorf("elasticsearch port out of range: %d", e.Port)
		}
	}

	if e.Timeout <= 0 {
		return errors.New("es-timeout must be positive")
	}

	switch e.Refresh {
	case "", "true", "false", "wait_for":
		// valid
	default:
		return errors.New("elasticsearch refresh must be 'true', 'false' or 'wait_for', got: " + e.Refresh)
	}

	if e.Password != "" && e.Username == "" {
		return errors.New("es-password requires es-username")
	}
	return nil
}

// validateServeSettings validates transport and auth configuration
func validateServeSettings(s *ServeSettings) error {
	// Validate transport type
	switch s.Transport {
	case TransportStdio, TransportSSE:
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	if s.Transport == TransportSSE && (s.Port <= 0 || s.Port > 65535) {
		return fmt.Errorf("port out of range: %d", s.Port)
	}

	hasBasicCreds := s.Auth.Basic.Username != "" || s.Auth.Basic.Password != ""
	hasAPIKeys := len(s.Auth.APIKeys) > 0

	switch s.Auth.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if s.Auth.Basic.Username == "" || s.Auth.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + s.Auth.Type)
	}

	return nil
}

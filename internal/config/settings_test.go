package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// validSettings returns settings that pass ValidateSettings.
func validSettings() *Settings {
	return &Settings{
		LogLevel: "info",
		Output:   "text",
		Index:    "document_index",
		Engine:   EngineSettings{Backend: BackendElasticsearch},
		Elasticsearch: ElasticsearchSettings{
			Scheme:  "http",
			Host:    "localhost",
			Port:    9200,
			Timeout: 30 * time.Second,
			Refresh: "wait_for",
		},
		Bleve:  BleveSettings{Dir: "/tmp/docindex"},
		Ingest: IngestSettings{InputDir: "./data", BatchSize: 100, MaxFileSize: 1024},
		Serve: ServeSettings{
			Transport: TransportStdio,
			Host:      "0.0.0.0",
			Port:      8080,
			Auth:      AuthSettings{Type: AuthTypeNone},
		},
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Index != "document_index" {
		t.Errorf("Expected default index 'document_index', got '%s'", settings.Index)
	}
	if settings.Engine.Backend != BackendElasticsearch {
		t.Errorf("Expected default backend '%s', got '%s'", BackendElasticsearch, settings.Engine.Backend)
	}
	if got := settings.Elasticsearch.Address(); got != "http://localhost:9200" {
		t.Errorf("Expected default address 'http://localhost:9200', got '%s'", got)
	}
	if settings.Elasticsearch.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %v", settings.Elasticsearch.Timeout)
	}
	if settings.Ingest.InputDir != "./data" {
		t.Errorf("Expected default input dir './data', got '%s'", settings.Ingest.InputDir)
	}
	if settings.Ingest.BatchSize != 100 {
		t.Errorf("Expected default batch size 100, got %d", settings.Ingest.BatchSize)
	}
	if settings.Ingest.MaxFileSize != 64<<20 {
		t.Errorf("Expected default max file size 64MB, got %d", settings.Ingest.MaxFileSize)
	}
	if settings.Serve.Transport != TransportStdio {
		t.Errorf("Expected default transport 'stdio', got '%s'", settings.Serve.Transport)
	}
	if settings.Serve.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", settings.Serve.Port)
	}
	if settings.Serve.Auth.Type != AuthTypeNone {
		t.Errorf("Expected default auth type '%s', got '%s'", AuthTypeNone, settings.Serve.Auth.Type)
	}
	if !strings.HasSuffix(settings.Bleve.Dir, ".docindex") {
		t.Errorf("Expected default bleve dir to end with .docindex, got '%s'", settings.Bleve.Dir)
	}
	if err := ValidateSettings(settings); err != nil {
		t.Errorf("Expected defaults to be valid, got: %v", err)
	}
}

func TestLoadSettings_EnvVars(t *testing.T) {
	t.Setenv("DOCINDEX_INDEX", "reports")
	t.Setenv("DOCINDEX_ENGINE_BACKEND", "BLEVE")
	t.Setenv("DOCINDEX_ELASTICSEARCH_HOST", "es.internal")
	t.Setenv("DOCINDEX_ELASTICSEARCH_PORT", "9300")
	t.Setenv("DOCINDEX_ELASTICSEARCH_TIMEOUT", "5s")
	t.Setenv("DOCINDEX_INGEST_BATCH_SIZE", "25")
	t.Setenv("DOCINDEX_SERVE_PORT", "9090")
	t.Setenv("DOCINDEX_SERVE_AUTH_TYPE", "basic")
	t.Setenv("DOCINDEX_SERVE_AUTH_BASIC_USERNAME", "admin")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Index != "reports" {
		t.Errorf("Expected index 'reports', got '%s'", settings.Index)
	}
	if settings.Engine.Backend != BackendBleve {
		t.Errorf("Expected backend normalized to 'bleve', got '%s'", settings.Engine.Backend)
	}
	if got := settings.Elasticsearch.Address(); got != "http://es.internal:9300" {
		t.Errorf("Expected address 'http://es.internal:9300', got '%s'", got)
	}
	if settings.Elasticsearch.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", settings.Elasticsearch.Timeout)
	}
	if settings.Ingest.BatchSize != 25 {
		t.Errorf("Expected batch size 25, got %d", settings.Ingest.BatchSize)
	}
	if settings.Serve.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", settings.Serve.Port)
	}
	if settings.Serve.Auth.Type != AuthTypeBasic {
		t.Errorf("Expected auth type '%s', got '%s'", AuthTypeBasic, settings.Serve.Auth.Type)
	}
	if settings.Serve.Auth.Basic.Username != "admin" {
		t.Errorf("Expected username 'admin', got '%s'", settings.Serve.Auth.Basic.Username)
	}
}

func TestLoadSettings_APIKeys_EnvVar(t *testing.T) {
	t.Setenv("DOCINDEX_SERVE_AUTH_API_KEYS", "key1, key2,,key3")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	keys := settings.Serve.Auth.APIKeys
	if len(keys) != 3 {
		t.Fatalf("Expected 3 API keys, got %d: %v", len(keys), keys)
	}
	for i, want := range []string{"key1", "key2", "key3"} {
		if keys[i] != want {
			t.Errorf("Expected %s, got '%s'", want, keys[i])
		}
	}
}

func TestLoadSettings_APIKeys_SingleKey(t *testing.T) {
	t.Setenv("DOCINDEX_SERVE_AUTH_API_KEYS", "singlekey")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if len(settings.Serve.Auth.APIKeys) != 1 || settings.Serve.Auth.APIKeys[0] != "singlekey" {
		t.Errorf("Expected [singlekey], got %v", settings.Serve.Auth.APIKeys)
	}
}

func TestLoadSettings_EnvFile(t *testing.T) {
	content := []byte("index=from_env_file\noutput=json")
	tmpEnv := ".env"
	if err := os.WriteFile(tmpEnv, content, 0644); err != nil {
		t.Fatalf("Failed to create .env file: %v", err)
	}
	defer func() { _ = os.Remove(tmpEnv) }()

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Index != "from_env_file" {
		t.Errorf("Expected index from_env_file, got %s", settings.Index)
	}
	if settings.Output != "json" {
		t.Errorf("Expected output json, got %s", settings.Output)
	}
}

func TestLoadSettings_InvalidConfig(t *testing.T) {
	t.Setenv("DOCINDEX_SERVE_PORT", "not-a-number")

	_, err := LoadSettings()
	if err == nil {
		t.Fatal("Expected error for invalid port type")
	}
}

func TestLoadSettings_ExpandsHomeDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("No home directory")
	}
	t.Setenv("DOCINDEX_BLEVE_DIR", "~/indexes")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if want := filepath.Join(home, "indexes"); settings.Bleve.Dir != want {
		t.Errorf("Expected bleve dir %s, got %s", want, settings.Bleve.Dir)
	}
}

func TestLoadSettingsWithFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("DOCINDEX_SERVE_PORT", "9090")
	t.Setenv("DOCINDEX_INDEX", "env_index")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 0, "")
	flags.String("index", "", "")
	_ = flags.Set("port", "7777")
	_ = flags.Set("index", "cli_index")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Serve.Port != 7777 {
		t.Errorf("Expected CLI port 7777, got %d", settings.Serve.Port)
	}
	if settings.Index != "cli_index" {
		t.Errorf("Expected CLI index 'cli_index', got '%s'", settings.Index)
	}
}

func TestLoadSettingsWithFlags_UnchangedFlagKeepsEnv(t *testing.T) {
	t.Setenv("DOCINDEX_INGEST_BATCH_SIZE", "7")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("batch-size", 500, "")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if settings.Ingest.BatchSize != 7 {
		t.Errorf("Expected env batch size 7, got %d", settings.Ingest.BatchSize)
	}
}

func TestLoadSettingsWithFlags_AllFlagTypes(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("engine", "", "")
	flags.String("es-url", "", "")
	flags.Duration("es-timeout", 0, "")
	flags.Bool("es-insecure-skip-verify", false, "")
	flags.String("input-dir", "", "")
	flags.Int64("max-file-size", 0, "")
	flags.String("report", "", "")
	flags.String("transport", "", "")
	flags.String("auth-type", "", "")
	flags.StringSlice("auth-api-keys", nil, "")

	_ = flags.Set("engine", "bleve")
	_ = flags.Set("es-url", "https://search.example.com:9243")
	_ = flags.Set("es-timeout", "2s")
	_ = flags.Set("es-insecure-skip-verify", "true")
	_ = flags.Set("input-dir", "/srv/docs")
	_ = flags.Set("max-file-size", "2048")
	_ = flags.Set("report", "/tmp/report.json")
	_ = flags.Set("transport", "sse")
	_ = flags.Set("auth-type", "apikey")
	_ = flags.Set("auth-api-keys", "k1,k2")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Engine.Backend != BackendBleve {
		t.Errorf("Expected backend 'bleve', got '%s'", settings.Engine.Backend)
	}
	if got := settings.Elasticsearch.Address(); got != "https://search.example.com:9243" {
		t.Errorf("Expected URL override, got '%s'", got)
	}
	if settings.Elasticsearch.Timeout != 2*time.Second {
		t.Errorf("Expected timeout 2s, got %v", settings.Elasticsearch.Timeout)
	}
	if !settings.Elasticsearch.InsecureSkipVerify {
		t.Error("Expected insecure skip verify to be set")
	}
	if settings.Ingest.InputDir != "/srv/docs" {
		t.Errorf("Expected input dir '/srv/docs', got '%s'", settings.Ingest.InputDir)
	}
	if settings.Ingest.MaxFileSize != 2048 {
		t.Errorf("Expected max file size 2048, got %d", settings.Ingest.MaxFileSize)
	}
	if settings.Ingest.ReportPath != "/tmp/report.json" {
		t.Errorf("Expected report path '/tmp/report.json', got '%s'", settings.Ingest.ReportPath)
	}
	if settings.Serve.Transport != TransportSSE {
		t.Errorf("Expected transport 'sse', got '%s'", settings.Serve.Transport)
	}
	if settings.Serve.Auth.Type != AuthTypeAPIKey {
		t.Errorf("Expected auth type 'apikey', got '%s'", settings.Serve.Auth.Type)
	}
	if len(settings.Serve.Auth.APIKeys) != 2 {
		t.Errorf("Expected 2 API keys, got %v", settings.Serve.Auth.APIKeys)
	}
}

// --- ValidateSettings Tests ---

func TestValidateSettings_Valid(t *testing.T) {
	if err := ValidateSettings(validSettings()); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
}

func TestValidateSettings_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Settings)
		errMsg string
	}{
		{"bad log level", func(s *Settings) { s.LogLevel = "verbose" }, "log-level"},
		{"empty index", func(s *Settings) { s.Index = " " }, "index cannot be empty"},
		{"unknown backend", func(s *Settings) { s.Engine.Backend = "solr" }, "engine must be"},
		{"bad scheme", func(s *Settings) { s.Elasticsearch.Scheme = "ftp" }, "scheme"},
		{"empty host", func(s *Settings) { s.Elasticsearch.Host = "" }, "host cannot be empty"},
		{"bad es port", func(s *Settings) { s.Elasticsearch.Port = 70000 }, "port out of range"},
		{"zero timeout", func(s *Settings) { s.Elasticsearch.Timeout = 0 }, "es-timeout"},
		{"bad refresh", func(s *Settings) { s.Elasticsearch.Refresh = "sometimes" }, "refresh"},
		{"password without username", func(s *Settings) { s.Elasticsearch.Password = "x" }, "es-password"},
		{"bleve without dir", func(s *Settings) {
			s.Engine.Backend = BackendBleve
			s.Bleve.Dir = ""
		}, "bleve-dir"},
		{"zero batch size", func(s *Settings) { s.Ingest.BatchSize = 0 }, "batch-size"},
		{"negative max file size", func(s *Settings) { s.Ingest.MaxFileSize = -1 }, "max-file-size"},
		{"bad transport", func(s *Settings) { s.Serve.Transport = "http" }, "transport must be"},
		{"bad sse port", func(s *Settings) {
			s.Serve.Transport = TransportSSE
			s.Serve.Port = 0
		}, "port out of range"},
		{"unknown auth", func(s *Settings) { s.Serve.Auth.Type = "oauth" }, "unknown auth-type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Expected '%s' in error, got: %v", tt.errMsg, err)
			}
		})
	}
}

func TestValidateSettings_URLSkipsHostChecks(t *testing.T) {
	s := validSettings()
	s.Elasticsearch.URL = "https://cluster:9243"
	s.Elasticsearch.Host = ""
	s.Elasticsearch.Scheme = ""
	if err := ValidateSettings(s); err != nil {
		t.Errorf("Expected URL to bypass host validation, got: %v", err)
	}
}

func TestValidateSettings_BleveSkipsElasticsearch(t *testing.T) {
	s := validSettings()
	s.Engine.Backend = BackendBleve
	s.Elasticsearch = ElasticsearchSettings{}
	if err := ValidateSettings(s); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
}

func TestValidateSettings_Auth(t *testing.T) {
	tests := []struct {
		name   string
		auth   AuthSettings
		errMsg string
	}{
		{"none", AuthSettings{Type: AuthTypeNone}, ""},
		{"empty type", AuthSettings{}, ""},
		{"basic", AuthSettings{Type: AuthTypeBasic, Basic: BasicAuthSettings{Username: "admin", Password: "secret"}}, ""},
		{"apikey", AuthSettings{Type: AuthTypeAPIKey, APIKeys: []string{"key1", "key2"}}, ""},
		{"none with username", AuthSettings{Type: AuthTypeNone, Basic: BasicAuthSettings{Username: "admin"}}, "incompatible"},
		{"none with password", AuthSettings{Type: AuthTypeNone, Basic: BasicAuthSettings{Password: "secret"}}, "incompatible"},
		{"none with api keys", AuthSettings{Type: AuthTypeNone, APIKeys: []string{"key1"}}, "incompatible"},
		{"basic missing username", AuthSettings{Type: AuthTypeBasic, Basic: BasicAuthSettings{Password: "secret"}}, "username and password"},
		{"basic missing password", AuthSettings{Type: AuthTypeBasic, Basic: BasicAuthSettings{Username: "admin"}}, "username and password"},
		{"basic with api keys", AuthSettings{
			Type:    AuthTypeBasic,
			Basic:   BasicAuthSettings{Username: "admin", Password: "secret"},
			APIKeys: []string{"key1"},
		}, "mutually exclusive"},
		{"apikey missing keys", AuthSettings{Type: AuthTypeAPIKey}, "requires at least one"},
		{"apikey with basic creds", AuthSettings{
			Type:    AuthTypeAPIKey,
			APIKeys: []string{"key1"},
			Basic:   BasicAuthSettings{Username: "admin"},
		}, "mutually exclusive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			s.Serve.Auth = tt.auth
			err := ValidateSettings(s)
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Expected '%s' in error, got: %v", tt.errMsg, err)
			}
		})
	}
}

func TestExpandHomeDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("No home directory")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"~", home},
		{"~/docs", filepath.Join(home, "docs")},
		{"/abs/path", "/abs/path"},
		{"relative/~", "relative/~"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := expandHomeDir(tt.input); got != tt.expected {
			t.Errorf("expandHomeDir(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFilterEmptyStrings(t *testing.T) {
	got := filterEmptyStrings([]string{"a", "", "b", ""})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Expected [a b], got %v", got)
	}
	if filterEmptyStrings(nil) != nil {
		t.Error("Expected nil for nil input")
	}
}

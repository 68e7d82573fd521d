package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const masked = "****"

// ParseLogLevel parses a log level name (debug, info, warn, error).
// The empty string yields info.
func ParseLogLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log-level %q: %w", s, err)
	}
	return level, nil
}

// NewLogger creates a text logger writing to w at the given level.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// LogWithLogger logs the resolved settings in a granular way, skipping irrelevant ones
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.DebugContext(ctx, "Config: log_level", "value", s.LogLevel)
	logger.DebugContext(ctx, "Config: output", "value", s.Output)
	logger.DebugContext(ctx, "Config: index", "value", s.Index)
	logger.DebugContext(ctx, "Config: engine.backend", "value", s.Engine.Backend)

	switch s.Engine.Backend {
	case BackendElasticsearch:
		logger.DebugContext(ctx, "Config: elasticsearch.address", "value", s.Elasticsearch.Address())
		logger.DebugContext(ctx, "Config: elasticsearch.timeout", "value", s.Elasticsearch.Timeout)
		if s.Elasticsearch.Username != "" {
			logger.DebugContext(ctx, "Config: elasticsearch.username", "value", s.Elasticsearch.Username)
			logger.DebugContext(ctx, "Config: elasticsearch.password", "value", masked)
		}
		if s.Elasticsearch.InsecureSkipVerify {
			logger.WarnContext(ctx, "Config: elasticsearch.insecure_skip_verify is enabled")
		}
	case BackendBleve:
		logger.DebugContext(ctx, "Config: bleve.dir", "value", s.Bleve.Dir)
	}
}

// LogServeSettings logs the MCP server settings
func LogServeSettings(s *ServeSettings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == TransportSSE {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)
	}

	logger.InfoContext(ctx, "Config: auth.type", "value", s.Auth.Type)
	switch s.Auth.Type {
	case AuthTypeBasic:
		logger.InfoContext(ctx, "Config: auth.basic.username", "value", s.Auth.Basic.Username)
		logger.InfoContext(ctx, "Config: auth.basic.password", "value", masked)
	case AuthTypeAPIKey:
		logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Auth.APIKeys))
	}
}

// AuthSettingsLogValue returns a slog.Value for AuthSettings with masked data
func AuthSettingsLogValue(s AuthSettings) slog.Value {
	keys := make([]string, len(s.APIKeys))
	for i := range s.APIKeys {
		keys[i] = masked
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.Any("basic", BasicAuthSettingsLogValue(s.Basic)),
		slog.Any("api_keys", keys),
	)
}

// BasicAuthSettingsLogValue returns a slog.Value for BasicAuthSettings with masked data
func BasicAuthSettingsLogValue(s BasicAuthSettings) slog.Value {
	return slog.GroupValue(
		slog.String("username", s.Username),
		slog.String("password", masked),
	)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	es := slog.GroupValue(
		slog.String("address", s.Elasticsearch.Address()),
		slog.String("username", s.Elasticsearch.Username),
		slog.String("password", masked),
		slog.Duration("timeout", s.Elasticsearch.Timeout),
	)
	return slog.GroupValue(
		slog.String("log_level", s.LogLevel),
		slog.String("index", s.Index),
		slog.String("engine", s.Engine.Backend),
		slog.Any("elasticsearch", es),
		slog.String("bleve_dir", s.Bleve.Dir),
		slog.String("transport", s.Serve.Transport),
		slog.Any("auth", AuthSettingsLogValue(s.Serve.Auth)),
	)
}

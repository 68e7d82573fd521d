// Package testkit starts docindex services for integration tests.
package testkit

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/sha1n/docindex/internal/app"
)

// Service represents a test service that can be started and stopped
type Service interface {
	Start() (map[string]any, error)
	Stop() error
	GetName() string
}

// TestEnvContext provides access to properties collected during environment startup
type TestEnvContext interface {
	GetProperties() map[string]any
	GetProperty(name string) (any, bool)
}

// TestEnv manages the lifecycle of test services
type TestEnv interface {
	Start() (map[string]any, error)
	Stop() error
	GetContext() TestEnvContext
}

type testEnvContextImpl struct {
	properties map[string]any
}

func (c *testEnvContextImpl) GetProperties() map[string]any {
	return c.properties
}

func (c *testEnvContextImpl) GetProperty(name string) (any, bool) {
	val, ok := c.properties[name]
	return val, ok
}

type testEnvImpl struct {
	services []Service
	context  *testEnvContextImpl
}

// NewTestEnv creates a new test environment with the given services
func NewTestEnv(services ...Service) TestEnv {
	return &testEnvImpl{
		services: services,
		context:  &testEnvContextImpl{properties: make(map[string]any)},
	}
}

func (e *testEnvImpl) Start() (map[string]any, error) {
	for _, s := range e.services {
		props, err := s.Start()
		if err != nil {
			return nil, fmt.Errorf("failed to start %s: %w", s.GetName(), err)
		}
		for k, v := range props {
			e.context.properties[k] = v
		}
	}
	return e.context.properties, nil
}

func (e *testEnvImpl) Stop() error {
	var lastErr error
	// Stop in reverse order
	for i := len(e.services) - 1; i >= 0; i-- {
		if err := e.services[i].Stop(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (e *testEnvImpl) GetContext() TestEnvContext {
	return e.context
}

// GetFreePort returns a free port from the kernel
func GetFreePort() (int, error) {
	return getFreePortWithAddr("localhost:0")
}

// MustGetFreePort returns a free port or fails the test
func MustGetFreePort(t testing.TB) int {
	t.Helper()
	port, err := GetFreePort()
	if err != nil {
		t.Fatalf("Failed to get free port: %v", err)
	}
	return port
}

func getFreePortWithAddr(addrStr string) (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", addrStr)
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// FlagOptions configures NewTestFlags
type FlagOptions struct {
	BleveDir  string   // Required: directory of the embedded index
	Index     string   // Defaults to "it_documents"
	Port      int      // Uses free port if 0
	Transport string   // Defaults to "sse"
	AuthType  string   // Defaults to "none"
	APIKeys   []string // Used with AuthType "apikey"
	Host      string   // Defaults to "localhost"
}

// NewTestFlags creates a flag set running every command against an
// embedded bleve index.
func NewTestFlags(t testing.TB, opts FlagOptions) *pflag.FlagSet {
	t.Helper()

	if opts.BleveDir == "" {
		t.Fatal("FlagOptions.BleveDir is required")
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	app.RegisterGlobalFlags(flags)
	app.RegisterIngestFlags(flags)
	app.RegisterServeFlags(flags)

	index := defaultString(opts.Index, "it_documents")
	transport := defaultString(opts.Transport, "sse")
	authType := defaultString(opts.AuthType, "none")
	host := defaultString(opts.Host, "localhost")

	port := opts.Port
	if port == 0 {
		port = MustGetFreePort(t)
	}

	_ = flags.Set("engine", "bleve")
	_ = flags.Set("bleve-dir", opts.BleveDir)
	_ = flags.Set("index", index)
	_ = flags.Set("log-level", "error")
	_ = flags.Set("port", fmt.Sprintf("%d", port))
	_ = flags.Set("transport", transport)
	_ = flags.Set("auth-type", authType)
	_ = flags.Set("host", host)
	if len(opts.APIKeys) > 0 {
		_ = flags.Set("auth-api-keys", strings.Join(opts.APIKeys, ","))
	}

	return flags
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// QuietRunParams returns production dependencies with output discarded.
func QuietRunParams() app.RunParams {
	params := app.DefaultRunParams()
	params.Stdout = io.Discard
	params.Stderr = io.Discard
	return params
}

// ServerService runs the docindex SSE server as a test service.
// It publishes the server base URL under the "base_url" property.
type ServerService struct {
	flags   *pflag.FlagSet
	timeout time.Duration

	cancel context.CancelFunc
	done   chan error
}

// NewServerService creates a server service for flags built by NewTestFlags.
func NewServerService(flags *pflag.FlagSet) *ServerService {
	return &ServerService{
		flags:   flags,
		timeout: 5 * time.Second,
	}
}

func (s *ServerService) GetName() string {
	return "docindex-sse"
}

func (s *ServerService) Start() (map[string]any, error) {
	host, _ := s.flags.GetString("host")
	port, _ := s.flags.GetInt("port")
	baseURL := fmt.Sprintf("http://%s:%d", host, port)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan error, 1)

	go func() {
		s.done <- app.RunServe(ctx, QuietRunParams(), s.flags, "test")
	}()

	if err := s.waitHealthy(baseURL); err != nil {
		cancel()
		s.cancel = nil
		return nil, err
	}
	return map[string]any{"base_url": baseURL}, nil
}

func (s *ServerService) waitHealthy(baseURL string) error {
	deadline := time.Now().Add(s.timeout)
	client := &http.Client{Timeout: time.Second}

	for time.Now().Before(deadline) {
		select {
		case err := <-s.done:
			return fmt.Errorf("server exited before becoming healthy: %w", err)
		default:
		}

		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("server not healthy after %s", s.timeout)
}

func (s *ServerService) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()

	select {
	case err := <-s.done:
		return err
	case <-time.After(s.timeout):
		return fmt.Errorf("server did not stop within %s", s.timeout)
	}
}

// Package elastic implements the search and ingestion engine contracts on
// top of Elasticsearch.
package elastic

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/sha1n/docindex/internal/domain"
)

// EngineName identifies this engine in logs and metrics.
const EngineName = "elasticsearch"

// DefaultRefresh makes bulk writes visible to search before the call returns.
const DefaultRefresh = "wait_for"

// Config holds the connection settings for an Elasticsearch engine.
type Config struct {
	URL                string
	Index              string
	Username           string
	Password           string
	InsecureSkipVerify bool
	Timeout            time.Duration
	Refresh            string
}

// Client is an Elasticsearch-backed engine bound to one index.
type Client struct {
	es      *elasticsearch.Client
	index   string
	refresh string
	logger  *slog.Logger
}

// New creates a client for cfg. No request is sent until the first operation.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("elasticsearch url cannot be empty")
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("index name cannot be empty")
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if cfg.Timeout > 0 {
		transport.ResponseHeaderTimeout = cfg.Timeout
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	refresh := cfg.Refresh
	if refresh == "" {
		refresh = DefaultRefresh
	}

	logger.Info("Elasticsearch client created", "url", cfg.URL, "index", cfg.Index)

	return &Client{
		es:      es,
		index:   cfg.Index,
		refresh: refresh,
		logger:  logger,
	}, nil
}

// Name returns the engine name.
func (c *Client) Name() string {
	return EngineName
}

// Index returns the index the client reads and writes.
func (c *Client) Index() string {
	return c.index
}

// Ping checks that the cluster answers.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return connectivityError(opPing, err)
	}
	defer closeBody(res.Body)

	if res.IsError() {
		return domain.NewEngineError(opPing, fmt.Errorf("%w: status %d", domain.ErrUnexpectedResponse, res.StatusCode))
	}
	return nil
}

// Close releases client resources. The HTTP transport needs no teardown.
func (c *Client) Close() error {
	return nil
}

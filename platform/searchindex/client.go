// Package searchindex provides an explicitly constructed client for the
// external full-text index (Elasticsearch). It owns connection settings and
// the per-process record of which indices have been bootstrapped.
// This is part of the platform layer and contains no business logic.
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	// ErrUnavailable is returned when the index cannot be reached.
	ErrUnavailable = errors.New("search index unavailable")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("search index client closed")
)

// Config configures the index client.
type Config struct {
	Addresses     []string
	Username      string
	Password      string
	PingTimeout   time.Duration
	BootstrapWait time.Duration
}

// Client wraps the Elasticsearch client.
type Client struct {
	es            *elasticsearch.Client
	transport     *http.Transport
	pingTimeout   time.Duration
	bootstrapWait time.Duration

	ensured sync.Map
	closed  atomic.Bool
}

// Hit is a single matching document.
type Hit struct {
	ID     string          `json:"_id"`
	Score  float64         `json:"_score"`
	Source json.RawMessage `json:"_source"`
}

// SearchResult is the decoded subset of a search response.
type SearchResult struct {
	Total int
	Hits  []Hit
}

// New builds a client. It does not contact the cluster; call Ping for that.
func New(cfg Config) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("searchindex: at least one address is required")
	}

	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 2 * time.Second
	}
	bootstrapWait := cfg.BootstrapWait
	if bootstrapWait <= 0 {
		bootstrapWait = 5 * time.Second
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: pingTimeout, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("searchindex: %w", err)
	}

	return &Client{
		es:            es,
		transport:     transport,
		pingTimeout:   pingTimeout,
		bootstrapWait: bootstrapWait,
	}, nil
}

// Close releases idle connections. Further calls return ErrClosed.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if c.closed.Swap(true) {
		return nil
	}
	c.transport.CloseIdleConnections()
	return nil
}

// Ping checks reachability within the configured connect timeout.
func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()

	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer drain(res)

	if res.IsError() {
		return fmt.Errorf("%w: ping returned %d", ErrUnavailable, res.StatusCode)
	}
	return nil
}

// EnsureIndex creates the index with mapping when it does not exist yet and
// waits for it to accept writes. Success is remembered for the lifetime of
// the client.
func (c *Client) EnsureIndex(ctx context.Context, name string, mapping []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if _, ok := c.ensured.Load(name); ok {
		return nil
	}

	res, err := c.es.Indices.Exists([]string{name}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	drain(res)

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		if err := c.createIndex(ctx, name, mapping); err != nil {
			return err
		}
		if err := c.waitUsable(ctx, name); err != nil {
			return err
		}
	default:
		return fmt.Errorf("searchindex: exists %s returned %d", name, res.StatusCode)
	}

	c.ensured.Store(name, struct{}{})
	return nil
}

func (c *Client) createIndex(ctx context.Context, name string, mapping []byte) error {
	res, err := c.es.Indices.Create(name,
		c.es.Indices.Create.WithBody(bytes.NewReader(mapping)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer drain(res)

	if res.IsError() {
		body := readBody(res)
		// Another process created it between our exists check and create.
		if res.StatusCode == http.StatusBadRequest && bytes.Contains(body, []byte("resource_already_exists_exception")) {
			return nil
		}
		return fmt.Errorf("searchindex: create %s returned %d: %s", name, res.StatusCode, body)
	}
	return nil
}

func (c *Client) waitUsable(ctx context.Context, name string) error {
	res, err := c.es.Cluster.Health(
		c.es.Cluster.Health.WithContext(ctx),
		c.es.Cluster.Health.WithIndex(name),
		c.es.Cluster.Health.WithWaitForStatus("yellow"),
		c.es.Cluster.Health.WithTimeout(c.bootstrapWait),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer drain(res)

	if res.IsError() {
		return fmt.Errorf("searchindex: index %s not ready (status %d)", name, res.StatusCode)
	}
	return nil
}

// Upsert writes doc under id, replacing any previous version. Writing the
// same document twice leaves exactly one document.
func (c *Client) Upsert(ctx context.Context, index, id string, doc any) error {
	if c.closed.Load() {
		return ErrClosed
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("searchindex: encode %s/%s: %w", index, id, err)
	}

	res, err := c.es.Index(index, bytes.NewReader(payload),
		c.es.Index.WithDocumentID(id),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer drain(res)

	if res.IsError() {
		return fmt.Errorf("searchindex: index %s/%s returned %d: %s", index, id, res.StatusCode, readBody(res))
	}
	return nil
}

// Delete removes a document. A missing document is not an error.
func (c *Client) Delete(ctx context.Context, index, id string) error {
	if c.closed.Load() {
		return ErrClosed
	}

	res, err := c.es.Delete(index, id, c.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer drain(res)

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("searchindex: delete %s/%s returned %d: %s", index, id, res.StatusCode, readBody(res))
	}
	return nil
}

// Search runs a query DSL body against index.
func (c *Client) Search(ctx context.Context, index string, body map[string]any) (*SearchResult, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("searchindex: encode query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
		c.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer drain(res)

	if res.StatusCode == http.StatusNotFound {
		return &SearchResult{Hits: []Hit{}}, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("searchindex: search %s returned %d: %s", index, res.StatusCode, readBody(res))
	}

	var decoded struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []Hit `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("searchindex: decode search response: %w", err)
	}

	hits := decoded.Hits.Hits
	if hits == nil {
		hits = []Hit{}
	}
	return &SearchResult{Total: decoded.Hits.Total.Value, Hits: hits}, nil
}

// IsUnavailable reports whether err means the index could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrClosed)
}

func readBody(res *esapi.Response) []byte {
	if res == nil || res.Body == nil {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return b
}

func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}

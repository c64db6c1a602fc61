// Package es wraps the Elasticsearch client behind the narrow surface the
// tracking store consumes: get/index/update a document and execute a
// structured search. Query construction stays with the caller; this package
// only executes.
package es

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/olivere/elastic/v7"

	"github.com/kailas-cloud/trackdex/internal/metrics"
)

// Config holds the connection settings extracted from a store URI of the
// form scheme://[user:password@]host:port.
type Config struct {
	URL      string
	Username string
	Password string
}

// ParseStoreURI splits a connection string into the client config.
func ParseStoreURI(uri string) (Config, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Config{}, fmt.Errorf("parse store uri: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Config{}, fmt.Errorf("store uri scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return Config{}, fmt.Errorf("store uri %q has no host", uri)
	}

	cfg := Config{}
	if u.User != nil {
		cfg.Username = u.User.Username()
		cfg.Password, _ = u.User.Password()
		u.User = nil
	}
	cfg.URL = u.Scheme + "://" + u.Host
	return cfg, nil
}

// Client is a thin wrapper over the Elasticsearch HTTP client.
type Client struct {
	es *elastic.Client
}

// NewClient connects to Elasticsearch. Sniffing is disabled so single-node
// and containerized clusters work out of the box.
func NewClient(cfg Config) (*Client, error) {
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(cfg.URL),
		elastic.SetSniff(false),
	}
	if cfg.Username != "" {
		opts = append(opts, elastic.SetBasicAuth(cfg.Username, cfg.Password))
	}

	c, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, &Error{Op: OpPing, Err: err}
	}
	return &Client{es: c}, nil
}

// Ping checks cluster reachability.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.es.ClusterHealth().Do(ctx); err != nil {
		return &Error{Op: OpPing, Err: err}
	}
	return nil
}

// GetSource returns the raw _source of a document, or ErrNotFound.
func (c *Client) GetSource(ctx context.Context, index, id string) (json.RawMessage, error) {
	defer observe(OpGet, index, time.Now())

	res, err := c.es.Get().Index(index).Id(id).Do(ctx)
	if err != nil {
		if elastic.IsNotFound(err) {
			record(OpGet, index, "not_found")
			return nil, ErrNotFound
		}
		record(OpGet, index, "error")
		return nil, &Error{Op: OpGet, Err: err}
	}
	if !res.Found {
		record(OpGet, index, "not_found")
		return nil, ErrNotFound
	}
	record(OpGet, index, "ok")
	return res.Source, nil
}

// Index writes a full document. An empty id lets the engine assign one; the
// effective id is returned.
func (c *Client) Index(ctx context.Context, index, id string, body any) (string, error) {
	defer observe(OpIndex, index, time.Now())

	svc := c.es.Index().Index(index).BodyJson(body)
	if id != "" {
		svc = svc.Id(id)
	}
	res, err := svc.Do(ctx)
	if err != nil {
		record(OpIndex, index, "error")
		return "", &Error{Op: OpIndex, Err: err}
	}
	record(OpIndex, index, "ok")
	return res.Id, nil
}

// Update applies a partial document to an existing one, or ErrNotFound.
func (c *Client) Update(ctx context.Context, index, id string, doc map[string]any) error {
	defer observe(OpUpdate, index, time.Now())

	_, err := c.es.Update().Index(index).Id(id).Doc(doc).Do(ctx)
	if err != nil {
		if elastic.IsNotFound(err) {
			record(OpUpdate, index, "not_found")
			return ErrNotFound
		}
		record(OpUpdate, index, "error")
		return &Error{Op: OpUpdate, Err: err}
	}
	record(OpUpdate, index, "ok")
	return nil
}

// Search executes a prepared search source against one index.
func (c *Client) Search(ctx context.Context, index string, src *elastic.SearchSource) (*elastic.SearchResult, error) {
	defer observe(OpSearch, index, time.Now())

	res, err := c.es.Search().Index(index).SearchSource(src).Do(ctx)
	if err != nil {
		record(OpSearch, index, "error")
		return nil, &Error{Op: OpSearch, Err: err}
	}
	record(OpSearch, index, "ok")
	return res, nil
}

func observe(op, index string, start time.Time) {
	metrics.StoreRequestDuration.WithLabelValues(op, index).Observe(time.Since(start).Seconds())
}

func record(op, index, status string) {
	metrics.StoreRequestsTotal.WithLabelValues(op, index, status).Inc()
}

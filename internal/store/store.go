// Package store implements the experiment tracking storage contract on top
// of an Elasticsearch-style document index: experiments and runs are
// documents, metrics/params/tags are nested sub-documents, and run search is
// compiled into structured boolean queries.
package store

import (
	"context"
	"encoding/json"

	"github.com/olivere/elastic/v7"
	"go.uber.org/zap"
)

const artifactsFolderName = "artifacts"

// innerHitWindow bounds how many nested sub-documents a single inner-hits
// request returns.
const innerHitWindow = 100

// columnsAggSize bounds the number of distinct keys a columns aggregation
// reports per collection.
const columnsAggSize = 1000

// listWindow bounds experiment listings, which are not paginated.
const listWindow = 1000

// esClient is the consumer interface for the document store (ISP). The store
// only ever gets, indexes, partially updates and searches documents.
type esClient interface {
	GetSource(ctx context.Context, index, id string) (json.RawMessage, error)
	Index(ctx context.Context, index, id string, body any) (string, error)
	Update(ctx context.Context, index, id string, doc map[string]any) error
	Search(ctx context.Context, index string, src *elastic.SearchSource) (*elastic.SearchResult, error)
}

// Config holds store settings.
type Config struct {
	ExperimentsIndex   string
	RunsIndex          string
	MaxResultThreshold int // SearchRuns page sizes above this are rejected
	DefaultPageSize    int
}

func (c *Config) applyDefaults() {
	if c.ExperimentsIndex == "" {
		c.ExperimentsIndex = "mlflow-experiments"
	}
	if c.RunsIndex == "" {
		c.RunsIndex = "mlflow-runs"
	}
	if c.MaxResultThreshold <= 0 {
		c.MaxResultThreshold = 50000
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 1000
	}
}

// Store is the tracking store. It holds no mutable state of its own; every
// operation is a bounded sequence of round-trips to the document store, and
// read-modify-write sequences carry no transactional guarantee.
type Store struct {
	client esClient
	log    *zap.Logger
	cfg    Config
}

// New creates a tracking store over the given document store client.
func New(client esClient, cfg Config, log *zap.Logger) *Store {
	cfg.applyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{client: client, log: log, cfg: cfg}
}

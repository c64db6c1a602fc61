package es

import (
	"context"
	"fmt"
)

// Fixed index mappings. The store relies on this schema being present; no
// dynamic mapping management happens beyond creating these once.
const experimentsMapping = `{
  "mappings": {
    "properties": {
      "name":              {"type": "keyword"},
      "artifact_location": {"type": "keyword"},
      "lifecycle_stage":   {"type": "keyword"},
      "tags": {
        "type": "nested",
        "properties": {
          "key":   {"type": "keyword"},
          "value": {"type": "keyword"}
        }
      }
    }
  }
}`

const runsMapping = `{
  "mappings": {
    "properties": {
      "experiment_id":   {"type": "keyword"},
      "user_id":         {"type": "keyword"},
      "status":          {"type": "keyword"},
      "start_time":      {"type": "long"},
      "end_time":        {"type": "long"},
      "lifecycle_stage": {"type": "keyword"},
      "artifact_uri":    {"type": "keyword"},
      "metrics": {
        "type": "nested",
        "properties": {
          "key":       {"type": "keyword"},
          "value":     {"type": "double"},
          "timestamp": {"type": "long"},
          "step":      {"type": "long"},
          "is_nan":    {"type": "boolean"}
        }
      },
      "latest_metrics": {
        "type": "nested",
        "properties": {
          "key":       {"type": "keyword"},
          "value":     {"type": "double"},
          "timestamp": {"type": "long"},
          "step":      {"type": "long"},
          "is_nan":    {"type": "boolean"}
        }
      },
      "params": {
        "type": "nested",
        "properties": {
          "key":   {"type": "keyword"},
          "value": {"type": "keyword"}
        }
      },
      "tags": {
        "type": "nested",
        "properties": {
          "key":   {"type": "keyword"},
          "value": {"type": "keyword"}
        }
      }
    }
  }
}`

// EnsureIndices creates the experiment and run indices with their fixed
// mappings when absent. Existing indices are left untouched.
func (c *Client) EnsureIndices(ctx context.Context, experimentsIndex, runsIndex string) error {
	indices := []struct {
		name    string
		mapping string
	}{
		{experimentsIndex, experimentsMapping},
		{runsIndex, runsMapping},
	}

	for _, idx := range indices {
		exists, err := c.es.IndexExists(idx.name).Do(ctx)
		if err != nil {
			return &Error{Op: OpIndicesExists, Err: fmt.Errorf("%s: %w", idx.name, err)}
		}
		if exists {
			continue
		}
		if _, err := c.es.CreateIndex(idx.name).BodyString(idx.mapping).Do(ctx); err != nil {
			return &Error{Op: OpIndicesCreate, Err: fmt.Errorf("%s: %w", idx.name, err)}
		}
	}
	return nil
}

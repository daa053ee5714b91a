package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// Fixed field mapping for the review index. cmt_date carries year-month
// granularity only.
const mappingBody = `{
  "mappings": {
    "properties": {
      "rst_id":      { "type": "keyword" },
      "rst_name":    { "type": "keyword" },
      "rst_address": { "type": "text" },
      "rst_loc":     { "type": "geo_point" },
      "rst_genre":   { "type": "keyword" },
      "usr_name":    { "type": "keyword" },
      "usr_id":      { "type": "keyword" },
      "cmt_date":    { "type": "date", "format": "yyyy-MM" },
      "cmt_id":      { "type": "keyword" },
      "cmt_title":   { "type": "text" },
      "cmt_text":    { "type": "text" }
    }
  }
}`

// Config captures the parameters for the Elasticsearch-backed index.
type Config struct {
	Addresses []string
	Name      string
}

// Elastic implements Indexer against an Elasticsearch cluster.
type Elastic struct {
	client *elasticsearch.Client
	name   string
	logger *zap.Logger
}

// NewElastic builds an Elasticsearch-backed Indexer.
func NewElastic(cfg Config, logger *zap.Logger) (*Elastic, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("index name is required")
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Elastic{
		client: client,
		name:   cfg.Name,
		logger: logger,
	}, nil
}

func closeResponse(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_ = res.Body.Close()
	}
}

func (e *Elastic) exists(ctx context.Context) (bool, error) {
	res, err := e.client.Indices.Exists(
		[]string{e.name},
		e.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", e.name, err)
	}
	defer closeResponse(res)
	return res.StatusCode == 200, nil
}

// EnsureIndex creates the index with the fixed mapping if it is missing.
// With rebuild set, an existing index is deleted first.
func (e *Elastic) EnsureIndex(ctx context.Context, rebuild bool) error {
	exists, err := e.exists(ctx)
	if err != nil {
		return err
	}

	if exists && !rebuild {
		return nil
	}

	if exists {
		e.logger.Info("deleting existing index", zap.String("index", e.name))
		res, err := e.client.Indices.Delete(
			[]string{e.name},
			e.client.Indices.Delete.WithContext(ctx),
		)
		if err != nil {
			return fmt.Errorf("delete index %s: %w", e.name, err)
		}
		defer closeResponse(res)
		if res.IsError() {
			return fmt.Errorf("delete index %s: %s", e.name, res.String())
		}
	}

	e.logger.Info("creating index", zap.String("index", e.name))
	res, err := e.client.Indices.Create(
		e.name,
		e.client.Indices.Create.WithBody(strings.NewReader(mappingBody)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", e.name, err)
	}
	defer closeResponse(res)
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", e.name, res.String())
	}
	return nil
}

// Upsert indexes the document under the given id, overwriting any previous
// version of the same id.
func (e *Elastic) Upsert(ctx context.Context, id string, doc Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", id, err)
	}
	res, err := e.client.Index(
		e.name,
		bytes.NewReader(payload),
		e.client.Index.WithDocumentID(id),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index document %s: %w", id, err)
	}
	defer closeResponse(res)
	if res.IsError() {
		return fmt.Errorf("index document %s: %s", id, res.String())
	}
	return nil
}

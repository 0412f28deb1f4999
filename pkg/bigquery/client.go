package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/biovault-exchange/biovault-backend/pkg/config"
	"github.com/biovault-exchange/biovault-backend/pkg/logger"
)

// The analytics sinks are append-only; the client only ever needs streaming
// inserts and metadata lookups, so that is the whole surface exposed here.

const verifyTimeout = 10 * time.Second

var errNotInitialized = errors.New("bigquery client not initialized")

// Client wraps a BigQuery connection scoped to the configured analytics
// dataset. Construction fails fast when the dataset or any configured table
// is missing, so a misdeployed sink surfaces at boot rather than on the
// first flush.
type Client struct {
	bq      *bigquery.Client
	dataset *bigquery.Dataset
	tables  []string
}

// NewClient connects to BigQuery and verifies the analytics dataset and
// every configured table exist.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errors.New("gcp project id is required")
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errors.New("bigquery dataset is required")
	}
	tables := configuredTables(cfg)
	if len(tables) == 0 {
		return nil, errors.New("no bigquery tables configured")
	}

	bq, err := bigquery.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}

	client := &Client{
		bq:      bq,
		dataset: bq.Dataset(datasetID),
		tables:  tables,
	}
	if err := client.verify(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "dataset", datasetID), "bigquery client initialized")
	}
	return client, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	return opts
}

// configuredTables lists the analytics tables in the order the writer flushes
// them: the daily snapshot table first, then the per-event table.
func configuredTables(cfg config.BigQueryConfig) []string {
	tables := []string{}
	if trimmed := strings.TrimSpace(cfg.DailyMetricsTable); trimmed != "" {
		tables = append(tables, trimmed)
	}
	if trimmed := strings.TrimSpace(cfg.MetricsEventsTable); trimmed != "" {
		tables = append(tables, trimmed)
	}
	return tables
}

// verify reads the dataset metadata and each configured table's, failing
// on the first one that is missing.
func (c *Client) verify(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return describeLookupFailure("dataset", c.dataset.DatasetID, err)
	}
	for _, name := range c.tables {
		if _, err := c.dataset.Table(name).Metadata(ctx); err != nil {
			return describeLookupFailure("table", name, err)
		}
	}
	return nil
}

func describeLookupFailure(kind, name string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr != nil && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}

// Ping re-runs the dataset and table checks.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errNotInitialized
	}
	return c.verify(ctx)
}

// InsertRows streams rows into a table of the configured dataset. An empty
// batch is a no-op.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.bq == nil {
		return errNotInitialized
	}
	name := strings.TrimSpace(table)
	if name == "" {
		return errors.New("bigquery table name is required")
	}
	if len(rows) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return c.dataset.Table(name).Inserter().Put(ctx, rows)
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}

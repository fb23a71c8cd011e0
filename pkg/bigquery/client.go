// Package bigquery streams rows into the analytics dataset.
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

	"github.com/angelmondragon/toolyard-backend/pkg/config"
	"github.com/angelmondragon/toolyard-backend/pkg/gcp"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var errNoClient = errors.New("bigquery: client not initialized")

type Client struct {
	bq      *bigquery.Client
	dataset *bigquery.Dataset
	tables  []string
}

// NewClient connects and fails fast when the dataset or sales table is
// missing; neither is created here.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcpCfg.ProjectID)
	dataset := strings.TrimSpace(cfg.Dataset)
	table := strings.TrimSpace(cfg.SalesEventTable)
	switch {
	case project == "":
		return nil, errors.New("bigquery: gcp project id is required")
	case dataset == "":
		return nil, errors.New("bigquery: dataset is required")
	case table == "":
		return nil, errors.New("bigquery: sales table is required")
	}

	bq, err := bigquery.NewClient(ctx, project, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("bigquery: connect: %w", err)
	}
	c := &Client{bq: bq, dataset: bq.Dataset(dataset), tables: []string{table}}
	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bigquery_dataset", dataset), "bigquery client ready")
	}
	return c, nil
}

// Ping reads dataset and table metadata.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errNoClient
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return describe("dataset "+c.dataset.DatasetID, err)
	}
	for _, name := range c.tables {
		if _, err := c.dataset.Table(name).Metadata(ctx); err != nil {
			return describe("table "+name, err)
		}
	}
	return nil
}

func describe(what string, err error) error {
	if IsNotFound(err) {
		return fmt.Errorf("bigquery: %s does not exist", what)
	}
	return fmt.Errorf("bigquery: read %s: %w", what, err)
}

// InsertRows streams rows into table. rows is anything the bigquery
// Inserter.Put accepts: a struct pointer, a ValueSaver, or a slice of them.
func (c *Client) InsertRows(ctx context.Context, table string, rows any) error {
	if c == nil || c.dataset == nil {
		return errNoClient
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errors.New("bigquery: table is required")
	}
	return c.dataset.Table(table).Inserter().Put(ctx, rows)
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}

func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

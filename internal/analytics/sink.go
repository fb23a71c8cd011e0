package analytics

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/sethvargo/go-retry"

	pkgbigquery "github.com/angelmondragon/toolyard-backend/pkg/bigquery"
)

type inserter interface {
	InsertRows(ctx context.Context, table string, rows any) error
}

type SinkConfig struct {
	Table          string
	Attempts       uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Sink streams rows into one table, retrying transient failures with capped
// exponential backoff.
type Sink struct {
	client inserter
	table  string
	cfg    SinkConfig
}

func NewSink(client inserter, cfg SinkConfig) (*Sink, error) {
	if client == nil {
		return nil, errors.New("analytics sink: bigquery client is required")
	}
	cfg.Table = strings.TrimSpace(cfg.Table)
	if cfg.Table == "" {
		return nil, errors.New("analytics sink: table is required")
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 250 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = max(cfg.InitialBackoff, 2*time.Second)
	}
	return &Sink{client: client, table: cfg.Table, cfg: cfg}, nil
}

// Write inserts rows keyed by event id, so BigQuery drops the duplicates a
// retried insert may produce.
func (s *Sink) Write(ctx context.Context, rows ...SalesEventRow) error {
	if len(rows) == 0 {
		return nil
	}
	savers := make([]*bigquery.StructSaver, len(rows))
	for i := range rows {
		savers[i] = &bigquery.StructSaver{Struct: &rows[i], InsertID: rows[i].EventID}
	}
	backoff := retry.WithMaxRetries(s.cfg.Attempts-1,
		retry.WithCappedDuration(s.cfg.MaxBackoff, retry.NewExponential(s.cfg.InitialBackoff)))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.client.InsertRows(ctx, s.table, savers)
		if pkgbigquery.Retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/caravan-insights/priceanalyzer/pkg/dataset"
	"github.com/caravan-insights/priceanalyzer/pkg/observability"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// OpenSource builds the configured dataset source. The returned close func
// releases the Redis client when one was created and is never nil.
func OpenSource(cfg *dataset.SourceConfig) (dataset.Source, func() error, error) {
	noop := func() error { return nil }

	if cfg.Type != dataset.SourceTypeRedis {
		src, err := dataset.NewSource(cfg, nil)
		if err != nil {
			return nil, noop, err
		}
		return src, noop, nil
	}

	client, err := cfg.Redis.NewClient()
	if err != nil {
		return nil, noop, err
	}

	src, err := dataset.NewSource(cfg, client)
	if err != nil {
		_ = client.Close()
		return nil, noop, err
	}

	return src, client.Close, nil
}

// LoadDataset reads and parses the configured dataset once
func LoadDataset(ctx context.Context, log logrus.FieldLogger, cfg *dataset.Config) (*dataset.Dataset, error) {
	src, closeSource, err := OpenSource(&cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset source: %w", err)
	}
	defer func() {
		if err := closeSource(); err != nil {
			log.WithError(err).Warn("Failed to close dataset source")
		}
	}()

	return loadFrom(ctx, log, cfg, src)
}

func loadFrom(ctx context.Context, log logrus.FieldLogger, cfg *dataset.Config, src dataset.Source) (*dataset.Dataset, error) {
	start := time.Now()

	ds, err := dataset.NewLoader(log, cfg).Load(ctx, src)
	if err != nil {
		observability.RecordError("dataset", "load")
		return nil, fmt.Errorf("failed to load dataset from %s: %w", src.Name(), err)
	}

	stats := ds.Stats()
	observability.RecordDatasetLoad(
		stats.Rows,
		stats.ExcludedRows,
		stats.NullCategoryRows,
		len(ds.Table().Periods()),
		time.Since(start).Seconds(),
	)

	return ds, nil
}

// PublishDataset writes a raw CSV payload to the configured Redis key
func PublishDataset(ctx context.Context, cfg *dataset.SourceConfig, client *goredis.Client, payload []byte) error {
	src := dataset.NewRedisSource(client, cfg.Redis.PrefixKey(cfg.Key), cfg.Comma())
	return src.Publish(ctx, payload)
}

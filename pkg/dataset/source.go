package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

// Records is one sheet of raw tabular data: a header row plus data rows
type Records struct {
	Origin string
	Header []string
	Rows   [][]string
}

// Source yields the raw sheets of a dataset
type Source interface {
	Name() string
	Read(ctx context.Context) ([]Records, error)
}

// NewSource builds the configured source. client is only used by the redis
// source and may be nil otherwise.
func NewSource(cfg *SourceConfig, client *goredis.Client) (Source, error) {
	switch cfg.Type {
	case SourceTypeFile, "":
		return NewFileSource(cfg.Paths, cfg.Comma(), cfg.Sheet), nil
	case SourceTypeRedis:
		if client == nil {
			return nil, fmt.Errorf("%w: redis client not configured", ErrUnsupportedSource)
		}
		return NewRedisSource(client, cfg.Redis.PrefixKey(cfg.Key), cfg.Comma()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, cfg.Type)
	}
}

// FileSource reads CSV and XLSX files from disk
type FileSource struct {
	paths []string
	comma rune
	sheet string
}

// NewFileSource creates a file source over one or more paths
func NewFileSource(paths []string, comma rune, sheet string) *FileSource {
	return &FileSource{
		paths: paths,
		comma: comma,
		sheet: sheet,
	}
}

// Name implements Source
func (s *FileSource) Name() string {
	return "file:" + strings.Join(s.paths, ",")
}

// Read loads every path concurrently. Results keep the configured path order.
func (s *FileSource) Read(ctx context.Context) ([]Records, error) {
	if len(s.paths) == 0 {
		return nil, ErrNoPaths
	}

	out := make([]Records, len(s.paths))
	g, ctx := errgroup.WithContext(ctx)

	for i, path := range s.paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			recs, err := s.readPath(path)
			if err != nil {
				return err
			}

			out[i] = recs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func (s *FileSource) readPath(path string) (Records, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := os.Open(path) //nolint:gosec // User-provided dataset path
		if err != nil {
			return Records{}, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()

		return readCSV(path, f, s.comma)
	case ".xlsx", ".xlsm":
		return readXLSX(path, s.sheet)
	default:
		return Records{}, fmt.Errorf("%w: %s", ErrUnsupportedFileExt, path)
	}
}

func readCSV(origin string, r io.Reader, comma rune) (Records, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	all, err := reader.ReadAll()
	if err != nil {
		return Records{}, fmt.Errorf("failed to parse csv %s: %w", origin, err)
	}
	if len(all) == 0 {
		return Records{}, fmt.Errorf("%w: %s", ErrEmptySource, origin)
	}

	return Records{
		Origin: origin,
		Header: normaliseHeader(all[0]),
		Rows:   all[1:],
	}, nil
}

func readXLSX(path, sheet string) (Records, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Records{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return Records{}, fmt.Errorf("%w: %s", ErrEmptySource, path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return Records{}, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, path, err)
	}
	if len(rows) == 0 {
		return Records{}, fmt.Errorf("%w: %s", ErrEmptySource, path)
	}

	return Records{
		Origin: path + "#" + sheet,
		Header: normaliseHeader(rows[0]),
		Rows:   rows[1:],
	}, nil
}

// normaliseHeader trims whitespace and a leading UTF-8 byte order mark
func normaliseHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

// RedisSource reads a CSV payload stored under a single Redis key
type RedisSource struct {
	client *goredis.Client
	key    string
	comma  rune
}

// NewRedisSource creates a redis-backed source
func NewRedisSource(client *goredis.Client, key string, comma rune) *RedisSource {
	return &RedisSource{
		client: client,
		key:    key,
		comma:  comma,
	}
}

// Name implements Source
func (s *RedisSource) Name() string {
	return "redis:" + s.key
}

// Read implements Source
func (s *RedisSource) Read(ctx context.Context) ([]Records, error) {
	payload, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("%w: key %q not found", ErrEmptySource, s.key)
		}
		return nil, fmt.Errorf("failed to read dataset from redis: %w", err)
	}

	recs, err := readCSV(s.Name(), bytes.NewReader(payload), s.comma)
	if err != nil {
		return nil, err
	}

	return []Records{recs}, nil
}

// Publish stores a CSV payload under the source key, replacing any previous snapshot
func (s *RedisSource) Publish(ctx context.Context, payload []byte) error {
	if _, err := readCSV(s.Name(), bytes.NewReader(payload), s.comma); err != nil {
		return err
	}

	return s.client.Set(ctx, s.key, payload, 0).Err()
}

// Package export unloads query results to an object storage bucket. Large
// results are written once as CSV and handed to downstream consumers by
// reference instead of being streamed back through the driver.
//
// Usage:
//
//	cfg, err := export.NewConfig(env)
//	store, err := export.New(ctx, cfg, log)
//	if err != nil { ... }
//	err = store.UploadResult(ctx, "unload/orders-2024.csv", res)
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/koustreak/DatBridge/internal/config"
	"github.com/koustreak/DatBridge/internal/driver"
	"github.com/koustreak/DatBridge/internal/errs"
	"github.com/koustreak/DatBridge/internal/logger"
)

// Environment keys for the export bucket.
const (
	EnvBucket    = "CUBEJS_DB_EXPORT_BUCKET"
	EnvEndpoint  = "CUBEJS_DB_EXPORT_BUCKET_ENDPOINT"
	EnvAccessKey = "CUBEJS_DB_EXPORT_BUCKET_ACCESS_KEY"
	EnvSecretKey = "CUBEJS_DB_EXPORT_BUCKET_SECRET_KEY"
	EnvSSL       = "CUBEJS_DB_EXPORT_BUCKET_SSL"
)

// Config holds the resolved export bucket settings.
type Config struct {
	Bucket    string
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Configured reports whether the export feature is switched on at all.
func Configured(env *config.Env) bool {
	_, ok := env.Lookup(EnvBucket)
	return ok
}

// NewConfig resolves the export settings. Bucket and endpoint are
// required once the feature is enabled.
func NewConfig(env *config.Env) (*Config, error) {
	r := config.NewResolver(env)

	cfg := &Config{
		Bucket:    r.Str(EnvBucket, ""),
		Endpoint:  r.Str(EnvEndpoint, ""),
		AccessKey: r.Str(EnvAccessKey, ""),
		SecretKey: r.Str(EnvSecretKey, ""),
	}
	if cfg.Bucket == "" {
		return nil, errs.New(errs.ErrKindConfig, EnvBucket+" is not set")
	}
	if cfg.Endpoint == "" {
		return nil, errs.New(errs.ErrKindConfig, EnvEndpoint+" is not set")
	}

	ssl, err := r.Bool(EnvSSL, false)
	if err != nil {
		return nil, err
	}
	cfg.UseSSL = ssl
	return cfg, nil
}

// Store writes query results into one object storage bucket.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	client *miniogo.Client
	bucket string
	log    *logger.Logger
}

// New connects to the object storage endpoint and makes sure the bucket
// exists, creating it when absent.
func New(ctx context.Context, cfg *Config, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnection, "failed to create object storage client", err)
	}

	s := &Store{client: client, bucket: cfg.Bucket, log: log.Component("export")}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, mapError(err, "failed to check export bucket")
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, miniogo.MakeBucketOptions{}); err != nil {
			return nil, mapError(err, "failed to create export bucket")
		}
		s.log.Info().Str("bucket", cfg.Bucket).Msg("export bucket created")
	}

	return s, nil
}

// UploadResult writes res as a CSV object at key.
func (s *Store) UploadResult(ctx context.Context, key string, res *driver.QueryResult) error {
	body, err := encodeCSV(res)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(body), int64(len(body)),
		miniogo.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return mapError(err, "failed to upload result")
	}

	s.log.Info().
		Str("key", key).
		Int("rows", len(res.Rows)).
		Int("bytes", len(body)).
		Msg("result exported")
	return nil
}

// SignedURL returns a time-limited download URL for an exported object, so
// consumers can fetch the unloaded result without bucket credentials.
func (s *Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", mapError(err, "failed to sign export URL")
	}
	return u.String(), nil
}

// encodeCSV renders the result with a header row, columns in result order.
func encodeCSV(res *driver.QueryResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = c.Name
	}
	if err := w.Write(header); err != nil {
		return nil, errs.Wrap(errs.ErrKindQuery, "failed to encode result header", err)
	}

	record := make([]string, len(res.Columns))
	for _, row := range res.Rows {
		for i, c := range res.Columns {
			record[i] = formatValue(row[c.Name])
		}
		if err := w.Write(record); err != nil {
			return nil, errs.Wrap(errs.ErrKindQuery, "failed to encode result row", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errs.Wrap(errs.ErrKindQuery, "failed to encode result", err)
	}
	return buf.Bytes(), nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}

package promo

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// s3Loader implements Loader for code definition files stored in S3.
type s3Loader struct {
	client *s3.Client
	bucket string
	logger zerolog.Logger
}

// NewS3Loader creates an S3-backed definition loader.
func NewS3Loader(ctx context.Context, bucket, region string, logger zerolog.Logger) (Loader, error) {
	logger = logger.With().Str("component", "promo-s3-loader").Logger()

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Msg("S3 loader initialised")

	return &s3Loader{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		logger: logger,
	}, nil
}

// Load reads a code definition object from S3. The key is the full object
// key including any prefix; ".gz" keys are decompressed.
func (l *s3Loader) Load(ctx context.Context, key string) (*Store, error) {
	l.logger.Info().
		Str("bucket", l.bucket).
		Str("key", key).
		Msg("loading code definitions from S3")

	result, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", l.bucket, key, err)
	}
	defer result.Body.Close()

	var reader io.Reader = result.Body
	if strings.HasSuffix(key, ".gz") {
		gz, err := gzip.NewReader(result.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader for S3 object %s: %w", key, err)
		}
		defer gz.Close()
		reader = gz
	}

	store, err := scanDefinitions(ctx, "s3://"+l.bucket+"/"+key, reader, l.logger)
	if err != nil {
		return nil, err
	}

	l.logger.Info().
		Str("bucket", l.bucket).
		Str("key", key).
		Int("codes_loaded", store.Size()).
		Msg("code definitions loaded from S3")

	return store, nil
}

// fallbackLoader tries S3 first and falls back to the local file system,
// so a missing bucket or expired credentials degrade to the shipped files
// instead of an empty discount stack.
type fallbackLoader struct {
	s3     Loader
	file   Loader
	prefix string
	logger zerolog.Logger
}

// NewFallbackLoader chains an S3 loader over a file loader. The prefix is
// prepended to the path when building the S3 key; the local path is used
// as-is.
func NewFallbackLoader(s3, file Loader, prefix string, logger zerolog.Logger) Loader {
	return &fallbackLoader{
		s3:     s3,
		file:   file,
		prefix: prefix,
		logger: logger.With().Str("component", "promo-fallback-loader").Logger(),
	}
}

func (l *fallbackLoader) Load(ctx context.Context, path string) (*Store, error) {
	if l.s3 != nil {
		key := l.prefix + path
		store, err := l.s3.Load(ctx, key)
		if err == nil {
			return store, nil
		}
		l.logger.Warn().
			Err(err).
			Str("s3_key", key).
			Str("local_fallback", path).
			Msg("failed to load from S3, falling back to local file")
	}

	return l.file.Load(ctx, path)
}

package restock

import (
	"context"
	"errors"
	"fmt"

	"shopflow/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// objectGetter is the part of the S3 client the loader needs.
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// s3Loader reads feeds from an S3 bucket. The path passed to Load is the object key.
type s3Loader struct {
	client objectGetter
	bucket string
	logger zerolog.Logger
}

// NewS3Loader creates a loader reading feeds from bucket with the default AWS
// credential chain.
func NewS3Loader(ctx context.Context, bucket, region string, logger zerolog.Logger) (Loader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Info().Str("bucket", bucket).Str("region", region).Msg("S3 restock loader initialised")
	return newS3Loader(s3.NewFromConfig(cfg), bucket, logger), nil
}

func newS3Loader(client objectGetter, bucket string, logger zerolog.Logger) *s3Loader {
	return &s3Loader{
		client: client,
		bucket: bucket,
		logger: logger.With().Str("component", "s3-restock-loader").Str("bucket", bucket).Logger(),
	}
}

func (l *s3Loader) Load(ctx context.Context, key string) (*Feed, error) {
	log := l.logger.With().Str("key", key).Logger()

	obj, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to get restock feed object")
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", l.bucket, key, err)
	}
	defer obj.Body.Close()

	feed, err := parseFeed(ctx, key, obj.Body)
	if err != nil {
		log.Error().Err(err).Msg("failed to parse restock feed")
		return nil, err
	}

	log.Info().Int("lines", feed.Lines).Int("products", len(feed.Quantities)).Msg("restock feed loaded from S3")
	return feed, nil
}

// fallbackLoader reads feeds from a primary store under a key prefix and falls back
// to a secondary store when the primary cannot deliver the object. A feed the
// primary delivered but could not parse is not retried.
type fallbackLoader struct {
	primary   Loader
	secondary Loader
	prefix    string
	logger    zerolog.Logger
}

// NewFallbackLoader creates a loader that tries primary (typically S3) with prefix
// prepended to the path, then secondary with the path unchanged. A nil primary
// always uses secondary.
func NewFallbackLoader(primary, secondary Loader, prefix string, logger zerolog.Logger) Loader {
	return &fallbackLoader{
		primary:   primary,
		secondary: secondary,
		prefix:    prefix,
		logger:    logger.With().Str("component", "fallback-loader").Logger(),
	}
}

func (l *fallbackLoader) Load(ctx context.Context, path string) (*Feed, error) {
	if l.primary == nil {
		return l.secondary.Load(ctx, path)
	}

	key := l.prefix + path
	feed, err := l.primary.Load(ctx, key)
	switch {
	case err == nil:
		feed.Path = path
		return feed, nil
	case errors.Is(err, model.ErrInvalidRequest), ctx.Err() != nil:
		return nil, err
	}

	l.logger.Warn().Err(err).Str("key", key).Msg("restock feed unavailable remotely, reading local copy")
	return l.secondary.Load(ctx, path)
}

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/snarg/signbridge/internal/config"
	"github.com/snarg/signbridge/internal/metrics"
)

// S3Store keeps each entry as its own object in an S3-compatible store:
// {prefix}/conversations/{session_id}/{YYYYMMDD}/{unix_nanos}-{log_id}.json
// Keys sort chronologically, so a prefix listing is already in write order.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
	now    func() time.Time
	log    zerolog.Logger
}

// NewS3Store creates an S3 log store from config.
func NewS3Store(cfg config.S3Config, log zerolog.Logger) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		// S3-compatible servers (MinIO, Garage) reject the default trailing checksums.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log.With().Str("component", "s3-log-store").Logger(),
	}, nil
}

// HeadBucket checks that the bucket exists and credentials are valid.
func (s *S3Store) HeadBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: &s.bucket,
	})
	return err
}

func (s *S3Store) Append(ctx context.Context, e Entry) (string, error) {
	now := s.now()
	e, err := prepare(e, now)
	if err != nil {
		return "", err
	}
	if err := s.putPrepared(ctx, e, now); err != nil {
		return "", err
	}
	return e.LogID, nil
}

// putPrepared stores an entry whose id and timestamp are already set.
func (s *S3Store) putPrepared(ctx context.Context, e Entry, now time.Time) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: encode entry: %w", ErrLogWrite, err)
	}

	key := s.objectKey(e.SessionID, now, e.LogID)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		metrics.ConversationLogWritesTotal.WithLabelValues("s3", "error").Inc()
		s.log.Error().Err(err).Str("key", key).Msg("conversation log put failed")
		return fmt.Errorf("%w: %w", ErrLogWrite, err)
	}
	metrics.ConversationLogWritesTotal.WithLabelValues("s3", "ok").Inc()
	return nil
}

func (s *S3Store) Query(ctx context.Context, sessionID string) ([]Entry, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	prefix := s.sessionPrefix(sessionID)
	entries := []Entry{}
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: &s.bucket,
		Prefix: &prefix,
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", ErrLogRead, prefix, err)
		}
		for _, obj := range page.Contents {
			e, err := s.get(ctx, aws.ToString(obj.Key))
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrLogRead, err)
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (s *S3Store) get(ctx context.Context, key string) (Entry, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return Entry{}, fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return Entry{}, fmt.Errorf("read %s: %w", key, err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return e, nil
}

func (s *S3Store) Type() string { return "s3" }

func (s *S3Store) sessionPrefix(sessionID string) string {
	p := "conversations/" + sessionID + "/"
	if s.prefix != "" {
		return s.prefix + "/" + p
	}
	return p
}

func (s *S3Store) objectKey(sessionID string, t time.Time, logID string) string {
	return fmt.Sprintf("%s%s/%020d-%s.json", s.sessionPrefix(sessionID), partitionDate(t), t.UnixNano(), logID)
}

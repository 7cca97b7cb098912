package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

var ErrBackupDisabled = errors.New("backup bucket is not configured")

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// BackupConfig points at an S3-compatible bucket. Empty credentials fall
// back to the default AWS credential chain; an empty endpoint means AWS.
type BackupConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// BackupService uploads snapshots of the entry list.
type BackupService interface {
	// Export uploads entries and returns the object key.
	Export(ctx context.Context, userID string, entries []models.Entry) (string, error)
}

type backupService struct {
	cfg BackupConfig
	log logging.Logger
	now func() time.Time
}

func NewBackupService(cfg BackupConfig, log logging.Logger) BackupService {
	return &backupService{cfg: cfg, log: log.With("service", "backup"), now: time.Now}
}

// Snapshot is the exported document.
type Snapshot struct {
	UserID     string         `json:"user_id"`
	ExportedAt time.Time      `json:"exported_at"`
	Count      int            `json:"count"`
	Entries    []models.Entry `json:"entries"`
}

// BackupKey returns backups/<user>/<yyyy>/<mm>/<dd>/<uuid>.json.
func BackupKey(userID string, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("backups/%s/%04d/%02d/%02d/%s.json", userID, t.Year(), int(t.Month()), t.Day(), uuid.New())
}

func (s *backupService) client(ctx context.Context) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{}
	if s.cfg.Region != "" {
		opts = append(opts, config.WithRegion(s.cfg.Region))
	}
	if s.cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.cfg.AccessKeyID,
			s.cfg.SecretAccessKey,
			"",
		)))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
		}
		o.UsePathStyle = s.cfg.UsePathStyle
	}), nil
}

func (s *backupService) Export(ctx context.Context, userID string, entries []models.Entry) (string, error) {
	if s.cfg.Bucket == "" {
		return "", ErrBackupDisabled
	}
	if entries == nil {
		entries = []models.Entry{}
	}

	now := s.now()
	body, err := json.MarshalIndent(Snapshot{
		UserID:     userID,
		ExportedAt: now.UTC(),
		Count:      len(entries),
		Entries:    entries,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	c, err := s.client(ctx)
	if err != nil {
		return "", err
	}

	key := BackupKey(userID, now)
	_, err = putObject(c, ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("upload backup: %w", err)
	}

	s.log.Info(ctx, "backup exported", "bucket", s.cfg.Bucket, "key", key, "count", len(entries))
	return key, nil
}

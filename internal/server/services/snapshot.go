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
	"github.com/dmitrijs2005/suitewaste/internal/logging"
	sc "github.com/dmitrijs2005/suitewaste/internal/server/config"
	"github.com/dmitrijs2005/suitewaste/internal/server/entities"
	"github.com/google/uuid"
)

// ErrSnapshotsDisabled is returned when no bucket is configured.
var ErrSnapshotsDisabled = errors.New("snapshots disabled")

// ObjectPutter is the part of the S3 client used for exports.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// NewS3Putter builds an S3 client for the configured endpoint with static
// credentials and path-style addressing, which MinIO expects.
func NewS3Putter(ctx context.Context, c *sc.Config) (ObjectPutter, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// SnapshotResult describes one uploaded export.
type SnapshotResult struct {
	Key     string         `json:"key"`
	Records map[string]int `json:"records"`
}

// SnapshotService exports every collection as one JSON object to S3.
type SnapshotService struct {
	registry *entities.Registry
	putter   ObjectPutter
	bucket   string
	log      logging.Logger
	now      func() time.Time
}

// NewSnapshotService returns a service that fails with ErrSnapshotsDisabled
// when bucket is empty.
func NewSnapshotService(registry *entities.Registry, putter ObjectPutter, bucket string, log logging.Logger) *SnapshotService {
	return &SnapshotService{registry: registry, putter: putter, bucket: bucket, log: log, now: time.Now}
}

func (s *SnapshotService) storageKey() string {
	d := s.now().UTC()
	return fmt.Sprintf("snapshots/%d/%02d/%02d/%v.json", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *SnapshotService) Export(ctx context.Context) (*SnapshotResult, error) {
	if s.bucket == "" || s.putter == nil {
		return nil, ErrSnapshotsDisabled
	}

	doc := make(map[string][]json.RawMessage)
	res := &SnapshotResult{Records: make(map[string]int)}
	for _, c := range s.registry.All() {
		items := make([]json.RawMessage, 0)
		cursor := ""
		for {
			page, err := c.ListJSON(ctx, cursor, entities.MaxListLimit)
			if err != nil {
				return nil, fmt.Errorf("export %s: %w", c.Name(), err)
			}
			items = append(items, page.Items...)
			if page.Next == nil {
				break
			}
			cursor = *page.Next
		}
		doc[c.Name()] = items
		res.Records[c.Name()] = len(items)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	res.Key = s.storageKey()
	_, err = s.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(res.Key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload snapshot: %w", err)
	}

	s.log.Info(ctx, "snapshot exported", "bucket", s.bucket, "key", res.Key, "bytes", len(body))
	return res, nil
}

// Package objectstore adapts S3-compatible storage to the media.ObjectStore
// interface used by the upload orchestrator.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/edukit/lessonforge/internal/logger"
	"github.com/edukit/lessonforge/internal/metrics"
)

// S3Config configures the bucket the adapter writes into.
type S3Config struct {
	Region string
	Bucket string

	// Endpoint overrides the S3 endpoint for S3-compatible providers
	// (DigitalOcean Spaces, MinIO). Empty for AWS.
	Endpoint string

	// CDNDomain, when set, is used for public URLs instead of the bucket
	// endpoint.
	CDNDomain string
}

// S3Store uploads objects to an S3-compatible bucket and builds public URLs
// for them. Implements media.ObjectStore.
type S3Store struct {
	client *s3.S3
	cfg    S3Config
	log    *logger.Logger
	met    *metrics.Metrics
}

// NewS3Store builds an adapter from shared AWS credentials/environment.
func NewS3Store(cfg S3Config, log *logger.Logger, met *metrics.Metrics) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("objectstore: bucket is required")
	}
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("objectstore: create session: %w", err)
	}
	return &S3Store{
		client: s3.New(sess),
		cfg:    cfg,
		log:    log.UploadLogger("s3"),
		met:    met,
	}, nil
}

// Put uploads one object. The whole body is buffered first because the S3
// API needs a seekable reader.
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("objectstore: read body: %w", err)
	}

	start := time.Now()
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeForKey(key)),
		ACL:         aws.String("public-read"),
	})
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	if s.met != nil {
		s.met.RecordUpload(status, len(data), duration)
	}
	s.log.LogUpload(key, len(data), duration, err)

	if err != nil {
		return fmt.Errorf("objectstore: put %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the durable URL for an uploaded key.
func (s *S3Store) PublicURL(key string) string {
	if s.cfg.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cfg.CDNDomain, key)
	}
	if s.cfg.Endpoint != "" {
		host := strings.TrimPrefix(strings.TrimPrefix(s.cfg.Endpoint, "https://"), "http://")
		return fmt.Sprintf("https://%s.%s/%s", s.cfg.Bucket, host, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.cfg.Bucket, key)
}

// contentTypeForKey guesses a Content-Type from the key's extension.
func contentTypeForKey(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

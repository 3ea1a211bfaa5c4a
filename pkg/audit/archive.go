package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// ArchiveConfig configures the S3 export target.
type ArchiveConfig struct {
	Bucket          string `env:"AUDIT_S3_BUCKET"`
	Prefix          string `env:"AUDIT_S3_PREFIX" envDefault:"audit"`
	Region          string `env:"AUDIT_S3_REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"AUDIT_S3_ENDPOINT"`
	AccessKeyID     string `env:"AUDIT_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AUDIT_S3_SECRET_ACCESS_KEY"`
	ForcePathStyle  bool   `env:"AUDIT_S3_FORCE_PATH_STYLE" envDefault:"false"`
}

// Enabled reports whether a bucket is configured.
func (c ArchiveConfig) Enabled() bool { return c.Bucket != "" }

// S3Client is the subset of the S3 API the archiver needs.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds a client from cfg. Static credentials are used when both
// keys are set; otherwise the default AWS chain applies.
func NewS3Client(ctx context.Context, cfg ArchiveConfig) (*s3.Client, error) {
	if !cfg.Enabled() {
		return nil, ErrArchiveNotConfigured
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Join(ErrArchiveFailed, err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	}), nil
}

// ArchiveResult describes a finished export.
type ArchiveResult struct {
	Bucket  string `json:"bucket"`
	Key     string `json:"key"`
	Entries int    `json:"entries"`
}

// S3Archiver exports a company's trail as newline-delimited JSON.
type S3Archiver struct {
	trail  *Trail
	client S3Client
	bucket string
	prefix string
	now    func() time.Time
}

func NewS3Archiver(trail *Trail, client S3Client, cfg ArchiveConfig) *S3Archiver {
	if trail == nil || client == nil {
		panic("audit: archiver needs a trail and an s3 client")
	}
	return &S3Archiver{
		trail:  trail,
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		now:    time.Now,
	}
}

// Archive uploads the latest entries of the company (newest first, up to
// DefaultListLimit) to <prefix>/company-<id>/<timestamp>.ndjson.
func (a *S3Archiver) Archive(ctx context.Context, companyID int64) (ArchiveResult, error) {
	entries, err := a.trail.ListForCompany(ctx, companyID)
	if err != nil {
		return ArchiveResult{}, errors.Join(ErrArchiveFailed, err)
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return ArchiveResult{}, errors.Join(ErrArchiveFailed, err)
		}
	}

	key := a.key(companyID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return ArchiveResult{}, classifyS3Error(err)
	}
	return ArchiveResult{Bucket: a.bucket, Key: key, Entries: len(entries)}, nil
}

func (a *S3Archiver) key(companyID int64) string {
	name := "company-" + strconv.FormatInt(companyID, 10) + "/" + a.now().UTC().Format("20060102T150405Z") + ".ndjson"
	if a.prefix == "" {
		return name
	}
	return a.prefix + "/" + name
}

func classifyS3Error(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: s3 %s: %s", ErrArchiveFailed, apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return errors.Join(ErrArchiveFailed, err)
}

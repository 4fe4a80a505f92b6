// Package publish uploads exported fixtures to S3-compatible object storage.
package publish

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff/v5"
)

var (
	ErrLoggerRequired = errors.New("logger is required")
	ErrBucketRequired = errors.New("bucket is required")
)

const (
	defaultRegion      = "us-east-1"
	defaultMaxAttempts = 3
)

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Config struct {
	Logger *slog.Logger
	Bucket string
	Prefix string
	Region string

	// EndpointURL selects an S3-compatible service such as MinIO; path-style addressing is used.
	EndpointURL string

	// Static credentials. The default AWS credential chain is used when empty.
	AccessKeyID     string
	SecretAccessKey string

	MaxAttempts int

	// Client overrides the S3 client built from the fields above.
	Client PutObjectAPI
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return ErrLoggerRequired
	}
	if c.Bucket == "" {
		return ErrBucketRequired
	}
	if c.Region == "" {
		c.Region = defaultRegion
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	c.Prefix = strings.Trim(c.Prefix, "/")
	return nil
}

type Publisher struct {
	log    *slog.Logger
	cfg    Config
	client PutObjectAPI
}

func NewPublisher(ctx context.Context, cfg Config) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	client := cfg.Client
	if client == nil {
		c, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client = c
	}
	return &Publisher{log: cfg.Logger, cfg: cfg, client: client}, nil
}

func newS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.EndpointURL == "" {
		return s3.NewFromConfig(awsCfg), nil
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.EndpointURL)
		o.UsePathStyle = true
	}), nil
}

type Object struct {
	Path string
	Key  string
	URL  string
	Size int
}

// Publish uploads the fixture files (*.bin) and manifests (*.yaml) directly inside dir, in name
// order.
func (p *Publisher) Publish(ctx context.Context, dir string) ([]Object, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".bin", ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no fixtures found in %s", dir)
	}
	slices.Sort(names)

	p.log.Info("==> Publishing fixtures", "dir", dir, "bucket", p.cfg.Bucket, "prefix", p.cfg.Prefix, "files", len(names))
	var objects []Object
	for _, name := range names {
		obj, err := p.upload(ctx, filepath.Join(dir, name))
		if err != nil {
			return objects, err
		}
		objects = append(objects, obj)
	}
	p.log.Info("--> Published fixtures", "objects", len(objects))
	return objects, nil
}

func (p *Publisher) upload(ctx context.Context, file string) (Object, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Object{}, fmt.Errorf("failed to read %s: %w", file, err)
	}
	key := p.Key(filepath.Base(file))
	sum := md5.Sum(data)
	contentMD5 := base64.StdEncoding.EncodeToString(sum[:])

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	_, err = backoff.Retry(ctx, func() (*s3.PutObjectOutput, error) {
		out, err := p.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:     aws.String(p.cfg.Bucket),
			Key:        aws.String(key),
			Body:       bytes.NewReader(data),
			ContentMD5: aws.String(contentMD5),
		})
		if err != nil {
			p.log.Warn("--> Upload attempt failed", "key", key, "error", err)
		}
		return out, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(p.cfg.MaxAttempts)))
	if err != nil {
		return Object{}, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	url := p.URL(key)
	p.log.Debug("--> Uploaded fixture", "key", key, "bytes", len(data), "url", url)
	return Object{Path: file, Key: key, URL: url, Size: len(data)}, nil
}

func (p *Publisher) Key(name string) string {
	if p.cfg.Prefix == "" {
		return name
	}
	return path.Join(p.cfg.Prefix, name)
}

func (p *Publisher) URL(key string) string {
	if p.cfg.EndpointURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(p.cfg.EndpointURL, "/"), p.cfg.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.cfg.Bucket, p.cfg.Region, key)
}

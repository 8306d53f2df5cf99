package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config contains configuration for the S3 blob store.
type S3Config struct {
	// Bucket is the S3 bucket name.
	Bucket string `mapstructure:"bucket" yaml:"bucket"`

	// KeyPrefix is an optional prefix for all object keys.
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`

	// Region is the AWS region.
	Region string `mapstructure:"region" yaml:"region"`

	// Endpoint overrides the S3 endpoint for S3-compatible storage
	// (MinIO, Ceph RGW). Empty means AWS.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// AccessKeyID and SecretAccessKey configure static credentials.
	// When empty, the default AWS credential chain is used.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`

	// UsePathStyle forces path-style addressing (required by most
	// S3-compatible servers).
	UsePathStyle bool `mapstructure:"use_path_style" yaml:"use_path_style"`
}

// S3Store implements Store on an S3 or S3-compatible bucket.
//
// Object keys are <prefix><id>.<ext> and the canonical path is
// s3://<bucket>/<key>, which Read and Delete parse back into a key.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store creates an S3 blob store from the configuration.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.KeyPrefix,
	}, nil
}

func (s *S3Store) key(id, ext string) string {
	return s.prefix + id + "." + ext
}

func (s *S3Store) path(key string) string {
	return "s3://" + s.bucket + "/" + key
}

// keyFromPath reverses path(). Paths from a different bucket are rejected.
func (s *S3Store) keyFromPath(path string) (string, error) {
	want := "s3://" + s.bucket + "/"
	if !strings.HasPrefix(path, want) {
		return "", fmt.Errorf("path %q does not belong to bucket %q", path, s.bucket)
	}
	return strings.TrimPrefix(path, want), nil
}

func (s *S3Store) Write(ctx context.Context, id, ext string, data []byte) (string, error) {
	key := s.key(id, ext)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object: %w", err)
	}
	return s.path(key), nil
}

// MoveIn uploads a local file and removes it on success. There is no rename
// primitive on object storage, so this is always upload-then-unlink.
func (s *S3Store) MoveIn(ctx context.Context, id, ext, srcPath string) (string, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to read source file: %w", err)
	}
	path, err := s.Write(ctx, id, ext, data)
	if err != nil {
		return "", err
	}
	_ = os.Remove(srcPath)
	return path, nil
}

func (s *S3Store) Read(ctx context.Context, path string) ([]byte, error) {
	key, err := s.keyFromPath(path)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3Store) Delete(ctx context.Context, path string) error {
	key, err := s.keyFromPath(path)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// isNoSuchKey reports whether the S3 error means the object is absent.
func isNoSuchKey(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}

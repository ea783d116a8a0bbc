package store

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/ai-post-manager/internal/config"
	"github.com/ai-post-manager/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectAPI is the subset of the S3 client the store uses
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps the collection as a single JSON object in a bucket.
// PutObject replaces the object as a whole, so readers never see a partial write.
type S3Store struct {
	client ObjectAPI
	bucket string
	key    string
}

var _ Store = (*S3Store)(nil)

// NewS3Store builds an S3 client from static credentials.
// A non-empty Endpoint points the client at an S3-compatible service.
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3StoreWithClient(client, cfg.Bucket, cfg.Key), nil
}

// NewS3StoreWithClient creates a store on an existing client
func NewS3StoreWithClient(client ObjectAPI, bucket, key string) *S3Store {
	return &S3Store{client: client, bucket: bucket, key: key}
}

// Init writes an empty collection if the object does not exist yet
func (s *S3Store) Init(ctx context.Context) error {
	_, err := s.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return s.Save(ctx, models.NewCollection())
	}
	return err
}

func (s *S3Store) Load(ctx context.Context) (*models.Collection, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, loadError("s3", ErrNotFound)
		}
		return nil, loadError("s3", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, loadError("s3", err)
	}

	collection, err := decodeCollection(data)
	if err != nil {
		return nil, loadError("s3", err)
	}
	return collection, nil
}

func (s *S3Store) Save(ctx context.Context, collection *models.Collection) error {
	data, err := encodeCollection(collection)
	if err != nil {
		return saveError("s3", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return saveError("s3", err)
	}
	return nil
}

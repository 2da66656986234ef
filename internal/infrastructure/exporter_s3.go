package infrastructure

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/yourusername/streamsaviour-go/internal/domain"
	"go.uber.org/zap"
)

// s3PutAPI is the part of the S3 client the exporter uses
type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Exporter uploads library payloads to an S3 bucket
type S3Exporter struct {
	client s3PutAPI
	config *domain.S3Config
	logger *zap.Logger
}

// NewS3Exporter builds an S3 client from config. Static credentials are
// used when both keys are set, otherwise the default AWS chain applies.
func NewS3Exporter(ctx context.Context, config *domain.S3Config, log *zap.Logger) (*S3Exporter, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("export.s3.bucket must be specified")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(config.Region)}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     config.AccessKeyID,
				SecretAccessKey: config.SecretAccessKey,
			},
		}))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return newS3Exporter(s3.NewFromConfig(cfg), config, log), nil
}

func newS3Exporter(client s3PutAPI, config *domain.S3Config, log *zap.Logger) *S3Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &S3Exporter{client: client, config: config, logger: log}
}

// Target names the export destination kind
func (e *S3Exporter) Target() string {
	return "s3"
}

// Export uploads payload under prefix/fileName and returns the object URL
func (e *S3Exporter) Export(ctx context.Context, fileName string, payload domain.Payload) (string, error) {
	key := e.objectKey(fileName)

	contentType := payload.ContentType
	if contentType == "" {
		contentType = domain.DefaultContentType
	}

	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(e.config.Bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(payload.Data),
		ContentLength:      aws.Int64(int64(len(payload.Data))),
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", fileName)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}

	location := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", e.config.Bucket, e.config.Region, key)
	e.logger.Info("Exported payload",
		zap.String("bucket", e.config.Bucket),
		zap.String("key", key),
		zap.Int("size", len(payload.Data)))
	return location, nil
}

func (e *S3Exporter) objectKey(fileName string) string {
	prefix := strings.Trim(e.config.Prefix, "/")
	if prefix == "" {
		return fileName
	}
	return path.Join(prefix, fileName)
}

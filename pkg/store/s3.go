package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"trialgraph/internal/util"
	"trialgraph/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client builds an S3 client from the AWS_* environment. Credentials
// and endpoint come from AWS_REGION, AWS_ENDPOINT, AWS_ACCESS_KEY and
// AWS_SECRET_KEY.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	region := util.GetEnv("AWS_REGION")
	endpoint := util.GetEnv("AWS_ENDPOINT")
	accessKey := util.GetEnv("AWS_ACCESS_KEY")
	secretKey := util.GetEnv("AWS_SECRET_KEY")

	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey,
			secretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return client, nil
}

// UploadParams configures an Upload call.
type UploadParams struct {
	Bucket string
	// Prefix is the object key prefix; the registry name is appended to it.
	Prefix   string
	Registry string
}

// uploadTries bounds PutObject attempts per file.
const uploadTries = 3

// Upload pushes the given local files to S3 under Prefix/Registry/<name>.
// Each file gets a few attempts before the whole upload fails.
func Upload(ctx context.Context, client *s3.Client, params UploadParams, paths ...string) error {
	for _, localPath := range paths {
		file, err := os.Open(localPath)
		if err != nil {
			return fmt.Errorf("failed to open %q for upload: %w", localPath, err)
		}

		key := path.Join(params.Prefix, params.Registry, filepath.Base(localPath))
		err = util.RetryErr(uploadTries, func() error {
			if _, err := file.Seek(0, io.SeekStart); err != nil {
				return err
			}
			_, err := client.PutObject(ctx, &s3.PutObjectInput{
				Bucket: aws.String(params.Bucket),
				Key:    aws.String(key),
				Body:   file,
			})
			return err
		})
		file.Close()
		if err != nil {
			return fmt.Errorf("failed to upload %q to S3: %w", localPath, err)
		}

		logger.Info("[Store] Uploaded file to S3", "bucket", params.Bucket, "key", key)
	}

	return nil
}

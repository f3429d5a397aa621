package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/rascalsoftware/rascal-packager/internal/config"
	"github.com/rascalsoftware/rascal-packager/internal/logger"
)

const (
	contentTypeInstaller = "application/octet-stream"
	contentTypeYAML      = "application/yaml"
)

var errBucketRequired = errors.New("publish bucket must be configured")

// Uploader is the subset of the S3 client used for publishing.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads artifacts under <prefix>/<version>/.
type S3Publisher struct {
	client Uploader
	bucket string
	prefix string
}

// NewS3Publisher builds a publisher from the default AWS credential chain.
func NewS3Publisher(ctx context.Context, settings config.Publish) (*S3Publisher, error) {
	if settings.Bucket == "" {
		return nil, errBucketRequired
	}

	var opts []func(*awsconfig.LoadOptions) error
	if settings.Region != "" {
		opts = append(opts, awsconfig.WithRegion(settings.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return NewPublisher(s3.NewFromConfig(awsCfg), settings), nil
}

// NewPublisher wraps an existing uploader.
func NewPublisher(client Uploader, settings config.Publish) *S3Publisher {
	return &S3Publisher{
		client: client,
		bucket: settings.Bucket,
		prefix: strings.Trim(settings.Prefix, "/"),
	}
}

// ObjectKey returns the key an artifact is stored under.
func ObjectKey(prefix, version, filename string) string {
	return path.Join(strings.Trim(prefix, "/"), version, filepath.Base(filename))
}

// Publish uploads files in order and returns their object keys.
// The first failure stops the upload.
func (p *S3Publisher) Publish(ctx context.Context, version string, files ...string) ([]string, error) {
	if p.bucket == "" {
		return nil, errBucketRequired
	}

	keys := make([]string, 0, len(files))

	for _, name := range files {
		key := ObjectKey(p.prefix, version, name)

		if err := p.upload(ctx, name, key); err != nil {
			return keys, err
		}

		logger.InfoKV(ctx, "Published artifact", "bucket", p.bucket, "key", key)

		keys = append(keys, key)
	}

	return keys, nil
}

func (p *S3Publisher) upload(ctx context.Context, name, key string) error {
	file, err := os.Open(filepath.Clean(name))
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}

	//nolint:errcheck // Read-only file.
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}

	contentType := contentTypeInstaller
	if strings.HasSuffix(name, ".yaml") {
		contentType = contentTypeYAML
	}

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", p.bucket, key, err)
	}

	return nil
}

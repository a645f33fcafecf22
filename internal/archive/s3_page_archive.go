package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// S3Client defines the interface for S3 operations we need
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

const keyTimeLayout = "2006-01-02T15"

// S3PageArchive stores rendered forecast pages so parser changes can be
// replayed against real input
type S3PageArchive struct {
	client     S3Client
	bucketName string
	now        func() time.Time
}

func NewS3PageArchive(client S3Client, bucketName string) *S3PageArchive {
	return &S3PageArchive{client: client, bucketName: bucketName, now: time.Now}
}

// NewS3Client loads the default AWS configuration
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Key is pages/<forecast name>/<YYYY-MM-DDTHH>.html, one object per spot per hour
func Key(forecastName string, at time.Time) string {
	return fmt.Sprintf("pages/%s/%s.html", forecastName, at.UTC().Format(keyTimeLayout))
}

// Save writes html under the key for the current hour and returns the key
func (a *S3PageArchive) Save(ctx context.Context, forecastName, html string) (string, error) {
	if a.bucketName == "" {
		return "", fmt.Errorf("empty bucket name")
	}

	key := Key(forecastName, a.now())
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader([]byte(html)),
		ContentType: aws.String("text/html; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("saving page to S3: %w", err)
	}

	log.Debug().Str("key", key).Int("bytes", len(html)).Msg("Archived forecast page")
	return key, nil
}

// Load returns an archived page. A missing object yields "" and no error.
func (a *S3PageArchive) Load(ctx context.Context, key string) (string, error) {
	if a.bucketName == "" {
		return "", fmt.Errorf("empty bucket name")
	}

	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return "", nil
		}
		return "", fmt.Errorf("loading page from S3: %w", err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			log.Error().Err(err).Msg("Error closing S3 object body")
		}
	}(result.Body)

	body, err := io.ReadAll(result.Body)
	if err != nil {
		return "", fmt.Errorf("reading archived page: %w", err)
	}
	return string(body), nil
}

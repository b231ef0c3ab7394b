package imagehost

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tymenu/tymenu/internal/domain/recipe"
	"github.com/tymenu/tymenu/internal/infrastructure/config"
)

const s3Prefix = "recipes/"

// S3 stores images in a bucket. The delete URL holds an s3:// reference to
// the object so it can be removed later.
type S3 struct {
	client        s3iface.S3API
	uploader      *s3manager.Uploader
	bucket        string
	publicBaseURL string
	logger        *zap.Logger
}

// NewS3 creates a session from the default AWS credential chain.
func NewS3(cfg config.ImageHostConfig, logger *zap.Logger) (*S3, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return NewS3WithClient(s3.New(sess), cfg.Bucket, cfg.PublicBaseURL, logger), nil
}

// NewS3WithClient uses an existing S3 client.
func NewS3WithClient(client s3iface.S3API, bucket, publicBaseURL string, logger *zap.Logger) *S3 {
	return &S3{
		client:        client,
		uploader:      s3manager.NewUploaderWithClient(client),
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}
}

func (h *S3) Upload(ctx context.Context, filename string, image io.Reader) (recipe.ImageURLs, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	key := s3Prefix + uuid.NewString() + ext
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	out, err := h.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		Body:        image,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return recipe.ImageURLs{}, fmt.Errorf("failed to upload to S3: %w", err)
	}

	display := out.Location
	if h.publicBaseURL != "" {
		display = h.publicBaseURL + "/" + key
	}
	h.logger.Info("Image uploaded", zap.String("bucket", h.bucket), zap.String("key", key))
	return recipe.ImageURLs{
		Display:   display,
		Delete:    "s3://" + h.bucket + "/" + key,
		Thumbnail: display,
		Viewer:    display,
	}, nil
}

func (h *S3) Delete(ctx context.Context, image recipe.ImageURLs) error {
	bucket, key, ok := parseS3URL(image.Delete)
	if !ok {
		return nil
	}
	_, err := h.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from S3: %w", key, err)
	}
	h.logger.Info("Image deleted", zap.String("bucket", bucket), zap.String("key", key))
	return nil
}

func parseS3URL(raw string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(raw, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, path.Clean(key), true
}

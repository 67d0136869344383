package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Stager downloads s3://bucket/key objects with the SDK transfer
// manager, which parallelizes large downloads.
type S3Stager struct {
	downloader *manager.Downloader
}

// NewS3Stager builds an S3Stager from the ambient AWS configuration
// (environment, shared config files, instance role).
func NewS3Stager(ctx context.Context) (*S3Stager, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return &S3Stager{downloader: manager.NewDownloader(client)}, nil
}

// Stage downloads location into destDir and returns the local path.
func (s *S3Stager) Stage(ctx context.Context, location string, destDir string) (string, error) {
	bucket, key, err := parseS3URI(location)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("stage %s: %w", location, err)
	}
	destPath := filepath.Join(destDir, filepath.Base(key))

	f, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", location, err)
	}
	defer f.Close()

	if _, err := s.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("download %s: %w", location, err)
	}
	return destPath, nil
}

// parseS3URI splits s3://bucket/key into its parts.
func parseS3URI(uri string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(uri, "s3://")
	if rest == uri {
		return "", "", fmt.Errorf("not an s3 URI: %s", uri)
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 URI: %s", uri)
	}
	return bucket, key, nil
}

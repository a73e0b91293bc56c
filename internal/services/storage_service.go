// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/alhadicyber42/Affiliate-AI/internal/config"
)

// StorageService keeps render artifacts. It writes to S3 when credentials
// are configured and to a local directory otherwise.
type StorageService struct {
	s3Client *s3.S3
	aws      config.AWSConfig
	local    config.StorageConfig
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

func NewStorageService(awsCfg config.AWSConfig, localCfg config.StorageConfig) (*StorageService, error) {
	if awsCfg.AccessKeyID == "" {
		// Return service without S3 for local development
		if err := os.MkdirAll(localCfg.LocalDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create media directory: %w", err)
		}
		return &StorageService{aws: awsCfg, local: localCfg}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(awsCfg.Region),
		Credentials: credentials.NewStaticCredentials(
			awsCfg.AccessKeyID,
			awsCfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		aws:      awsCfg,
		local:    localCfg,
	}, nil
}

func (s *StorageService) Upload(ctx context.Context, key string, body []byte, contentType string) (*UploadResult, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return nil, fmt.Errorf("invalid storage key %q", key)
	}

	if s.s3Client != nil {
		return s.uploadToS3(ctx, body, key, contentType)
	}
	return s.uploadToLocal(body, key, contentType)
}

func (s *StorageService) uploadToS3(ctx context.Context, body []byte, key, contentType string) (*UploadResult, error) {
	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.aws.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
		ACL:           aws.String("public-read"),
	}

	if _, err := s.s3Client.PutObjectWithContext(ctx, params); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		URL:      s.getS3URL(key),
		Key:      key,
		Size:     int64(len(body)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) uploadToLocal(body []byte, key, contentType string) (*UploadResult, error) {
	path := filepath.Join(s.local.LocalDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write media file: %w", err)
	}

	return &UploadResult{
		URL:      strings.TrimRight(s.local.PublicBaseURL, "/") + "/" + key,
		Key:      key,
		Size:     int64(len(body)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	if s.s3Client == nil {
		err := os.Remove(filepath.Join(s.local.LocalDir, filepath.FromSlash(key)))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete media file: %w", err)
		}
		return nil
	}

	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.aws.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}

	return nil
}

// KeyFromURL maps a public URL produced by Upload back to its storage key.
func (s *StorageService) KeyFromURL(url string) string {
	prefixes := []string{strings.TrimRight(s.local.PublicBaseURL, "/") + "/"}
	if s.s3Client != nil {
		prefixes = append(prefixes, s.getS3URL(""))
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(url, prefix) {
			return strings.TrimPrefix(url, prefix)
		}
	}
	logrus.WithField("url", url).Debug("URL is not managed by storage")
	return ""
}

func (s *StorageService) getS3URL(key string) string {
	if s.aws.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", s.aws.CloudFrontURL, key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.aws.S3Bucket, s.aws.Region, key)
}

func renderKey(userID, videoID string) string {
	return fmt.Sprintf("renders/%s/%s/%s.json", userID, time.Now().UTC().Format("20060102"), videoID)
}

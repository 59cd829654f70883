package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// SnapshotService archives a JSON snapshot of a tenant's settings to object
// storage when onboarding completes. Secret values are masked before upload.
type SnapshotService struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

func NewSnapshotService(endpoint, accessKey, secretKey, bucket string, useSSL bool, logger *zap.Logger) (*SnapshotService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &SnapshotService{client: client, bucket: bucket, logger: logger}, nil
}

// EnsureBucket creates the snapshot bucket if it does not exist.
func (s *SnapshotService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

type snapshotDocument struct {
	TenantID   string            `json:"tenant_id"`
	CapturedAt time.Time         `json:"captured_at"`
	Settings   map[string]string `json:"settings"`
}

func (s *SnapshotService) Archive(ctx context.Context, tenantID string, report *StatusReport) error {
	doc := snapshotDocument{
		TenantID:   tenantID,
		CapturedAt: time.Now().UTC(),
		Settings:   make(map[string]string),
	}
	for _, status := range report.Configured {
		if status.Value == nil {
			continue
		}
		if status.Setting.Secret {
			doc.Settings[status.Setting.Key] = "********"
			continue
		}
		doc.Settings[status.Setting.Key] = *status.Value
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	objectName := fmt.Sprintf("snapshots/%s/%s.json", tenantID, doc.CapturedAt.Format("20060102T150405Z"))
	_, err = s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}

	s.logger.Info("settings snapshot archived",
		zap.String("tenant_id", tenantID),
		zap.String("object", objectName))
	return nil
}

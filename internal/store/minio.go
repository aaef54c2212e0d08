package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ayush/finance-advisor/internal/models"
)

// TranscriptArchive writes chat transcripts to a MinIO bucket before they are cleared.
type TranscriptArchive struct {
	client *minio.Client
	bucket string
}

func NewTranscriptArchive(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*TranscriptArchive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return &TranscriptArchive{client: client, bucket: bucket}, nil
}

type archivedTranscript struct {
	UserID     string           `json:"userId"`
	ArchivedAt time.Time        `json:"archivedAt"`
	Messages   []models.Message `json:"messages"`
}

// Archive stores msgs as JSON and returns the object key.
func (a *TranscriptArchive) Archive(ctx context.Context, userID string, msgs []models.Message) (string, error) {
	now := time.Now().UTC()
	data, err := json.Marshal(archivedTranscript{UserID: userID, ArchivedAt: now, Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}

	key := TranscriptKey(userID, now)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("minio put %s: %w", key, err)
	}
	return key, nil
}

// TranscriptKey is chats/<user>/<UTC timestamp>.json.
func TranscriptKey(userID string, at time.Time) string {
	return fmt.Sprintf("chats/%s/%s.json", userID, at.UTC().Format("20060102T150405.000Z"))
}

// Package storage archives uploaded invoice documents in S3-compatible
// object storage so escalated invoices can be reviewed against the source
// document.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const bucketName = "invoices"

// Client is the shared MinIO client. It stays nil when object storage is not
// configured; archiving is then skipped.
var Client *minio.Client

// Init connects to MinIO using MINIO_ENDPOINT, MINIO_ACCESS_KEY,
// MINIO_SECRET_KEY and optional MINIO_USE_SSL, and ensures the invoices
// bucket exists.
func Init() error {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		return fmt.Errorf("no object storage configured: set MINIO_ENDPOINT")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), ""),
		Secure: os.Getenv("MINIO_USE_SSL") == "true",
	})
	if err != nil {
		return fmt.Errorf("creating minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", bucketName, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("creating bucket %s: %w", bucketName, err)
		}
	}

	Client = client
	return nil
}

// UploadDocument archives an uploaded document and returns its object path.
// Objects are keyed by year/month plus a fresh UUID, keeping the original
// extension: 2026/08/7f3c....pdf.
func UploadDocument(ctx context.Context, originalFilename string, data []byte, contentType string) (string, error) {
	if Client == nil {
		return "", fmt.Errorf("object storage not initialized")
	}

	now := time.Now().UTC()
	objectName := fmt.Sprintf("%d/%02d/%s%s",
		now.Year(), now.Month(), uuid.New().String(), GetFileExtension(originalFilename))

	_, err := Client.PutObject(ctx, bucketName, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("uploading document: %w", err)
	}
	return objectName, nil
}

// GetPresignedURL returns a temporary download link for an archived document,
// valid for 24 hours.
func GetPresignedURL(ctx context.Context, objectName string) (string, error) {
	if Client == nil {
		return "", fmt.Errorf("object storage not initialized")
	}
	u, err := Client.PresignedGetObject(ctx, bucketName, objectName, 24*time.Hour, nil)
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", objectName, err)
	}
	return u.String(), nil
}

// GetFileExtension returns the lowercase extension including the dot, or
// ".bin" when the filename has none.
func GetFileExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return ".bin"
	}
	return ext
}

package checks

import (
	"context"
	"fmt"
	"time"

	"cabin-manager/core/storage"

	"github.com/minio/minio-go/v7"
)

// CalendarReport describes the calendar object published to storage.
type CalendarReport struct {
	Bucket       string     `json:"bucket"`
	Object       string     `json:"object"`
	Found        bool       `json:"found"`
	Size         int64      `json:"size,omitempty"`
	LastModified *time.Time `json:"last_modified,omitempty"`
}

// CheckPublishedCalendar looks for object in bucket.
func CheckPublishedCalendar(ctx context.Context, client storage.Client, bucket, object string) (*CalendarReport, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", bucket)
	}

	// Cancelling stops the listing goroutine after an early break.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	report := &CalendarReport{Bucket: bucket, Object: object}
	opts := minio.ListObjectsOptions{Prefix: object, Recursive: false, MaxKeys: 1}
	for obj := range client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", object, obj.Err)
		}
		if obj.Key != object {
			continue
		}
		modified := obj.LastModified
		report.Found = true
		report.Size = obj.Size
		report.LastModified = &modified
		break
	}
	return report, nil
}

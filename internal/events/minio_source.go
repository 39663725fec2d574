package events

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
)

const (
	objectCreatedEvent = "s3:ObjectCreated:*"
	importSuffix       = ".txt"
)

// ImportEvent is an uploaded text file that should become a note.
type ImportEvent struct {
	UserID    string
	Title     string
	ObjectKey string
	EventName string
}

type ImportEventSource interface {
	Run(ctx context.Context, handler func(context.Context, ImportEvent) error) error
}

type MinioImportEventSource struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinioImportEventSource(client *minio.Client, bucket string, prefix string) *MinioImportEventSource {
	return &MinioImportEventSource{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *MinioImportEventSource) Run(ctx context.Context, handler func(context.Context, ImportEvent) error) error {
	notificationCh := s.client.ListenBucketNotification(ctx, s.bucket, s.prefix, importSuffix, []string{objectCreatedEvent})
	for {
		select {
		case <-ctx.Done():
			return nil
		case info, ok := <-notificationCh:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream closed")
			}
			if info.Err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream error: %w", info.Err)
			}
			for _, record := range info.Records {
				event, err := importEventFor(record.S3.Object.Key, record.EventName)
				if err != nil {
					log.Printf("skipping import object: %v", err)
					continue
				}
				if err := handler(ctx, event); err != nil {
					return err
				}
			}
		}
	}
}

func importEventFor(encodedKey, eventName string) (ImportEvent, error) {
	objectKey, err := decodeObjectKey(encodedKey)
	if err != nil {
		return ImportEvent{}, err
	}
	userID, title, err := parseObjectKey(objectKey)
	if err != nil {
		return ImportEvent{}, err
	}
	return ImportEvent{UserID: userID, Title: title, ObjectKey: objectKey, EventName: eventName}, nil
}

func decodeObjectKey(encoded string) (string, error) {
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return "", err
	}
	decoded = strings.TrimSpace(decoded)
	if decoded == "" {
		return "", fmt.Errorf("object key is empty")
	}
	return decoded, nil
}

// parseObjectKey splits user_id/title.txt. Nested folders below the user
// are dropped from the title and underscores read as spaces.
func parseObjectKey(objectKey string) (string, string, error) {
	cleaned := strings.Trim(strings.ReplaceAll(objectKey, "\\", "/"), "/")
	parts := strings.SplitN(cleaned, "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("object key %q does not match user_id/title%s", objectKey, importSuffix)
	}
	userID := strings.TrimSpace(parts[0])
	file := path.Base(parts[1])
	if !strings.EqualFold(path.Ext(file), importSuffix) {
		return "", "", fmt.Errorf("object key %q is not a %s file", objectKey, importSuffix)
	}
	title := strings.TrimSpace(strings.ReplaceAll(strings.TrimSuffix(file, path.Ext(file)), "_", " "))
	if userID == "" || title == "" {
		return "", "", fmt.Errorf("object key %q missing user id or title", objectKey)
	}
	return userID, title, nil
}

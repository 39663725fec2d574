package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"note-enhancer/internal/domain"
)

const revisionExt = ".txt"

type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return NewMinioStoreWithClient(context.Background(), client, bucket)
}

func NewMinioStoreWithClient(ctx context.Context, client *minio.Client, bucket string) (*MinioStore, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	return &MinioStore{client: client, bucket: bucket}, nil
}

func revisionKey(noteID, revisionID string) string {
	return path.Join(noteID, revisionID+revisionExt)
}

func parseRevisionKey(objectKey string) (string, string, error) {
	noteID, file := path.Split(objectKey)
	noteID = strings.Trim(noteID, "/")
	revisionID := strings.TrimSuffix(file, revisionExt)
	if noteID == "" || revisionID == "" || revisionID == file || strings.Contains(noteID, "/") {
		return "", "", fmt.Errorf("object key %q does not match note_id/revision_id%s", objectKey, revisionExt)
	}
	return noteID, revisionID, nil
}

// PutRevision snapshots content as a new revision of the note.
func (m *MinioStore) PutRevision(ctx context.Context, noteID, content string) (domain.Revision, error) {
	revisionID := uuid.NewString()
	objectKey := revisionKey(noteID, revisionID)
	info, err := m.client.PutObject(ctx, m.bucket, objectKey, strings.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return domain.Revision{}, err
	}
	return domain.Revision{
		ID:        revisionID,
		NoteID:    noteID,
		ObjectKey: objectKey,
		Size:      info.Size,
		CreatedAt: info.LastModified,
	}, nil
}

func (m *MinioStore) GetRevision(ctx context.Context, noteID, revisionID string) (string, error) {
	data, err := m.GetObject(ctx, revisionKey(noteID, revisionID))
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", domain.ErrNoteNotFound
		}
		return "", err
	}
	return string(data), nil
}

// ListRevisions returns the newest revision first.
func (m *MinioStore) ListRevisions(ctx context.Context, noteID string) ([]domain.Revision, error) {
	revisions := make([]domain.Revision, 0)
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: noteID + "/", Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		_, revisionID, err := parseRevisionKey(obj.Key)
		if err != nil {
			continue
		}
		revisions = append(revisions, domain.Revision{
			ID:        revisionID,
			NoteID:    noteID,
			ObjectKey: obj.Key,
			Size:      obj.Size,
			CreatedAt: obj.LastModified,
		})
	}
	sort.SliceStable(revisions, func(i, j int) bool {
		return revisions[i].CreatedAt.After(revisions[j].CreatedAt)
	})
	return revisions, nil
}

func (m *MinioStore) DeleteRevisions(ctx context.Context, noteID string) error {
	revisions, err := m.ListRevisions(ctx, noteID)
	if err != nil {
		return err
	}
	for _, rev := range revisions {
		if err := m.client.RemoveObject(ctx, m.bucket, rev.ObjectKey, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove revision %s: %w", rev.ObjectKey, err)
		}
	}
	return nil
}

func (m *MinioStore) GetObject(ctx context.Context, objectKey string) ([]byte, error) {
	return m.ReadObject(ctx, objectKey, 0)
}

// StatObject returns the stored size of objectKey without reading it.
func (m *MinioStore) StatObject(ctx context.Context, objectKey string) (int64, error) {
	info, err := m.client.StatObject(ctx, m.bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

// ReadObject reads at most limit+1 bytes when limit is positive, so an object
// that grew past the limit is still detectable by the caller.
func (m *MinioStore) ReadObject(ctx context.Context, objectKey string, limit int64) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	var r io.Reader = obj
	if limit > 0 {
		r = io.LimitReader(obj, limit+1)
	}
	data := new(bytes.Buffer)
	if _, err := data.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data.Bytes(), nil
}

package events

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"note-enhancer/internal/domain"
)

type ObjectReader interface {
	StatObject(ctx context.Context, objectKey string) (int64, error)
	ReadObject(ctx context.Context, objectKey string, limit int64) ([]byte, error)
}

type NoteCreator interface {
	CreateNote(ctx context.Context, n domain.Note) (domain.Note, error)
}

// Importer turns import events into notes.
type Importer struct {
	objects  ObjectReader
	notes    NoteCreator
	maxBytes int64
}

func NewImporter(objects ObjectReader, notes NoteCreator, maxBytes int64) *Importer {
	return &Importer{objects: objects, notes: notes, maxBytes: maxBytes}
}

// Handle skips files that are too large, not text, or fail note validation.
// Only storage failures are returned, since those stop the listener.
func (i *Importer) Handle(ctx context.Context, event ImportEvent) error {
	if i.maxBytes > 0 {
		size, err := i.objects.StatObject(ctx, event.ObjectKey)
		if err != nil {
			return fmt.Errorf("stat import %s: %w", event.ObjectKey, err)
		}
		if size > i.maxBytes {
			log.Printf("skip import object=%s: %d bytes exceeds limit %d", event.ObjectKey, size, i.maxBytes)
			return nil
		}
	}

	body, err := i.objects.ReadObject(ctx, event.ObjectKey, i.maxBytes)
	if err != nil {
		return fmt.Errorf("read import %s: %w", event.ObjectKey, err)
	}
	if i.maxBytes > 0 && int64(len(body)) > i.maxBytes {
		log.Printf("skip import object=%s: grew past limit %d while reading", event.ObjectKey, i.maxBytes)
		return nil
	}
	if !isSupportedTextImport(body) {
		log.Printf("skip import object=%s: not a text file", event.ObjectKey)
		return nil
	}

	input := domain.CreateNoteInput{Title: event.Title, Content: string(body)}
	if err := domain.ValidateCreateNote(input); err != nil {
		log.Printf("skip import object=%s: %v", event.ObjectKey, err)
		return nil
	}

	note, err := i.notes.CreateNote(ctx, domain.Note{
		ID:      uuid.NewString(),
		UserID:  event.UserID,
		Title:   strings.TrimSpace(input.Title),
		Content: input.Content,
	})
	if err != nil {
		return fmt.Errorf("create note from %s: %w", event.ObjectKey, err)
	}
	log.Printf("imported note note_id=%s user_id=%s object=%s", note.ID, note.UserID, event.ObjectKey)
	return nil
}

func isSupportedTextImport(body []byte) bool {
	if len(bytes.TrimSpace(body)) == 0 {
		return false
	}
	if !utf8.Valid(body) || bytes.IndexByte(body, 0) >= 0 {
		return false
	}
	return strings.HasPrefix(http.DetectContentType(body), "text/")
}

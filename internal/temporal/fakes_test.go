package temporal

import (
	"context"
	"fmt"
	"sync"

	"note-enhancer/internal/domain"
	"note-enhancer/internal/openai"
)

type fakeStore struct {
	mu           sync.Mutex
	notes        map[string]domain.Note
	enhancements map[string][]domain.EnhancementRecord

	// beforeApply runs inside ApplyEnhancement before the content check.
	beforeApply func(n *domain.Note)
	insertErr   error
}

func newFakeStore(notes ...domain.Note) *fakeStore {
	f := &fakeStore{
		notes:        make(map[string]domain.Note),
		enhancements: make(map[string][]domain.EnhancementRecord),
	}
	for _, n := range notes {
		f.notes[n.ID] = n
	}
	return f
}

func (f *fakeStore) GetNote(_ context.Context, userID, noteID string) (domain.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[noteID]
	if !ok || n.UserID != userID {
		return domain.Note{}, domain.ErrNoteNotFound
	}
	return n, nil
}

func (f *fakeStore) ApplyEnhancement(_ context.Context, noteID, enhancedFrom, newContent string) (domain.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[noteID]
	if ok && f.beforeApply != nil {
		f.beforeApply(&n)
		f.notes[noteID] = n
	}
	if !ok || n.Content != enhancedFrom {
		return domain.Note{}, domain.ErrNoteChanged
	}
	n.Content = newContent
	f.notes[noteID] = n
	return n, nil
}

func (f *fakeStore) InsertEnhancement(_ context.Context, rec domain.EnhancementRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	rec.ID = int64(len(f.enhancements[rec.NoteID]) + 1)
	f.enhancements[rec.NoteID] = append(f.enhancements[rec.NoteID], rec)
	return nil
}

func (f *fakeStore) outcomes(noteID string) []domain.OutcomeStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.OutcomeStatus, 0, len(f.enhancements[noteID]))
	for _, rec := range f.enhancements[noteID] {
		out = append(out, rec.Outcome)
	}
	return out
}

type fakeRevisions struct {
	mu       sync.Mutex
	snapshot map[string][]string
}

func newFakeRevisions() *fakeRevisions {
	return &fakeRevisions{snapshot: make(map[string][]string)}
}

func (f *fakeRevisions) PutRevision(_ context.Context, noteID, content string) (domain.Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot[noteID] = append(f.snapshot[noteID], content)
	id := fmt.Sprintf("rev-%d", len(f.snapshot[noteID]))
	return domain.Revision{ID: id, NoteID: noteID, ObjectKey: noteID + "/" + id + ".txt", Size: int64(len(content))}, nil
}

type stubLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     []openai.CompletionRequest
}

func (s *stubLLM) Complete(_ context.Context, req openai.CompletionRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	idx := len(s.calls) - 1
	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", s.errs[idx]
	}
	if idx < len(s.responses) {
		return s.responses[idx], nil
	}
	return "", nil
}

func (s *stubLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

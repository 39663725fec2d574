package temporal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"note-enhancer/internal/domain"
	"note-enhancer/internal/enhance"
	"note-enhancer/internal/openai"
)

// Application error types carried from activities to API callers.
const (
	ErrTypeNoteNotFound     = "NoteNotFound"
	ErrTypeGenerationFailed = "GenerationFailed"
)

type NoteStore interface {
	GetNote(ctx context.Context, userID, noteID string) (domain.Note, error)
	ApplyEnhancement(ctx context.Context, noteID, enhancedFrom, newContent string) (domain.Note, error)
	InsertEnhancement(ctx context.Context, rec domain.EnhancementRecord) error
}

type RevisionStore interface {
	PutRevision(ctx context.Context, noteID, content string) (domain.Revision, error)
}

type Activities struct {
	Store          NoteStore
	Revisions      RevisionStore
	LLM            openai.Client
	OpenAIModel    string
	OpenAITimeout  time.Duration
	OpenAIMaxRetry int
}

type LoadNoteInput struct {
	NoteID string
	UserID string
}

type LoadNoteOutput struct {
	Note domain.Note
}

type GenerateInput struct {
	NoteID string
	Prompt string
}

type GenerateOutput struct {
	Reply string
}

type SnapshotNoteInput struct {
	NoteID  string
	Content string
}

type SnapshotNoteOutput struct {
	RevisionID string
}

type ApplyEnhancementInput struct {
	NoteID       string
	UserID       string
	EnhancedFrom string
	NewContent   string
}

// ApplyEnhancementOutput reports Applied=false when the note was edited after
// it was loaded.
type ApplyEnhancementOutput struct {
	Applied bool
	Note    domain.Note
}

type RecordOutcomeInput struct {
	NoteID    string
	Operation domain.Operation
	Outcome   domain.OutcomeStatus
	Detail    string
	Rules     []string
}

func (a *Activities) LoadNoteActivity(ctx context.Context, input LoadNoteInput) (LoadNoteOutput, error) {
	note, err := a.Store.GetNote(ctx, input.UserID, input.NoteID)
	if err != nil {
		if errors.Is(err, domain.ErrNoteNotFound) {
			return LoadNoteOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNoteNotFound, err)
		}
		return LoadNoteOutput{}, err
	}
	return LoadNoteOutput{Note: note}, nil
}

func (a *Activities) GenerateActivity(ctx context.Context, input GenerateInput) (GenerateOutput, error) {
	reply, err := a.callOpenAIWithRetry(ctx, enhance.SystemPrompt, input.Prompt)
	if err != nil {
		activity.GetLogger(ctx).Warn("generation failed", "note_id", input.NoteID, "error", err)
		return GenerateOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeGenerationFailed, err)
	}
	return GenerateOutput{Reply: reply}, nil
}

func (a *Activities) SnapshotNoteActivity(ctx context.Context, input SnapshotNoteInput) (SnapshotNoteOutput, error) {
	rev, err := a.Revisions.PutRevision(ctx, input.NoteID, input.Content)
	if err != nil {
		return SnapshotNoteOutput{}, err
	}
	return SnapshotNoteOutput{RevisionID: rev.ID}, nil
}

func (a *Activities) ApplyEnhancementActivity(ctx context.Context, input ApplyEnhancementInput) (ApplyEnhancementOutput, error) {
	note, err := a.Store.ApplyEnhancement(ctx, input.NoteID, input.EnhancedFrom, input.NewContent)
	if err == nil {
		return ApplyEnhancementOutput{Applied: true, Note: note}, nil
	}
	if !errors.Is(err, domain.ErrNoteChanged) {
		return ApplyEnhancementOutput{}, err
	}

	// A retried attempt finds its own write already in place.
	current, getErr := a.Store.GetNote(ctx, input.UserID, input.NoteID)
	if getErr == nil && current.Content == input.NewContent {
		return ApplyEnhancementOutput{Applied: true, Note: current}, nil
	}
	if getErr != nil && !errors.Is(getErr, domain.ErrNoteNotFound) {
		return ApplyEnhancementOutput{}, getErr
	}
	return ApplyEnhancementOutput{Applied: false}, nil
}

func (a *Activities) RecordOutcomeActivity(ctx context.Context, input RecordOutcomeInput) error {
	return a.Store.InsertEnhancement(ctx, domain.EnhancementRecord{
		NoteID:    input.NoteID,
		Operation: input.Operation,
		Outcome:   input.Outcome,
		Detail:    input.Detail,
		Rules:     input.Rules,
	})
}

func (a *Activities) callOpenAIWithRetry(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	maxRetry := a.OpenAIMaxRetry
	if maxRetry <= 0 {
		maxRetry = 3
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetry; attempt++ {
		out, err := a.LLM.Complete(ctx, openai.CompletionRequest{
			Model:        a.OpenAIModel,
			SystemPrompt: systemPrompt,
			UserPrompt:   userPrompt,
			Timeout:      a.OpenAITimeout,
		})
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == maxRetry || !openai.IsRetryable(err) {
			break
		}
		delay := time.Duration(200*(1<<(attempt-1))) * time.Millisecond
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", fmt.Errorf("openai retry exhausted: %w", lastErr)
}

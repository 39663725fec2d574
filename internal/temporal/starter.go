package temporal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"note-enhancer/internal/domain"
)

// StartResult is Done when the workflow finished within the wait window.
type StartResult struct {
	WorkflowID string
	Done       bool
	Result     WorkflowResult
}

// Starter runs one enhancement workflow per note. The workflow ID is derived
// from the note ID, so a second request for the same note is refused while
// the first is still running.
type Starter struct {
	client    client.Client
	taskQueue string
	prefix    string
	wait      time.Duration
}

func NewStarter(c client.Client, taskQueue, prefix string, wait time.Duration) *Starter {
	return &Starter{client: c, taskQueue: taskQueue, prefix: prefix, wait: wait}
}

func (s *Starter) WorkflowID(noteID string) string {
	return fmt.Sprintf("%s-%s", s.prefix, noteID)
}

func (s *Starter) Enhance(ctx context.Context, input WorkflowInput) (StartResult, error) {
	workflowID := s.WorkflowID(input.NoteID)
	run, err := s.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: s.taskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, NoteEnhancementWorkflowName, input)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return StartResult{WorkflowID: workflowID}, domain.ErrEnhancementInProgress
		}
		return StartResult{}, fmt.Errorf("start workflow %s: %w", workflowID, err)
	}

	started := StartResult{WorkflowID: workflowID}
	if s.wait <= 0 {
		return started, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.wait)
	defer cancel()

	var result WorkflowResult
	if err := run.Get(waitCtx, &result); err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return started, nil
		}
		return started, translateWorkflowError(err)
	}
	started.Done = true
	started.Result = result
	return started, nil
}

func (s *Starter) Status(ctx context.Context, noteID string) (EnhancementStatus, error) {
	resp, err := s.client.QueryWorkflow(ctx, s.WorkflowID(noteID), "", EnhancementStatusQuery)
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return EnhancementStatus{}, domain.ErrEnhancementNotFound
		}
		return EnhancementStatus{}, err
	}
	var status EnhancementStatus
	if err := resp.Get(&status); err != nil {
		return EnhancementStatus{}, err
	}
	return status, nil
}

// translateWorkflowError maps activity failure types back to domain errors.
func translateWorkflowError(err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		switch appErr.Type() {
		case ErrTypeNoteNotFound:
			return domain.ErrNoteNotFound
		case ErrTypeGenerationFailed:
			return fmt.Errorf("%w: %s", domain.ErrGenerationFailed, appErr.Error())
		}
	}
	return err
}

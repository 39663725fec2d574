package temporal

import (
	"go.temporal.io/sdk/workflow"

	"note-enhancer/internal/domain"
	"note-enhancer/internal/enhance"
)

const (
	NoteEnhancementWorkflowName = "NoteEnhancementWorkflow"
	EnhancementStatusQuery      = "enhancementStatus"
)

type WorkflowInput struct {
	NoteID    string
	UserID    string
	Operation domain.Operation
}

// WorkflowResult always carries the engine outcome. Note is set only when the
// enhancement was written back.
type WorkflowResult struct {
	NoteID     string
	Status     domain.OutcomeStatus
	Outcome    enhance.Outcome
	Note       *domain.Note
	RevisionID string
}

type EnhancementStatus struct {
	NoteID    string                  `json:"note_id"`
	Operation domain.Operation        `json:"operation"`
	Stage     domain.EnhancementStage `json:"stage"`
	Outcome   domain.OutcomeStatus    `json:"outcome,omitempty"`
}

func NoteEnhancementWorkflow(ctx workflow.Context, input WorkflowInput) (WorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	status := EnhancementStatus{NoteID: input.NoteID, Operation: input.Operation, Stage: domain.StageLoading}
	if err := workflow.SetQueryHandler(ctx, EnhancementStatusQuery, func() (EnhancementStatus, error) {
		return status, nil
	}); err != nil {
		return WorkflowResult{}, err
	}

	var loaded LoadNoteOutput
	if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyLoadNote), (*Activities).LoadNoteActivity, LoadNoteInput{
		NoteID: input.NoteID,
		UserID: input.UserID,
	}).Get(ctx, &loaded); err != nil {
		status.Stage = domain.StageFailed
		return WorkflowResult{}, err
	}

	status.Stage = domain.StageGenerating
	generateCtx := mustActivityContext(ctx, ActivityPolicyGenerateReply)
	outcome, err := enhance.DefaultEngine().Run(loaded.Note.Content, input.Operation, func(prompt string) (string, error) {
		var out GenerateOutput
		err := workflow.ExecuteActivity(generateCtx, (*Activities).GenerateActivity, GenerateInput{
			NoteID: input.NoteID,
			Prompt: prompt,
		}).Get(ctx, &out)
		return out.Reply, err
	})
	if err != nil {
		status.Stage = domain.StageFailed
		status.Outcome = domain.OutcomeFailed
		logger.Warn("note enhancement failed", "note_id", input.NoteID, "operation", input.Operation, "error", err)
		if recErr := recordOutcome(ctx, input, domain.OutcomeFailed, err.Error(), nil); recErr != nil {
			logger.Warn("recording failed enhancement", "note_id", input.NoteID, "error", recErr)
		}
		return WorkflowResult{}, err
	}

	result := WorkflowResult{NoteID: input.NoteID, Status: outcome.Status(), Outcome: outcome}
	switch outcome.Kind {
	case enhance.OutcomeRejected:
		if err := recordOutcome(ctx, input, result.Status, outcome.Reason, nil); err != nil {
			return WorkflowResult{}, err
		}
	case enhance.OutcomeSuggestion:
		if err := recordOutcome(ctx, input, result.Status, outcome.Text, []string{outcome.Rule}); err != nil {
			return WorkflowResult{}, err
		}
	default:
		status.Stage = domain.StagePersisting
		var snapshot SnapshotNoteOutput
		if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicySnapshotNote), (*Activities).SnapshotNoteActivity, SnapshotNoteInput{
			NoteID:  input.NoteID,
			Content: loaded.Note.Content,
		}).Get(ctx, &snapshot); err != nil {
			status.Stage = domain.StageFailed
			return WorkflowResult{}, err
		}
		result.RevisionID = snapshot.RevisionID

		var applied ApplyEnhancementOutput
		if err := workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyApplyEnhancement), (*Activities).ApplyEnhancementActivity, ApplyEnhancementInput{
			NoteID:       input.NoteID,
			UserID:       input.UserID,
			EnhancedFrom: loaded.Note.Content,
			NewContent:   outcome.Text,
		}).Get(ctx, &applied); err != nil {
			status.Stage = domain.StageFailed
			return WorkflowResult{}, err
		}

		detail := "revision " + snapshot.RevisionID
		if applied.Applied {
			result.Note = &applied.Note
		} else {
			result.Status = domain.OutcomeConflict
			detail = domain.ErrNoteChanged.Error()
		}
		if err := recordOutcome(ctx, input, result.Status, detail, nil); err != nil {
			return WorkflowResult{}, err
		}
	}

	status.Stage = domain.StageCompleted
	status.Outcome = result.Status
	logger.Info("note enhancement finished", "note_id", input.NoteID, "operation", input.Operation, "outcome", result.Status, "rule", outcome.Rule)
	return result, nil
}

func recordOutcome(ctx workflow.Context, input WorkflowInput, outcome domain.OutcomeStatus, detail string, rules []string) error {
	return workflow.ExecuteActivity(mustActivityContext(ctx, ActivityPolicyRecordOutcome), (*Activities).RecordOutcomeActivity, RecordOutcomeInput{
		NoteID:    input.NoteID,
		Operation: input.Operation,
		Outcome:   outcome,
		Detail:    detail,
		Rules:     rules,
	}).Get(ctx, nil)
}

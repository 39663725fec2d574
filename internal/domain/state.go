package domain

type OutcomeStatus string

const (
	OutcomeRejected   OutcomeStatus = "REJECTED"
	OutcomeSuggestion OutcomeStatus = "SUGGESTION"
	OutcomeEnhanced   OutcomeStatus = "ENHANCED"
	OutcomeConflict   OutcomeStatus = "CONFLICT"
	OutcomeFailed     OutcomeStatus = "FAILED"
)

type EnhancementStage string

const (
	StageLoading    EnhancementStage = "LOADING"
	StageGenerating EnhancementStage = "GENERATING"
	StagePersisting EnhancementStage = "PERSISTING"
	StageCompleted  EnhancementStage = "COMPLETED"
	StageFailed     EnhancementStage = "FAILED"
)

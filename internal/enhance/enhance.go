// Package enhance decides whether a note is worth rewriting and whether a
// generation reply is a rewrite. Only Run calls out, once, through generate.
package enhance

import (
	"fmt"

	"note-enhancer/internal/domain"
)

type OutcomeKind string

const (
	OutcomeRejected   OutcomeKind = "rejected"
	OutcomeSuggestion OutcomeKind = "suggestion"
	OutcomeEnhanced   OutcomeKind = "enhanced"
)

// Outcome is the terminal result of Run. Rejected carries Reason; Suggestion
// and Enhanced carry Text.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Text   string      `json:"text,omitempty"`
	Reason string      `json:"reason,omitempty"`
	Rule   string      `json:"rule,omitempty"`
}

func (o Outcome) Status() domain.OutcomeStatus {
	switch o.Kind {
	case OutcomeRejected:
		return domain.OutcomeRejected
	case OutcomeSuggestion:
		return domain.OutcomeSuggestion
	default:
		return domain.OutcomeEnhanced
	}
}

// GenerateFunc sends one prompt to the generation service.
type GenerateFunc func(prompt string) (string, error)

type Engine struct {
	policy Policy
}

func New(policy Policy) *Engine {
	return &Engine{policy: policy}
}

func DefaultEngine() *Engine {
	return New(DefaultPolicy())
}

// Enhance runs content through the default engine.
func Enhance(content string, op domain.Operation, generate GenerateFunc) (Outcome, error) {
	return DefaultEngine().Run(content, op, generate)
}

// Run sequences eligibility, prompt, generation, classification and
// normalization. Errors from generate are returned unchanged and no retry is
// attempted.
func (e *Engine) Run(content string, op domain.Operation, generate GenerateFunc) (Outcome, error) {
	if !op.Valid() {
		return Outcome{}, fmt.Errorf("%w: %q", domain.ErrUnknownOperation, op)
	}
	if generate == nil {
		return Outcome{}, fmt.Errorf("enhance: generate func is required")
	}

	verdict := e.Analyze(content)
	if !verdict.Eligible {
		return Outcome{Kind: OutcomeRejected, Reason: verdict.Reason}, nil
	}

	reply, err := generate(e.BuildPrompt(content, op))
	if err != nil {
		return Outcome{}, err
	}

	c := e.Classify(reply, content, op)
	if !c.IsEnhancement {
		return Outcome{Kind: OutcomeSuggestion, Text: c.Payload, Rule: c.Rule}, nil
	}
	return Outcome{Kind: OutcomeEnhanced, Text: e.Normalize(c.Payload)}, nil
}

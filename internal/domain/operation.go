package domain

import (
	"fmt"
	"strings"
)

type Operation string

const (
	OperationImproveGrammar Operation = "improve_grammar"
	OperationSummarize      Operation = "summarize"
	OperationExpand         Operation = "expand"
)

var Operations = []Operation{OperationImproveGrammar, OperationSummarize, OperationExpand}

// ParseOperation accepts the canonical values plus the labels the note UI sends
// ("improve grammar", "Summarize", ...).
func ParseOperation(raw string) (Operation, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	op := Operation(norm)
	if !op.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, raw)
	}
	return op, nil
}

func (o Operation) Valid() bool {
	switch o {
	case OperationImproveGrammar, OperationSummarize, OperationExpand:
		return true
	default:
		return false
	}
}

func (o Operation) Label() string {
	switch o {
	case OperationImproveGrammar:
		return "improve grammar"
	case OperationSummarize:
		return "summarize"
	case OperationExpand:
		return "expand"
	default:
		return string(o)
	}
}

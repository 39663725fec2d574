package domain

import (
	"fmt"
	"strings"
)

const maxTitleLength = 200

func ValidateCreateNote(in CreateNoteInput) error {
	failed := make([]string, 0)
	if strings.TrimSpace(in.Title) == "" {
		failed = append(failed, "title is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		failed = append(failed, "content is required")
	}
	if len([]rune(in.Title)) > maxTitleLength {
		failed = append(failed, fmt.Sprintf("title exceeds %d characters", maxTitleLength))
	}
	return joinFailures(failed)
}

func ValidateUpdateNote(in UpdateNoteInput) error {
	failed := make([]string, 0)
	if in.Title == nil && in.Content == nil && in.Position == nil {
		failed = append(failed, "nothing to update")
	}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			failed = append(failed, "title must not be blank")
		} else if len([]rune(*in.Title)) > maxTitleLength {
			failed = append(failed, fmt.Sprintf("title exceeds %d characters", maxTitleLength))
		}
	}
	if in.Content != nil && strings.TrimSpace(*in.Content) == "" {
		failed = append(failed, "content must not be blank")
	}
	return joinFailures(failed)
}

// Apply returns a copy of n with the set fields of in applied.
func (in UpdateNoteInput) Apply(n Note) Note {
	if in.Title != nil {
		n.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		n.Content = *in.Content
	}
	if in.Position != nil {
		n.Position = *in.Position
	}
	return n
}

func joinFailures(failed []string) error {
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidNote, strings.Join(failed, "; "))
}

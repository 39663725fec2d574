package domain

import "errors"

var (
	ErrNoteNotFound          = errors.New("note not found")
	ErrInvalidNote           = errors.New("invalid note")
	ErrUnknownOperation      = errors.New("unknown operation")
	ErrNoteChanged           = errors.New("note changed during enhancement")
	ErrEnhancementInProgress = errors.New("enhancement already in progress")
	ErrEnhancementNotFound   = errors.New("no enhancement for note")
	ErrGenerationFailed      = errors.New("generation failed")
)

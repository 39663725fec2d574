package domain

import "time"

const DefaultUserID = "demo-user"

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Position  Position  `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateNoteInput struct {
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Position *Position `json:"position,omitempty"`
}

// UpdateNoteInput only touches the fields that are set.
type UpdateNoteInput struct {
	Title    *string   `json:"title,omitempty"`
	Content  *string   `json:"content,omitempty"`
	Position *Position `json:"position,omitempty"`
}

type EnhancementRecord struct {
	ID        int64         `json:"id"`
	NoteID    string        `json:"note_id"`
	Operation Operation     `json:"operation"`
	Outcome   OutcomeStatus `json:"outcome"`
	Detail    string        `json:"detail,omitempty"`
	Rules     []string      `json:"rules,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

type Revision struct {
	ID        string    `json:"id"`
	NoteID    string    `json:"note_id"`
	ObjectKey string    `json:"object_key"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"note-enhancer/internal/config"
	"note-enhancer/internal/domain"
	"note-enhancer/internal/enhance"
	appTemporal "note-enhancer/internal/temporal"
)

type NoteStore interface {
	CreateNote(ctx context.Context, n domain.Note) (domain.Note, error)
	GetNote(ctx context.Context, userID, noteID string) (domain.Note, error)
	ListNotes(ctx context.Context, userID string) ([]domain.Note, error)
	UpdateNote(ctx context.Context, n domain.Note) (domain.Note, error)
	UpdateNotePosition(ctx context.Context, userID, noteID string, pos domain.Position) (domain.Note, error)
	DeleteNote(ctx context.Context, userID, noteID string) error
	ListEnhancements(ctx context.Context, noteID string) ([]domain.EnhancementRecord, error)
	Ping(ctx context.Context) error
}

type RevisionStore interface {
	PutRevision(ctx context.Context, noteID, content string) (domain.Revision, error)
	GetRevision(ctx context.Context, noteID, revisionID string) (string, error)
	ListRevisions(ctx context.Context, noteID string) ([]domain.Revision, error)
	DeleteRevisions(ctx context.Context, noteID string) error
}

type Enhancer interface {
	Enhance(ctx context.Context, input appTemporal.WorkflowInput) (appTemporal.StartResult, error)
	Status(ctx context.Context, noteID string) (appTemporal.EnhancementStatus, error)
}

type Handler struct {
	cfg       config.Config
	store     NoteStore
	revisions RevisionStore
	enhancer  Enhancer
}

type enhanceRequest struct {
	Operation  string `json:"operation"`
	PromptType string `json:"promptType"`
}

// enhanceResponse keeps rejected, suggestion and enhanced outcomes apart.
type enhanceResponse struct {
	NoteID     string               `json:"note_id"`
	WorkflowID string               `json:"workflow_id"`
	Status     domain.OutcomeStatus `json:"status,omitempty"`
	Outcome    *enhance.Outcome     `json:"outcome,omitempty"`
	Note       *domain.Note         `json:"note,omitempty"`
	RevisionID string               `json:"revision_id,omitempty"`
	Error      string               `json:"error,omitempty"`
}

func NewHandler(cfg config.Config, store NoteStore, revisions RevisionStore, enhancer Enhancer) *Handler {
	return &Handler{cfg: cfg, store: store, revisions: revisions, enhancer: enhancer}
}

func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	ops := make([]map[string]string, 0, len(domain.Operations))
	for _, op := range domain.Operations {
		ops = append(ops, map[string]string{"operation": string(op), "label": op.Label()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "note-enhancer",
		"description": "Notes with AI-assisted rewriting. Enhancement results are either applied, offered as a suggestion, or rejected with a reason.",
		"user_header": userIDHeader,
		"operations":  ops,
		"endpoints": []string{
			"GET /v1/notes",
			"POST /v1/notes",
			"GET /v1/notes/{noteId}",
			"PUT /v1/notes/{noteId}",
			"DELETE /v1/notes/{noteId}",
			"PATCH /v1/notes/{noteId}/position",
			"POST /v1/notes/{noteId}/enhance",
			"GET /v1/notes/{noteId}/enhance/status",
			"GET /v1/notes/{noteId}/enhancements",
			"GET /v1/notes/{noteId}/revisions",
			"POST /v1/notes/{noteId}/revisions/{revisionId}/restore",
		},
	})
}

func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	notes, err := h.store.ListNotes(ctx, userID(r.Context()))
	if err != nil {
		writeError(w, err, "failed to list notes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": notes})
}

func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req domain.CreateNoteInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if err := domain.ValidateCreateNote(req); err != nil {
		writeError(w, err, "")
		return
	}

	n := domain.Note{
		ID:      uuid.NewString(),
		UserID:  userID(r.Context()),
		Title:   strings.TrimSpace(req.Title),
		Content: req.Content,
	}
	if req.Position != nil {
		n.Position = *req.Position
	}
	created, err := h.store.CreateNote(ctx, n)
	if err != nil {
		writeError(w, err, "failed to create note")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request, noteID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	n, err := h.store.GetNote(ctx, userID(r.Context()), noteID)
	if err != nil {
		writeError(w, err, "failed to fetch note")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request, noteID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req domain.UpdateNoteInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if err := domain.ValidateUpdateNote(req); err != nil {
		writeError(w, err, "")
		return
	}

	current, err := h.store.GetNote(ctx, userID(r.Context()), noteID)
	if err != nil {
		writeError(w, err, "failed to fetch note")
		return
	}
	updated, err := h.store.UpdateNote(ctx, req.Apply(current))
	if err != nil {
		writeError(w, err, "failed to update note")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) UpdatePosition(w http.ResponseWriter, r *http.Request, noteID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var pos domain.Position
	if err := json.NewDecoder(r.Body).Decode(&pos); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	updated, err := h.store.UpdateNotePosition(ctx, userID(r.Context()), noteID, pos)
	if err != nil {
		writeError(w, err, "failed to update position")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request, noteID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.store.DeleteNote(ctx, userID(r.Context()), noteID); err != nil {
		writeError(w, err, "failed to delete note")
		return
	}
	if err := h.revisions.DeleteRevisions(ctx, noteID); err != nil {
		writeError(w, err, "failed to delete note revisions")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EnhanceNote starts the per-note enhancement workflow and waits briefly for
// its outcome. A second request for a note that is still being enhanced gets
// 409.
func (h *Handler) EnhanceNote(w http.ResponseWriter, r *http.Request, noteID string) {
	var req enhanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	raw := req.Operation
	if raw == "" {
		raw = req.PromptType
	}
	op, err := domain.ParseOperation(raw)
	if err != nil {
		writeError(w, err, "")
		return
	}

	user := userID(r.Context())
	lookupCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	_, err = h.store.GetNote(lookupCtx, user, noteID)
	cancel()
	if err != nil {
		writeError(w, err, "failed to fetch note")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.EnhanceWait()+10*time.Second)
	defer cancel()

	started, err := h.enhancer.Enhance(ctx, appTemporal.WorkflowInput{NoteID: noteID, UserID: user, Operation: op})
	if err != nil {
		writeError(w, err, "failed to enhance note")
		return
	}

	resp := enhanceResponse{NoteID: noteID, WorkflowID: started.WorkflowID}
	if !started.Done {
		writeJSON(w, http.StatusAccepted, resp)
		return
	}

	result := started.Result
	outcome := result.Outcome
	resp.Status = result.Status
	resp.Outcome = &outcome
	resp.Note = result.Note
	resp.RevisionID = result.RevisionID
	if result.Status == domain.OutcomeConflict {
		resp.Error = domain.ErrNoteChanged.Error()
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) EnhanceStatus(w http.ResponseWriter, r *http.Request, noteID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.store.GetNote(ctx, userID(r.Context()), noteID); err != nil {
		writeError(w, err, "failed to fetch note")
		return
	}
	status, err := h.enhancer.Status(ctx, noteID)
	if err != nil {
		writeError(w, err, "failed to query enhancement status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) ListEnhancements(w http.ResponseWriter, r *http.Request, noteID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.store.GetNote(ctx, userID(r.Context()), noteID); err != nil {
		writeError(w, err, "failed to fetch note")
		return
	}
	items, err := h.store.ListEnhancements(ctx, noteID)
	if err != nil {
		writeError(w, err, "failed to list enhancements")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) ListRevisions(w http.ResponseWriter, r *http.Request, noteID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.store.GetNote(ctx, userID(r.Context()), noteID); err != nil {
		writeError(w, err, "failed to fetch note")
		return
	}
	items, err := h.revisions.ListRevisions(ctx, noteID)
	if err != nil {
		writeError(w, err, "failed to list revisions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// RestoreRevision snapshots the current content before bringing the old
// revision back, so a restore can itself be undone.
func (h *Handler) RestoreRevision(w http.ResponseWriter, r *http.Request, noteID, revisionID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	current, err := h.store.GetNote(ctx, userID(r.Context()), noteID)
	if err != nil {
		writeError(w, err, "failed to fetch note")
		return
	}
	content, err := h.revisions.GetRevision(ctx, noteID, revisionID)
	if err != nil {
		if errors.Is(err, domain.ErrNoteNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "revision not found"})
			return
		}
		writeError(w, err, "failed to fetch revision")
		return
	}
	if _, err := h.revisions.PutRevision(ctx, noteID, current.Content); err != nil {
		writeError(w, err, "failed to snapshot note")
		return
	}

	current.Content = content
	updated, err := h.store.UpdateNote(ctx, current)
	if err != nil {
		writeError(w, err, "failed to restore revision")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeError maps domain errors to status codes. fallback replaces the
// message of unexpected errors.
func writeError(w http.ResponseWriter, err error, fallback string) {
	status := http.StatusInternalServerError
	msg := fallback
	switch {
	case errors.Is(err, domain.ErrInvalidNote), errors.Is(err, domain.ErrUnknownOperation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNoteNotFound), errors.Is(err, domain.ErrEnhancementNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrEnhancementInProgress), errors.Is(err, domain.ErrNoteChanged):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrGenerationFailed):
		status, msg = http.StatusBadGateway, err.Error()
	}
	if msg == "" {
		msg = err.Error()
	}
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

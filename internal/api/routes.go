package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if h.cfg.CORSOrigin != "" {
		r.Use(cors(h.cfg.CORSOrigin))
	}

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)

	r.Route("/v1/notes", func(r chi.Router) {
		r.Use(withUser)
		r.Get("/", h.ListNotes)
		r.Post("/", h.CreateNote)
		r.Get("/details", h.Details)
		r.Route("/{noteId}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				h.GetNote(w, r, chi.URLParam(r, "noteId"))
			})
			r.Put("/", func(w http.ResponseWriter, r *http.Request) {
				h.UpdateNote(w, r, chi.URLParam(r, "noteId"))
			})
			r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
				h.DeleteNote(w, r, chi.URLParam(r, "noteId"))
			})
			r.Patch("/position", func(w http.ResponseWriter, r *http.Request) {
				h.UpdatePosition(w, r, chi.URLParam(r, "noteId"))
			})
			r.Post("/enhance", func(w http.ResponseWriter, r *http.Request) {
				h.EnhanceNote(w, r, chi.URLParam(r, "noteId"))
			})
			r.Get("/enhance/status", func(w http.ResponseWriter, r *http.Request) {
				h.EnhanceStatus(w, r, chi.URLParam(r, "noteId"))
			})
			r.Get("/enhancements", func(w http.ResponseWriter, r *http.Request) {
				h.ListEnhancements(w, r, chi.URLParam(r, "noteId"))
			})
			r.Get("/revisions", func(w http.ResponseWriter, r *http.Request) {
				h.ListRevisions(w, r, chi.URLParam(r, "noteId"))
			})
			r.Post("/revisions/{revisionId}/restore", func(w http.ResponseWriter, r *http.Request) {
				h.RestoreRevision(w, r, chi.URLParam(r, "noteId"), chi.URLParam(r, "revisionId"))
			})
		})
	})

	return r
}

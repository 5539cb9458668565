package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"devlog-shortener/pkg/logging"
	"devlog-shortener/pkg/middleware"
	"devlog-shortener/pkg/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// ClickSubmitter hands a click to the background recorder without waiting.
type ClickSubmitter interface {
	Submit(code string) bool
}

type Handler struct {
	linkService *service.LinkService
	postService *service.PostService
	clicks      ClickSubmitter
	logger      *logging.Logger
}

// NewHandler builds the HTTP handlers. postService may be nil for the
// redirect-only server.
func NewHandler(linkService *service.LinkService, postService *service.PostService, clicks ClickSubmitter, logger *logging.Logger) *Handler {
	return &Handler{
		linkService: linkService,
		postService: postService,
		clicks:      clicks,
		logger:      logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// linkErrorResponse maps allocator errors to a status and a message fit for
// the form that submitted the URL.
func linkErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidURL):
		return http.StatusBadRequest, "Invalid URL format. Must start with http:// or https://"
	case errors.Is(err, service.ErrInvalidAlias):
		return http.StatusBadRequest, "Custom alias must be 3-20 alphanumeric characters (including _ and -)"
	case errors.Is(err, service.ErrAliasTaken):
		return http.StatusConflict, "This custom alias is already taken"
	case errors.Is(err, service.ErrRetryAllocation):
		return http.StatusConflict, "Short code was claimed by another request, please retry"
	case errors.Is(err, service.ErrAllocationExhausted):
		return http.StatusServiceUnavailable, "Failed to generate unique short code"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) linkError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := linkErrorResponse(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "link request failed", "error", err)
	}
	http.Error(w, msg, status)
}

func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req service.CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	resp, err := h.linkService.CreateLink(r.Context(), &req)
	if err != nil {
		h.linkError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Redirect answers immediately; the click is counted in the background and
// its outcome never reaches the visitor.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	target, err := h.linkService.Resolve(r.Context(), code)
	if err != nil {
		h.linkError(w, r, err)
		return
	}

	if h.clicks != nil {
		h.clicks.Submit(code)
	}

	w.Header().Set("X-Robots-Tag", "noindex")
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.linkService.GetLink(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.linkError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *Handler) GetLinkStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.linkService.GetLinkStats(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.linkError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.linkService.ListRecentLinks(r.Context())
	if err != nil {
		h.linkError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func useCommon(r chi.Router, logger *logging.Logger) {
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(logger))
}

// SetupRoutes mounts the full API. auth guards post ingestion when non-nil.
func SetupRoutes(r chi.Router, handler *Handler, auth *middleware.AuthMiddleware) {
	useCommon(r, handler.logger)

	r.Get("/health", handler.HealthCheck)
	r.Route("/v1/links", func(r chi.Router) {
		r.Post("/", handler.CreateLink)
		r.Get("/", handler.ListLinks)
		r.Get("/{code}", handler.GetLink)
		r.Get("/{code}/stats", handler.GetLinkStats)
	})
	if handler.postService != nil {
		r.Route("/api/posts", func(r chi.Router) {
			if auth != nil {
				r.With(auth.Authenticate).Post("/", handler.IngestPost)
			} else {
				r.Post("/", handler.IngestPost)
			}
			r.Get("/", handler.ListPosts)
			r.Get("/{slug}", handler.GetPost)
		})
	}
	r.Get("/{code}", handler.Redirect)
}

// SetupRedirectRoutes mounts only the redirect path and health check.
func SetupRedirectRoutes(r chi.Router, handler *Handler) {
	useCommon(r, handler.logger)

	r.Get("/health", handler.HealthCheck)
	r.Get("/{code}", handler.Redirect)
}

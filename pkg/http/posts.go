package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"devlog-shortener/pkg/middleware"
	"devlog-shortener/pkg/service"
	"devlog-shortener/pkg/storage"

	"github.com/go-chi/chi/v5"
)

const maxUploadSize = 32 << 20

type ingestResponse struct {
	Success bool                      `json:"success"`
	Result  *service.UpsertPostResult `json:"result"`
	Slug    string                    `json:"slug"`
}

// IngestPost accepts a JSON body or form data (optionally with an uploaded
// file supplying the content) and upserts the post by slug.
func (h *Handler) IngestPost(w http.ResponseWriter, r *http.Request) {
	var (
		in            service.IngestInput
		defaultSource storage.Source
		err           error
	)
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		in, err = decodeJSONIngest(r)
		defaultSource = storage.SourceAPI
	} else {
		in, err = decodeFormIngest(r)
		defaultSource = storage.SourceMarkdown
	}
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	req, err := service.BuildUpsertRequest(in, defaultSource)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingRequiredField):
			http.Error(w, "Missing title or content. Provide JSON with title/content or multipart form-data with title/file.", http.StatusBadRequest)
		case errors.Is(err, service.ErrEmptySlug):
			http.Error(w, "Unable to generate a valid slug.", http.StatusBadRequest)
		default:
			http.Error(w, "invalid request", http.StatusBadRequest)
		}
		return
	}

	result, err := h.postService.UpsertPost(r.Context(), req)
	if err != nil {
		h.logger.Error(r.Context(), "upsert post failed", "slug", req.Slug, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Info(r.Context(), "post ingested", "slug", req.Slug, "source", string(req.Source),
		"subject", middleware.GetSubFromContext(r.Context()))
	writeJSON(w, http.StatusOK, ingestResponse{Success: true, Result: result, Slug: req.Slug})
}

// decodeJSONIngest keeps only string-valued fields; anything else counts as
// absent.
func decodeJSONIngest(r *http.Request) (service.IngestInput, error) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return service.IngestInput{}, err
	}
	field := func(name string) *string {
		if s, ok := body[name].(string); ok {
			return &s
		}
		return nil
	}
	return service.IngestInput{
		Title:      field("title"),
		Summary:    field("summary"),
		Slug:       field("slug"),
		Content:    field("content"),
		AuthorType: field("authorType"),
		Source:     field("source"),
	}, nil
}

func decodeFormIngest(r *http.Request) (service.IngestInput, error) {
	err := r.ParseMultipartForm(maxUploadSize)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		return service.IngestInput{}, err
	}

	field := func(name string) *string {
		if values, ok := r.PostForm[name]; ok && len(values) > 0 {
			return &values[0]
		}
		return nil
	}
	in := service.IngestInput{
		Title:      field("title"),
		Summary:    field("summary"),
		Slug:       field("slug"),
		AuthorType: field("authorType"),
		Source:     field("source"),
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return service.IngestInput{}, err
		}
		content := string(data)
		in.Content = &content
		if in.Title == nil || *in.Title == "" {
			base := strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
			if base != "" {
				in.Title = &base
			}
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		in.Content = field("content")
	default:
		return service.IngestInput{}, err
	}

	return in, nil
}

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.ListPosts(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "list posts failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.postService.GetPost(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.logger.Error(r.Context(), "get post failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

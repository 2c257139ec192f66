package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/spherical/disclosure-extractor/internal/domain"
	"github.com/spherical/disclosure-extractor/internal/observability"
	"github.com/spherical/disclosure-extractor/internal/storage"
	"github.com/spherical/disclosure-extractor/internal/table"
)

// Handler serves the extraction routes.
type Handler struct {
	logger       *observability.Logger
	extractor    Extractor
	store        domain.RunStore
	maxBodyBytes int64
}

// NewHandler creates a new handler.
func NewHandler(logger *observability.Logger, cfg Config) *Handler {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Handler{
		logger:       logger.WithOperation("api"),
		extractor:    cfg.Extractor,
		store:        cfg.Store,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// ExtractRequestDTO is the body of POST /extract.
type ExtractRequestDTO struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Quarter string `json:"quarter"`
	DocType string `json:"doc_type"`
	Content string `json:"content"`
}

// ExtractResponseDTO is the answer of POST /extract.
type ExtractResponseDTO struct {
	RunID          string                   `json:"run_id"`
	Document       string                   `json:"document"`
	Records        []domain.ExtractedRecord `json:"records"`
	CategoryCounts map[domain.Category]int  `json:"category_counts"`
	Stats          domain.RunStats          `json:"stats"`
	Stored         bool                     `json:"stored"`
}

// RenderRequestDTO is the body of POST /render.
type RenderRequestDTO struct {
	Markup string `json:"markup"`
}

// RenderResponseDTO is the answer of POST /render.
type RenderResponseDTO struct {
	Text string `json:"text"`
}

// RecordsResponseDTO is the answer of GET /runs/{runID}/records.
type RecordsResponseDTO struct {
	RunID   string                   `json:"run_id"`
	Records []domain.ExtractedRecord `json:"records"`
}

// Extract handles POST /api/v1/extract.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ExtractRequestDTO
	if !h.decode(w, r, &req) {
		return
	}

	docType, err := domain.ParseDocType(req.DocType)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid doc_type", err.Error())
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		h.writeError(w, http.StatusBadRequest, "content is required", "")
		return
	}
	if req.Name == "" {
		req.Name = "request"
	}

	doc := domain.Document{
		Name:    req.Name,
		Company: req.Company,
		Quarter: req.Quarter,
		DocType: docType,
		Content: req.Content,
	}

	result, err := h.extractor.Process(ctx, doc, nil)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Str("document", doc.Name).Msg("extraction failed")
		h.writeDomainError(w, err)
		return
	}

	resp := ExtractResponseDTO{
		RunID:          result.RunID.String(),
		Document:       result.Document,
		Records:        result.Records,
		CategoryCounts: result.CategoryCounts,
		Stats:          result.Stats,
	}
	if h.store != nil {
		// a store failure must not lose the records already extracted
		if err := h.store.SaveRun(ctx, result); err != nil {
			h.logger.WithContext(ctx).Error().Err(err).Str("run_id", resp.RunID).Msg("failed to save run")
		} else {
			resp.Stored = true
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Render handles POST /api/v1/render.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	var req RenderRequestDTO
	if !h.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, RenderResponseDTO{Text: table.RenderHTML(req.Markup)})
}

// ListRecords handles GET /api/v1/runs/{runID}/records.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, http.StatusNotImplemented, "run storage is disabled", "")
		return
	}

	runID := chi.URLParam(r, "runID")
	records, err := h.store.ListRecords(r.Context(), runID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordsResponseDTO{RunID: runID, Records: records})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "")
			return false
		}
		h.writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "run not found", "")
	case domain.IsType(err, domain.ErrorTypeValidation):
		h.writeError(w, http.StatusBadRequest, "invalid request", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		h.writeError(w, http.StatusGatewayTimeout, "extraction timed out", "")
	case errors.Is(err, context.Canceled):
		h.writeError(w, http.StatusServiceUnavailable, "request cancelled", "")
	case domain.IsType(err, domain.ErrorTypeExtraction):
		h.writeError(w, http.StatusUnprocessableEntity, "extraction failed", err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{
		"error":   message,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

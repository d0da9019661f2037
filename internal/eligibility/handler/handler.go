package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"unimatch/internal/catalog"
	"unimatch/internal/eligibility/report"
	"unimatch/internal/eligibility/service"
	"unimatch/internal/subject"
	dErrors "unimatch/pkg/domain-errors"
	"unimatch/pkg/platform/httputil"
	"unimatch/pkg/requestcontext"
)

// DefaultMaxPageSize bounds page_size on listing endpoints.
const DefaultMaxPageSize = 100

// Service defines the interface for eligibility and catalog read operations.
type Service interface {
	Evaluate(ctx context.Context, req service.Request) (*service.Report, error)
	Catalog(ctx context.Context) (*service.CatalogInfo, error)
	Offerings(ctx context.Context, filter report.Filter, page, size int) (report.Page[catalog.Offering], error)
	Subjects(ctx context.Context) ([]subject.Definition, error)
}

// Handler wires eligibility endpoints to the eligibility service.
type Handler struct {
	service     Service
	logger      *slog.Logger
	maxPageSize int
}

// New constructs an eligibility handler with its dependencies.
func New(service Service, logger *slog.Logger, maxPageSize int) *Handler {
	if maxPageSize < 1 {
		maxPageSize = DefaultMaxPageSize
	}
	return &Handler{
		service:     service,
		logger:      logger,
		maxPageSize: maxPageSize,
	}
}

// Register mounts eligibility endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/eligibility/evaluate", h.HandleEvaluate)
	r.Get("/catalog", h.HandleCatalog)
	r.Get("/catalog/offerings", h.HandleOfferings)
	r.Get("/subjects", h.HandleSubjects)
}

// HandleEvaluate handles POST /eligibility/evaluate requests.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[EvaluateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rep, err := h.service.Evaluate(ctx, service.Request{
		Subjects: req.Entries(),
		SortBy:   req.ParsedSort(),
		Filter:   req.ParsedFilter(),
	})
	if err != nil {
		h.logFailure(ctx, "eligibility evaluation failed", err,
			"request_id", requestID,
			"subjects", len(req.Subjects),
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "eligibility request served",
		"request_id", requestID,
		"report_id", rep.ID,
		"eligible", rep.Summary.EligibleCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromReport(rep))
}

// HandleCatalog handles GET /catalog requests.
func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Catalog(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromCatalog(info))
}

// HandleOfferings handles GET /catalog/offerings?category=&institution=&page=&page_size=.
func (h *Handler) HandleOfferings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "page must be an integer"))
		return
	}
	size, err := intParam(q.Get("page_size"), h.maxPageSize)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "page_size must be an integer"))
		return
	}
	if size > h.maxPageSize {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "page_size must be at most "+strconv.Itoa(h.maxPageSize)))
		return
	}

	filter := report.Filter{Category: q.Get("category"), InstitutionCode: q.Get("institution")}
	result, err := h.service.Offerings(r.Context(), filter, page, size)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromOfferings(result))
}

// HandleSubjects handles GET /subjects requests.
func (h *Handler) HandleSubjects(w http.ResponseWriter, r *http.Request) {
	defs, err := h.service.Subjects(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SubjectsResponse{Subjects: defs, Bands: subject.Bands()})
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// logFailure logs expected client-side outcomes at info and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "error", err)
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeProfileIncomplete:
		h.logger.InfoContext(ctx, msg, args...)
	default:
		h.logger.ErrorContext(ctx, msg, args...)
	}
}

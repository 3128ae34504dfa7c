package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "deskreport/internal/errors"
	"deskreport/internal/middleware"
	"deskreport/internal/services"
	api "deskreport/pkg/contracts/api/v1"
	"deskreport/pkg/contracts/domain"
)

// maxListTake bounds the take parameter of run listings.
const maxListTake = 200

// RunResponse is the wire form of a run. The artifact bytes are never
// serialized; has_content tells clients whether a download exists.
type RunResponse struct {
	*domain.ReportRun
	HasContent bool `json:"has_content"`
}

func newRunResponse(run *domain.ReportRun) RunResponse {
	return RunResponse{ReportRun: run, HasContent: run.HasContent()}
}

// RunListResponse is returned by the run listing endpoint.
type RunListResponse struct {
	Report *domain.Report `json:"report"`
	Runs   []RunResponse  `json:"runs"`
}

// DefinitionResponse carries a built definition document.
type DefinitionResponse struct {
	Definition string `json:"definition"`
}

// ReportHandler handles report definition and run HTTP requests
type ReportHandler struct {
	service      ReportServiceInterface
	validator    *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler

	requestTimeout time.Duration
	runTimeout     time.Duration
}

// NewReportHandler creates a new report handler
func NewReportHandler(
	service ReportServiceInterface,
	validator *middleware.ValidationMiddleware,
	logger *slog.Logger,
	errorHandler *apierrors.ErrorHandler,
) *ReportHandler {
	return &ReportHandler{
		service:      service,
		validator:    validator,
		query:        middleware.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("handler", "report")),
		errorHandler: errorHandler,
	}
}

// WithTimeouts bounds request handling. Report execution gets runTimeout,
// every other route requestTimeout. Zero disables the bound.
func (h *ReportHandler) WithTimeouts(requestTimeout, runTimeout time.Duration) *ReportHandler {
	h.requestTimeout = requestTimeout
	h.runTimeout = runTimeout
	return h
}

// Routes returns the report routes. They are mounted under /api.
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	request := h.timeout(h.requestTimeout)

	r.Route("/reports", func(r chi.Router) {
		r.Use(request)
		r.Get("/sources", h.GetSources)
		r.With(h.validator.ValidateRequest).Post("/definitions/build", h.BuildDefinition)
		r.With(h.validator.ValidateRequest).Post("/definitions/parse", h.ParseDefinition)
	})

	r.Route("/workspaces/{workspaceID}", func(r chi.Router) {
		// Report execution can outlive ordinary requests
		r.With(h.timeout(h.runTimeout)).Post("/reports/{reportID}/runs", h.RunReport)
		r.With(request).Get("/reports/{reportID}/runs", h.ListRuns)
		r.With(request).Get("/runs/{runID}", h.GetRun)
		r.With(request).Get("/runs/{runID}/page", h.GetRunPage)
		r.With(request).Get("/runs/{runID}/download", h.Download)
	})

	return r
}

func (h *ReportHandler) timeout(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.Timeout(d, h.logger, h.errorHandler)
}

// GetSources handles GET /api/reports/sources
func (h *ReportHandler) GetSources(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Sources())
}

// BuildDefinition handles POST /api/reports/definitions/build
func (h *ReportHandler) BuildDefinition(w http.ResponseWriter, r *http.Request) {
	var req api.BuildDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	def, err := h.service.BuildDefinition(req.Source, req.Fields, req.Filters)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, DefinitionResponse{Definition: def})
}

// ParseDefinition handles POST /api/reports/definitions/parse
func (h *ReportHandler) ParseDefinition(w http.ResponseWriter, r *http.Request) {
	var req api.ParseDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	render.JSON(w, r, h.service.ParseDefinition(req.Definition))
}

// RunReport handles POST /api/workspaces/{workspaceID}/reports/{reportID}/runs
func (h *ReportHandler) RunReport(w http.ResponseWriter, r *http.Request) {
	workspaceID := chi.URLParam(r, "workspaceID")
	reportID := chi.URLParam(r, "reportID")

	run, err := h.service.RunReport(r.Context(), workspaceID, reportID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "report run finished",
		slog.String("workspace_id", workspaceID),
		slog.String("report_id", reportID),
		slog.String("run_id", run.ID),
		slog.String("status", string(run.Status)),
		slog.Int("row_count", run.RowCount))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, newRunResponse(run))
}

// ListRuns handles GET /api/workspaces/{workspaceID}/reports/{reportID}/runs
func (h *ReportHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	take, ok := h.query.ValidateInt(w, r, "take", 0, maxListTake, 0)
	if !ok {
		return
	}

	report, list, err := h.service.ListRuns(r.Context(), chi.URLParam(r, "workspaceID"), chi.URLParam(r, "reportID"), take)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	resp := RunListResponse{Report: report, Runs: make([]RunResponse, 0, len(list))}
	for _, run := range list {
		resp.Runs = append(resp.Runs, newRunResponse(run))
	}
	render.JSON(w, r, resp)
}

// GetRun handles GET /api/workspaces/{workspaceID}/runs/{runID}
func (h *ReportHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.GetRun(r.Context(), chi.URLParam(r, "workspaceID"), chi.URLParam(r, "runID"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, newRunResponse(run))
}

// GetRunPage handles GET /api/workspaces/{workspaceID}/runs/{runID}/page.
// Out-of-range page and take values are clamped by the service.
func (h *ReportHandler) GetRunPage(w http.ResponseWriter, r *http.Request) {
	page, ok := h.query.ValidateInt(w, r, "page", math.MinInt32, math.MaxInt32, 1)
	if !ok {
		return
	}
	take, ok := h.query.ValidateInt(w, r, "take", math.MinInt32, math.MaxInt32, 0)
	if !ok {
		return
	}

	result, err := h.service.GetRunPage(r.Context(), chi.URLParam(r, "workspaceID"), chi.URLParam(r, "runID"), page, take)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Download handles GET /api/workspaces/{workspaceID}/runs/{runID}/download
func (h *ReportHandler) Download(w http.ResponseWriter, r *http.Request) {
	format, ok := h.query.ValidateEnum(w, r, "type", []string{services.FormatCSV, services.FormatXLSX}, services.FormatCSV)
	if !ok {
		return
	}

	artifact, err := h.service.Artifact(r.Context(), chi.URLParam(r, "workspaceID"), chi.URLParam(r, "runID"), format)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Bytes)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Bytes); err != nil {
		h.logger.WarnContext(r.Context(), "artifact write failed",
			slog.String("file_name", artifact.FileName),
			slog.String("error", err.Error()))
	}
}

func (h *ReportHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrReportNotFound):
		h.errorHandler.HandleError(w, r, apierrors.ErrReportNotFound.WithDetails(resourceIDs(r)))
	case errors.Is(err, services.ErrRunNotFound):
		h.errorHandler.HandleError(w, r, apierrors.ErrRunNotFound.WithDetails(resourceIDs(r)))
	case errors.Is(err, services.ErrNoArtifact):
		h.errorHandler.HandleError(w, r, apierrors.ErrArtifactMissing.WithDetails(resourceIDs(r)))
	case errors.Is(err, services.ErrInvalidDefinition):
		h.errorHandler.HandleError(w, r, apierrors.ErrInvalidSource.WithDetails(err.Error()))
	case errors.Is(err, services.ErrUnsupportedFormat):
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("type", err.Error()))
	case errors.Is(err, services.ErrServiceUnavailable):
		h.errorHandler.HandleError(w, r, apierrors.ErrServiceUnavailable)
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}

// resourceIDs collects the route identifiers of r for not-found details.
func resourceIDs(r *http.Request) map[string]string {
	ids := make(map[string]string, 3)
	for param, key := range map[string]string{
		"workspaceID": "workspace_id",
		"reportID":    "report_id",
		"runID":       "run_id",
	} {
		if v := chi.URLParam(r, param); v != "" {
			ids[key] = v
		}
	}
	return ids
}

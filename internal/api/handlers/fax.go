// Package handlers provides HTTP handlers for the fax bridge API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/westmount/faxbridge/internal/api/middleware"
	"github.com/westmount/faxbridge/internal/fax"
	"github.com/westmount/faxbridge/internal/forms"
	"github.com/westmount/faxbridge/internal/hosting"
	"github.com/westmount/faxbridge/internal/infrastructure/postgres"
	"github.com/westmount/faxbridge/internal/submission"
	"github.com/westmount/faxbridge/pkg/circuitbreaker"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// StatusChecker looks up the provider's view of a dispatched fax
type StatusChecker interface {
	Status(ctx context.Context, faxID string) *fax.StatusResult
}

// FaxHandler handles form submission and fax endpoints
type FaxHandler struct {
	pipeline    *submission.Pipeline
	status      StatusChecker
	registry    *hosting.Registry       // nil unless self-hosting
	breakers    *circuitbreaker.Manager // nil unless the fallback chain is active
	audit       *postgres.DispatchLog   // nil without a database
	destination string
	logger      *zap.Logger
}

// NewFaxHandler creates a new handler. registry may be nil when documents
// are published to external hosts instead of served from this process.
func NewFaxHandler(pipeline *submission.Pipeline, status StatusChecker, registry *hosting.Registry,
	destination string, logger *zap.Logger) *FaxHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FaxHandler{
		pipeline:    pipeline,
		status:      status,
		registry:    registry,
		destination: destination,
		logger:      logger,
	}
}

// WithBreakers includes hosting provider breaker states in the health payload
func (h *FaxHandler) WithBreakers(breakers *circuitbreaker.Manager) *FaxHandler {
	h.breakers = breakers
	return h
}

// WithAudit enables the dispatch log listing endpoint
func (h *FaxHandler) WithAudit(audit *postgres.DispatchLog) *FaxHandler {
	h.audit = audit
	return h
}

// Routes returns the handler routes
func (h *FaxHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Health)
	r.Post("/send-fax", h.SendRefillFax)
	r.Post("/send-signup-fax", h.SendSignupFax)
	r.Post("/generate-pdf", h.GeneratePDF)
	r.Post("/send-fax-from-file", h.SendFaxFromFile)
	r.Get("/fax-status/{faxID}", h.FaxStatus)
	if h.registry != nil {
		r.Get("/files/{fileID}", h.ServeFile)
	}
	if h.audit != nil {
		r.Get("/dispatch-log", h.DispatchLog)
	}
	return r
}

// SendFaxResponse is the response for a successful dispatch
type SendFaxResponse struct {
	Status       string                 `json:"status"`
	Message      string                 `json:"message"`
	FaxID        string                 `json:"fax_id,omitempty"`
	FaxNumber    string                 `json:"fax_number"`
	ResponseData map[string]interface{} `json:"response_data,omitempty"`
}

// SendRefillFax handles POST /send-fax
func (h *FaxHandler) SendRefillFax(w http.ResponseWriter, r *http.Request) {
	h.handleSubmission(w, r, forms.FormRefillOrder)
}

// SendSignupFax handles POST /send-signup-fax
func (h *FaxHandler) SendSignupFax(w http.ResponseWriter, r *http.Request) {
	h.handleSubmission(w, r, forms.FormSignup)
}

func (h *FaxHandler) handleSubmission(w http.ResponseWriter, r *http.Request, ft forms.FormType) {
	ctx := r.Context()

	raw, err := decodePayload(r)
	if err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	outcome, err := h.pipeline.Process(ctx, ft, raw)
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}

	h.logger.Info("submission processed",
		zap.String("submission_id", outcome.SubmissionID),
		zap.String("form_type", string(ft)),
		zap.Bool("success", outcome.Dispatch.Success),
		zap.String("request_id", middleware.GetRequestID(ctx)),
	)

	h.writeDispatch(w, outcome.Dispatch)
}

// GeneratePDF handles POST /generate-pdf
func (h *FaxHandler) GeneratePDF(w http.ResponseWriter, r *http.Request) {
	raw, err := decodePayload(r)
	if err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	path, err := h.pipeline.GeneratePDF(r.Context(), forms.FormRefillOrder, raw)
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "PDF generated successfully",
		"path":    path,
	})
}

// SendFromFileRequest is the request body for faxing an existing PDF
type SendFromFileRequest struct {
	FilePath  string `json:"file_path"`
	FaxNumber string `json:"fax_number,omitempty"`
	FileName  string `json:"filename,omitempty"`
}

// SendFaxFromFile handles POST /send-fax-from-file
func (h *FaxHandler) SendFaxFromFile(w http.ResponseWriter, r *http.Request) {
	var req SendFromFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.FilePath == "" {
		h.jsonError(w, "file_path is required", http.StatusBadRequest)
		return
	}

	destination := req.FaxNumber
	if destination == "" {
		destination = h.destination
	}
	if !fax.ValidateDestination(destination) {
		h.jsonError(w, "invalid fax number", http.StatusBadRequest)
		return
	}

	outcome, err := h.pipeline.DispatchFile(r.Context(), req.FilePath, destination, req.FileName)
	if err != nil {
		var perr *hosting.PublishError
		if errors.As(err, &perr) {
			h.writeJSON(w, http.StatusBadGateway, map[string]string{
				"status": "error",
				"error":  "could not host document: " + perr.Error(),
			})
			return
		}
		// Missing or structurally invalid file
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeDispatch(w, outcome.Dispatch)
}

// FaxStatus handles GET /fax-status/{faxID}
func (h *FaxHandler) FaxStatus(w http.ResponseWriter, r *http.Request) {
	faxID := chi.URLParam(r, "faxID")

	result := h.status.Status(r.Context(), faxID)
	if !result.Success {
		h.writeJSON(w, http.StatusBadGateway, map[string]string{
			"status": "error",
			"error":  result.Err,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, result.Status)
}

// ServeFile handles GET /files/{fileID}
func (h *FaxHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	doc, err := h.registry.Get(fileID)
	if err != nil {
		h.jsonError(w, "file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `inline; filename="`+doc.Name+`"`)
	w.Write(doc.Data)
}

// DispatchLog handles GET /dispatch-log
func (h *FaxHandler) DispatchLog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	records, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("dispatch log query failed", zap.Error(err))
		h.jsonError(w, "failed to read dispatch log", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

// HealthResponse is the health payload
type HealthResponse struct {
	Status    string                        `json:"status"`
	Message   string                        `json:"message"`
	Version   string                        `json:"version"`
	Endpoints map[string]string             `json:"endpoints"`
	Hosting   []circuitbreaker.HealthStatus `json:"hosting_providers,omitempty"`
}

// Health handles GET /
func (h *FaxHandler) Health(w http.ResponseWriter, r *http.Request) {
	endpoints := map[string]string{
		"send_fax":           "POST /send-fax",
		"send_signup_fax":    "POST /send-signup-fax",
		"generate_pdf":       "POST /generate-pdf",
		"send_fax_from_file": "POST /send-fax-from-file",
		"fax_status":         "GET /fax-status/{faxID}",
		"health":             "GET /",
	}
	if h.registry != nil {
		endpoints["files"] = "GET /files/{fileID}"
	}
	if h.audit != nil {
		endpoints["dispatch_log"] = "GET /dispatch-log"
	}

	resp := HealthResponse{
		Status:    "ok",
		Message:   "Fax bridge is running",
		Version:   Version,
		Endpoints: endpoints,
	}
	if h.breakers != nil {
		resp.Hosting = h.breakers.GetHealthStatus()
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// writeDispatch maps a dispatch result onto the wire: the provider's
// acceptance is a success response, its rejection a gateway error.
func (h *FaxHandler) writeDispatch(w http.ResponseWriter, d *fax.DispatchResult) {
	if !d.Success {
		h.writeJSON(w, http.StatusBadGateway, map[string]string{
			"status":  "error",
			"message": "PDF generated but fax failed",
			"error":   d.Err,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, SendFaxResponse{
		Status:       "success",
		Message:      "Fax sent successfully",
		FaxID:        d.FaxID,
		FaxNumber:    d.Destination,
		ResponseData: d.RawResponse,
	})
}

func (h *FaxHandler) writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *forms.ValidationError
	if errors.As(err, &verr) {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":    "missing required fields",
			"missing":  verr.Missing,
			"received": verr.Raw,
		})
		return
	}

	var perr *hosting.PublishError
	if errors.As(err, &perr) {
		h.writeJSON(w, http.StatusBadGateway, map[string]string{
			"status": "error",
			"error":  "could not host generated document: " + perr.Error(),
		})
		return
	}

	h.logger.Error("pipeline failed",
		zap.Error(err),
		zap.String("request_id", middleware.GetRequestID(r.Context())),
	)
	h.jsonError(w, "internal server error", http.StatusInternalServerError)
}

// decodePayload accepts a JSON object or a form-encoded body. Webflow posts
// both depending on form configuration; repeated form keys keep the first
// value.
func decodePayload(r *http.Request) (map[string]interface{}, error) {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var raw map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, err
		}
		return raw, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	raw := make(map[string]interface{}, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			raw[key] = values[0]
		}
	}
	return raw, nil
}

func (h *FaxHandler) writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (h *FaxHandler) jsonError(w http.ResponseWriter, message string, code int) {
	h.writeJSON(w, code, map[string]string{"error": message})
}

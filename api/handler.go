package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/apflow/invoice-match-service/internal/ai"
	"github.com/apflow/invoice-match-service/internal/db"
	"github.com/apflow/invoice-match-service/internal/document"
	"github.com/apflow/invoice-match-service/internal/models"
	"github.com/apflow/invoice-match-service/internal/pipeline"
	"github.com/apflow/invoice-match-service/internal/storage"
)

// MaxUploadSize caps uploaded documents at 10MB.
const MaxUploadSize = 10 << 20

// Handler wires the HTTP surface to the extraction and matching services.
type Handler struct {
	config    *models.Config
	log       *logrus.Logger
	startTime time.Time
}

// NewHandler creates the API handler.
func NewHandler(config *models.Config, log *logrus.Logger) *Handler {
	return &Handler{
		config:    config,
		log:       log,
		startTime: time.Now(),
	}
}

// SetupRoutes registers all endpoints on a new router.
func (h *Handler) SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/extract-and-match", h.ExtractAndMatch).Methods(http.MethodPost)
	api.HandleFunc("/purchase-orders/import", h.ImportPurchaseOrders).Methods(http.MethodPost)
	api.HandleFunc("/purchase-orders", h.ListPurchaseOrders).Methods(http.MethodGet)
	api.HandleFunc("/invoices", h.ListInvoices).Methods(http.MethodGet)
	return r
}

// ExtractResponse is the terminal payload of one extract-and-match run.
type ExtractResponse struct {
	JobID             string            `json:"job_id,omitempty"`
	Status            string            `json:"status"`
	AIServiceUsed     string            `json:"ai_service_used"`
	ProcessingSeconds float64           `json:"processing_time_seconds"`
	DocumentURL       string            `json:"document_url,omitempty"`
	Results           []pipeline.Result `json:"results"`
}

// ExtractAndMatch accepts one document upload, extracts its invoices, matches
// them against the PO pool, and returns the reconciled results.
func (h *Handler) ExtractAndMatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	ext := storage.GetFileExtension(header.Filename)
	if !document.SupportedExtension(ext) {
		h.sendError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type %s", ext))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "reading upload: "+err.Error())
		return
	}

	provider := h.selectProvider(r.FormValue("provider"))

	var jobRepo *db.JobRepo
	var job *models.ExtractionJob
	if db.Pool != nil {
		jobRepo = db.NewJobRepo(db.Pool)
		job, err = jobRepo.Create(r.Context(), header.Filename, ext, provider.Name())
		if err != nil {
			h.log.WithError(err).Warn("could not record extraction job")
			job = nil
		}
	}

	invoices, err := h.extractInvoices(r, data, ext, provider)
	if err != nil {
		h.failJob(r, jobRepo, job, err)
		h.sendError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	results, err := h.runPipeline(r, invoices)
	if err != nil {
		h.failJob(r, jobRepo, job, err)
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	documentURL := h.archiveDocument(r, header.Filename, data, header.Header.Get("Content-Type"))

	elapsed := time.Since(start).Seconds()
	jobID := ""
	if jobRepo != nil && job != nil {
		jobID = job.ID.String()
		if err := jobRepo.SaveResults(r.Context(), job.ID, results); err != nil {
			h.log.WithError(err).Warn("could not save invoice results")
		}
		if err := jobRepo.Complete(r.Context(), job.ID, documentURL, elapsed); err != nil {
			h.log.WithError(err).Warn("could not complete extraction job")
		}
	}

	h.sendJSON(w, http.StatusOK, ExtractResponse{
		JobID:             jobID,
		Status:            "completed",
		AIServiceUsed:     provider.Name(),
		ProcessingSeconds: elapsed,
		DocumentURL:       documentURL,
		Results:           results,
	})
}

// extractInvoices runs the extraction step appropriate for the file type:
// CSVs are parsed directly, documents go through the vision model.
func (h *Handler) extractInvoices(r *http.Request, data []byte, ext string, provider ai.Provider) ([]models.ExtractedInvoice, error) {
	if ext == ".csv" {
		return document.ParseInvoices(bytes.NewReader(data))
	}

	images, err := document.ToPageImages(data, ext)
	if err != nil {
		return nil, err
	}
	return ai.NewExtractor(provider).Extract(r.Context(), images)
}

// runPipeline matches extracted invoices against the PO pool. Without a
// database every invoice comes back unmatched, which keeps the endpoint
// usable in extraction-only deployments.
func (h *Handler) runPipeline(r *http.Request, invoices []models.ExtractedInvoice) ([]pipeline.Result, error) {
	var repo pipeline.PORepository
	if db.Pool != nil {
		repo = db.NewPurchaseOrderRepo(db.Pool)
	} else {
		repo = pipeline.NewStaticRepository(nil)
	}
	return pipeline.New(repo, h.config.Matching, h.log).ProcessBatch(r.Context(), invoices)
}

// archiveDocument stores the upload in object storage. Failures are logged
// and swallowed: archiving never blocks the pipeline result.
func (h *Handler) archiveDocument(r *http.Request, filename string, data []byte, contentType string) string {
	if storage.Client == nil {
		return ""
	}
	objectName, err := storage.UploadDocument(r.Context(), filename, data, contentType)
	if err != nil {
		h.log.WithError(err).Warn("could not archive document")
		return ""
	}
	url, err := storage.GetPresignedURL(r.Context(), objectName)
	if err != nil {
		h.log.WithError(err).Warn("could not presign document url")
		return objectName
	}
	return url
}

// selectProvider picks the AI backend: an explicit request override, then the
// configured default. A provider without an API key degrades to the mock so
// the pipeline stays runnable in local setups.
func (h *Handler) selectProvider(requested string) ai.Provider {
	name := requested
	if name == "" {
		name = h.config.AI.DefaultProvider
	}
	switch name {
	case "openai":
		if h.config.AI.OpenAI.APIKey != "" {
			return ai.NewOpenAIProvider(h.config.AI.OpenAI.APIKey, h.config.AI.OpenAI.BaseURL, h.config.AI.OpenAI.Model)
		}
	case "gemini":
		if h.config.AI.Gemini.APIKey != "" {
			return ai.NewGeminiProvider(h.config.AI.Gemini.APIKey, h.config.AI.Gemini.Model)
		}
	}
	return ai.NewMockProvider()
}

// ImportPurchaseOrders bulk-loads purchase orders from an uploaded CSV.
func (h *Handler) ImportPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	orders, err := document.ParsePurchaseOrders(file)
	if err != nil {
		h.sendError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	written, err := db.NewPurchaseOrderRepo(db.Pool).BulkUpsert(r.Context(), orders)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "imported",
		"imported": written,
	})
}

// ListPurchaseOrders returns the current PO pool.
func (h *Handler) ListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}
	orders, err := db.NewPurchaseOrderRepo(db.Pool).List(r.Context(), 200)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"purchase_orders": orders,
		"count":           len(orders),
	})
}

// ListInvoices returns recently processed invoice results.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}
	results, err := db.NewJobRepo(db.Pool).RecentResults(r.Context(), 50)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"invoices": results,
		"count":    len(results),
	})
}

// ServiceStatus reports one dependency's availability.
type ServiceStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health reports service and dependency status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	database := ServiceStatus{Status: "ok"}
	if db.Pool == nil {
		database = ServiceStatus{Status: "unavailable", Message: "database not configured"}
	} else if err := db.Pool.Ping(r.Context()); err != nil {
		database = ServiceStatus{Status: "error", Message: err.Error()}
	}

	objectStorage := ServiceStatus{Status: "ok"}
	if storage.Client == nil {
		objectStorage = ServiceStatus{Status: "unavailable", Message: "object storage not configured"}
	}

	aiStatus := ServiceStatus{Status: "ok", Message: h.config.AI.DefaultProvider}
	if h.config.AI.OpenAI.APIKey == "" && h.config.AI.Gemini.APIKey == "" {
		aiStatus = ServiceStatus{Status: "mock", Message: "no AI provider configured"}
	}

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": time.Since(h.startTime).Seconds(),
		"database":       database,
		"storage":        objectStorage,
		"ai":             aiStatus,
	})
}

func (h *Handler) sendJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.WithError(err).Error("encoding response")
	}
}

func (h *Handler) sendError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) failJob(r *http.Request, repo *db.JobRepo, job *models.ExtractionJob, cause error) {
	if repo == nil || job == nil {
		return
	}
	if err := repo.Fail(r.Context(), job.ID, cause.Error()); err != nil {
		h.log.WithError(err).Warn("could not mark job failed")
	}
}

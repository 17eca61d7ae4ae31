package handler

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"printkeeper/internal/domain"
	"printkeeper/internal/registry"
	"printkeeper/internal/repository"
	"printkeeper/internal/service"
)

// DefaultPrinter is used when a print request names no printer
const DefaultPrinter = "printer_1"

// maxRawBody caps a raw job sent in the request body
const maxRawBody = 4 << 20

// RegistryReader exposes the identity registry read-only
type RegistryReader interface {
	Snapshot() registry.Records
}

// Deps are the services behind the printer API. History may be nil.
type Deps struct {
	Queues     service.QueueManager
	Readiness  service.ReadinessChecker
	Dispatcher service.JobSubmitter
	Reconciler service.Reconciler
	Registry   RegistryReader
	History    repository.History
}

// PrinterHandler handles printer API requests
type PrinterHandler struct {
	deps      Deps
	policy    service.RetryPolicy
	remediate bool
	logger    zerolog.Logger
}

// NewPrinterHandler creates a new printer handler. Print requests use policy;
// readiness checks remediate by default when remediate is set.
func NewPrinterHandler(deps Deps, policy service.RetryPolicy, remediate bool, logger zerolog.Logger) *PrinterHandler {
	return &PrinterHandler{
		deps:      deps,
		policy:    policy,
		remediate: remediate,
		logger:    logger.With().Str("component", "http").Logger(),
	}
}

// Register adds the printer routes to mux
func (h *PrinterHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Health)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /printers", h.ListPrinters)
	mux.HandleFunc("POST /print-raw", h.PrintRaw)

	mux.HandleFunc("GET /api/printers/{name}/readiness", h.Readiness)
	mux.HandleFunc("GET /api/printers/{name}/jobs", h.ListJobs)
	mux.HandleFunc("DELETE /api/jobs/{id}", h.CancelJob)
	mux.HandleFunc("POST /api/discover", h.Discover)
	mux.HandleFunc("GET /api/registry", h.Registry)
	mux.HandleFunc("GET /api/history", h.History)
}

// Health reports liveness and the configured queues
func (h *PrinterHandler) Health(w http.ResponseWriter, r *http.Request) {
	queues, err := h.deps.Queues.ListQueues(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list queues")
		writeError(w, "Spooler unavailable", err.Error(), "SpoolerError", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, map[string]interface{}{
		"ok":       true,
		"status":   "running",
		"printers": queueNames(queues),
	}, http.StatusOK)
}

// ListPrinters returns every configured queue with its target and state
func (h *PrinterHandler) ListPrinters(w http.ResponseWriter, r *http.Request) {
	queues, err := h.deps.Queues.ListQueues(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list queues")
		writeError(w, "Spooler unavailable", err.Error(), "SpoolerError", http.StatusServiceUnavailable)
		return
	}

	type printer struct {
		domain.Queue
		Device domain.DeviceURI `json:"device"`
	}
	printers := make([]printer, 0, len(queues))
	for _, q := range queues {
		printers = append(printers, printer{Queue: q, Device: q.Device()})
	}

	writeJSON(w, map[string]interface{}{
		"success":  true,
		"printers": printers,
	}, http.StatusOK)
}

// PrintRaw sends raw device bytes to a printer through the dispatcher.
// The job comes from the base64 or hex query parameter, else the body.
func (h *PrinterHandler) PrintRaw(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	printer := query.Get("printer")
	if alias := query.Get("printer_name"); alias != "" {
		printer = alias
	}
	if printer == "" {
		printer = DefaultPrinter
	}

	data, err := rawPayload(r)
	if err != nil {
		writeError(w, err.Error(), "", "ValidationError", http.StatusBadRequest)
		return
	}

	title := query.Get("title")
	if title == "" {
		title = "print-raw"
	}

	jobID, err := h.deps.Dispatcher.Submit(r.Context(), service.JobRequest{
		Queue: printer,
		Title: title,
		Data:  data,
	}, h.policy)
	if err != nil {
		h.writeDispatchError(w, err)
		return
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Raw data sent to %s", printer),
		"printer": printer,
		"queue":   printer,
		"job_id":  jobID,
		"bytes":   len(data),
	}, http.StatusOK)
}

func rawPayload(r *http.Request) ([]byte, error) {
	query := r.URL.Query()
	if b64 := query.Get("base64"); b64 != "" {
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
		if err != nil {
			return nil, fmt.Errorf("Invalid data encoding: %v", err)
		}
		return data, nil
	}
	if hx := query.Get("hex"); hx != "" {
		data, err := hex.DecodeString(strings.TrimSpace(hx))
		if err != nil {
			return nil, fmt.Errorf("Invalid data encoding: %v", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxRawBody+1))
	if err != nil {
		return nil, fmt.Errorf("Failed to read request body: %v", err)
	}
	if len(data) > maxRawBody {
		return nil, fmt.Errorf("Request body exceeds %d bytes", maxRawBody)
	}
	if len(data) == 0 {
		return nil, errors.New("Provide 'base64' or 'hex' parameter")
	}
	return data, nil
}

func (h *PrinterHandler) writeDispatchError(w http.ResponseWriter, err error) {
	var derr *domain.DispatchError
	if !errors.As(err, &derr) {
		writeError(w, err.Error(), "", "ValidationError", http.StatusBadRequest)
		return
	}

	status := http.StatusServiceUnavailable
	switch derr.Reason() {
	case domain.ReasonNotFound:
		status = http.StatusNotFound
	case "":
		// aborted before any attempt, usually a client disconnect
		status = http.StatusRequestTimeout
	}
	writeErrorResponse(w, ErrorResponse{
		Error:  derr.Error(),
		Detail: derr.Summary(),
		Type:   "DispatchError",
		Reason: string(derr.Reason()),
	}, status)
}

// Readiness checks whether a printer can take a job now.
// ?remediate=true|false overrides the configured default.
func (h *PrinterHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	remediate := h.remediate
	if v := r.URL.Query().Get("remediate"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, "Invalid remediate parameter", err.Error(), "ValidationError", http.StatusBadRequest)
			return
		}
		remediate = parsed
	}

	readiness := h.deps.Readiness.Check(r.Context(), name, remediate)
	status := http.StatusOK
	if !readiness.Ready {
		status = http.StatusServiceUnavailable
		if readiness.Reason == domain.ReasonNotFound {
			status = http.StatusNotFound
		}
	}
	writeJSON(w, readiness, status)
}

// ListJobs returns the queued jobs of one printer
func (h *PrinterHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	jobs, err := h.deps.Queues.Jobs(r.Context(), name)
	if err != nil {
		h.logger.Error().Err(err).Str("queue", name).Msg("Failed to list jobs")
		writeError(w, "Failed to list jobs", err.Error(), "SpoolerError", http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"printer": name,
		"jobs":    jobs,
	}, http.StatusOK)
}

// CancelJob cancels a queued job
func (h *PrinterHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.deps.Queues.Cancel(r.Context(), id); err != nil {
		h.logger.Error().Err(err).Str("job_id", id).Msg("Failed to cancel job")
		writeError(w, "Failed to cancel job", err.Error(), "SpoolerError", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"job_id":  id,
	}, http.StatusOK)
}

// Discover runs a reconciliation pass and returns its report
func (h *PrinterHandler) Discover(w http.ResponseWriter, r *http.Request) {
	// the pass outlives a dropped client so the queue set is never left half done
	ctx := context.WithoutCancel(r.Context())
	report, err := h.deps.Reconciler.Run(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Discovery failed")
		writeError(w, "Discovery failed", err.Error(), "DiscoveryError", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"summary": report.Summary(),
		"report":  report,
	}, http.StatusOK)
}

// registryEntry is an identity record as served over HTTP
type registryEntry struct {
	MAC       domain.HardwareAddress `json:"mac"`
	Name      string                 `json:"name"`
	LastIP    string                 `json:"last_ip"`
	LastURI   string                 `json:"last_uri"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// Registry returns every identity record, ordered by queue name
func (h *PrinterHandler) Registry(w http.ResponseWriter, r *http.Request) {
	records := h.deps.Registry.Snapshot()
	entries := make([]registryEntry, 0, len(records))
	for mac, rec := range records {
		entries = append(entries, registryEntry{
			MAC:       mac,
			Name:      rec.Name,
			LastIP:    rec.LastIP,
			LastURI:   rec.LastURI,
			FirstSeen: rec.FirstSeen,
			LastSeen:  rec.LastSeen,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].MAC < entries[j].MAC
	})

	writeJSON(w, map[string]interface{}{
		"success": true,
		"records": entries,
	}, http.StatusOK)
}

// History returns recent reconciliation actions and dispatches.
// ?limit bounds each list; ?queue filters dispatches.
func (h *PrinterHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.deps.History == nil {
		writeError(w, "History disabled", "", "HistoryError", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, "Invalid limit parameter", v, "ValidationError", http.StatusBadRequest)
			return
		}
		limit = n
	}

	actions, err := h.deps.History.ListActions(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list actions")
		writeError(w, "Failed to read history", err.Error(), "HistoryError", http.StatusInternalServerError)
		return
	}
	dispatches, err := h.deps.History.ListDispatches(r.Context(), r.URL.Query().Get("queue"), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list dispatches")
		writeError(w, "Failed to read history", err.Error(), "HistoryError", http.StatusInternalServerError)
		return
	}
	if actions == nil {
		actions = []domain.ActionEntry{}
	}
	if dispatches == nil {
		dispatches = []domain.DispatchEntry{}
	}

	writeJSON(w, map[string]interface{}{
		"success":    true,
		"actions":    actions,
		"dispatches": dispatches,
	}, http.StatusOK)
}

func queueNames(queues []domain.Queue) []string {
	names := make([]string, 0, len(queues))
	for _, q := range queues {
		names = append(names, q.Name)
	}
	return names
}

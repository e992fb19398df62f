package batches

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"gitlab.com/dutbench.net/internal/core/ports/primary"
	"gitlab.com/dutbench.net/internal/core/services/report"
	"gitlab.com/dutbench.net/internal/core/services/status"
	"gitlab.com/dutbench.net/internal/handlers/response"
	"gitlab.com/dutbench.net/internal/static/errs"
)

// BatchHandler serves batch progress and reports
type BatchHandler struct {
	statusService status.IStatusService
	reportService report.IReportService
	logger        primary.Logger
}

func NewBatchHandler(statusService status.IStatusService, reportService report.IReportService, logger primary.Logger) *BatchHandler {
	return &BatchHandler{
		statusService: statusService,
		reportService: reportService,
		logger:        logger,
	}
}

// RegisterRoutes registers the batch routes on router
func (h *BatchHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/batches/latest", h.GetLatest).Methods("GET")
	router.HandleFunc("/api/batches/{batchId}/states", h.GetStates).Methods("GET")
	router.HandleFunc("/api/batches/{batchId}/report", h.GetReport).Methods("GET")
}

type LatestBatchResponse struct {
	BatchID uuid.UUID `json:"batch_id"`
}

func (h *BatchHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	id, err := h.statusService.LatestBatchID(r.Context())
	if err != nil {
		h.writeError(w, "Failed to get latest batch", err)
		return
	}

	response.WriteSuccess(w, LatestBatchResponse{BatchID: id})
}

func (h *BatchHandler) GetStates(w http.ResponseWriter, r *http.Request) {
	batchID, ok := parseBatchID(w, r)
	if !ok {
		return
	}

	states, err := h.statusService.RunStates(r.Context(), batchID)
	if err != nil {
		h.writeError(w, "Failed to get run states", err)
		return
	}

	response.WriteSuccess(w, states)
}

// GetReport returns the aggregated report. ?format=text renders the table.
func (h *BatchHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	batchID, ok := parseBatchID(w, r)
	if !ok {
		return
	}

	rep, err := h.statusService.BatchReport(r.Context(), batchID)
	if err != nil {
		h.writeError(w, "Failed to build report", err)
		return
	}

	if r.URL.Query().Get("format") != "text" {
		response.WriteSuccess(w, rep)
		return
	}

	var buf bytes.Buffer
	if err := h.reportService.Render(&buf, rep); err != nil {
		h.writeError(w, "Failed to render report", err)
		return
	}
	response.WriteText(w, buf.Bytes())
}

func parseBatchID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["batchId"])
	if err != nil {
		response.WriteError(w, response.ErrorMessage{
			Message:    "Invalid batch id",
			StatusCode: http.StatusBadRequest,
		})
		return uuid.Nil, false
	}
	return id, true
}

func (h *BatchHandler) writeError(w http.ResponseWriter, message string, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrBatchNotFound):
		code = http.StatusNotFound
		message = errs.ErrBatchNotFound.Error()
	case errors.Is(err, status.ErrStoreDisabled):
		code = http.StatusServiceUnavailable
		message = status.ErrStoreDisabled.Error()
	default:
		h.logger.Error(message, "error", err)
	}

	response.WriteError(w, response.ErrorMessage{Message: message, StatusCode: code})
}

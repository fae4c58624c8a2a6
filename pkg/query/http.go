package query

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/smarthealth/platform/pkg/common/logger"
	"github.com/smarthealth/platform/pkg/observability/metrics"
)

type HTTPHandler struct {
	service *Service
	history AuditStore
	maxBody int64
}

func NewHTTPHandler(service *Service, history AuditStore, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, history: history, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/api/v1/query", h.handleQuery).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/history/{session_id}", h.handleHistory).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleQuery(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid query payload")
		writeJSON(w, http.StatusBadRequest, newError(CodeValidationError, "invalid request body", err.Error()))
		return
	}

	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, newError(CodeValidationError, "invalid query request", err.Error()))
		return
	}

	start := time.Now()
	outcome := h.service.AnswerQuery(r.Context(), req)
	latency := time.Since(start).Milliseconds()

	switch o := outcome.(type) {
	case Success:
		metrics.ObserveQuery("success", o.Metadata.FallbackMode, latency)
		writeJSON(w, http.StatusOK, o)
	case NoData:
		fallback := o.Metadata != nil && o.Metadata.FallbackMode
		metrics.ObserveQuery("no_data", fallback, latency)
		writeJSON(w, http.StatusOK, o)
	case Error:
		metrics.ObserveQuery("error", false, latency)
		writeJSON(w, errorStatusCode(o.Error.Code), o)
	default:
		metrics.ObserveQuery("error", false, latency)
		writeJSON(w, http.StatusInternalServerError, newError(CodeInternalError, "unknown outcome", ""))
	}
}

func (h *HTTPHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusNotFound, newError(CodeInternalError, "history is not enabled", ""))
		return
	}

	sessionID := mux.Vars(r)["session_id"]
	entries, err := h.history.BySession(r.Context(), sessionID)
	if err != nil {
		logger.Log.WithError(err).Error("failed to fetch session history")
		writeJSON(w, http.StatusInternalServerError, newError(CodeDatabaseError, "error fetching session history", ""))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"entries":    entries,
	})
}

func errorStatusCode(code string) int {
	switch code {
	case CodePatientNotFound:
		return http.StatusNotFound
	case CodeValidationError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

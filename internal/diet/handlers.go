package diet

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zombor/diet-tracker/internal/capture"
	"github.com/zombor/diet-tracker/internal/nutrition"
	"github.com/zombor/diet-tracker/internal/scanning"
)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// scanStatus maps a scan failure to an HTTP status. Transport failures of
// the OCR or completion service are upstream problems, not client errors.
func scanStatus(err error) int {
	var transport *scanning.TransportError
	switch {
	case errors.Is(err, ErrScanInFlight), errors.Is(err, capture.ErrDeviceBusy):
		return http.StatusConflict
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &transport):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

// handleScan accepts a captured image payload and runs the scan pipeline.
// Success returns the extracted candidates; a model response that failed to
// parse comes back with the raw text in the items field so the user can see
// what went wrong.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImageData string `json:"imageData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ImageData == "" {
		writeError(w, http.StatusBadRequest, "Missing imageData")
		return
	}

	result, err := s.service.ScanReceipt(r.Context(), req.ImageData)
	if err != nil {
		slog.Error("Error scanning receipt", "error", err)
		writeError(w, scanStatus(err), err.Error())
		return
	}

	if !result.Parsed() {
		writeJSON(w, http.StatusOK, map[string]any{"items": result.Raw})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": result.Items})
}

// handleCaptureScan grabs a frame from the configured camera and scans it.
func (s *Server) handleCaptureScan(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.CaptureAndScan(r.Context())
	if err != nil {
		slog.Error("Error capturing receipt", "error", err)
		writeError(w, scanStatus(err), err.Error())
		return
	}

	if !result.Parsed() {
		writeJSON(w, http.StatusOK, map[string]any{"items": result.Raw})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": result.Items})
}

// handleListCandidates returns the pending review queue
func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.PendingCandidates())
}

// handleApprove approves one pending candidate by index
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := s.service.ApproveCandidate(req.Index)
	if err != nil {
		if errors.Is(err, ErrNoSuchCandidate) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		slog.Error("Error approving candidate", "index", req.Index, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// handleApproveAll approves every pending candidate
func (s *Server) handleApproveAll(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ApproveAllCandidates()
	if err != nil {
		slog.Error("Error approving candidates", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, items)
}

// handleDismiss removes a pending candidate by index, or by name for the
// legacy review UI
func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int   `json:"index"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var err error
	switch {
	case req.Index != nil:
		err = s.service.DismissCandidate(*req.Index)
	case req.Name != "":
		err = s.service.DismissCandidateByName(req.Name)
	default:
		writeError(w, http.StatusBadRequest, "Candidate index or name required")
		return
	}
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEdit mutates one field of a pending candidate
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int    `json:"index"`
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.service.EditCandidate(req.Index, req.Field, req.Value); err != nil {
		if errors.Is(err, ErrNoSuchCandidate) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListItems returns all ledger items
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListItems()
	if err != nil {
		slog.Error("Error listing items", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleAddItem creates a ledger item from a manual entry
func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var item FoodItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	saved, err := s.service.AddItem(item)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// handleDeleteItem deletes a ledger item
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Item ID required")
		return
	}
	if err := s.service.DeleteItem(id); err != nil {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetTargets returns the daily nutrition targets
func (s *Server) handleGetTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := s.service.GetTargets()
	if err != nil {
		slog.Error("Error getting targets", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, targets)
}

// handleSetTargets saves new daily nutrition targets
func (s *Server) handleSetTargets(w http.ResponseWriter, r *http.Request) {
	var targets nutrition.Targets
	if err := json.NewDecoder(r.Body).Decode(&targets); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.service.SetTargets(targets); err != nil {
		slog.Error("Error saving targets", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, targets)
}

// handleGetBudget returns the weekly budget
func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := s.service.GetBudget()
	if err != nil {
		slog.Error("Error getting budget", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"budget": budget})
}

// handleSetBudget saves a new weekly budget
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Budget float64 `json:"budget"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.service.SetBudget(req.Budget); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"budget": req.Budget})
}

// handleBudgetStatus returns spending over the trailing week
func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.BudgetStatus()
	if err != nil {
		slog.Error("Error computing budget status", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleProgress returns the daily nutrient progress
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.service.DailyProgress(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// handleListNotifications returns all in-app notifications
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := s.service.ListNotifications()
	if err != nil {
		slog.Error("Error listing notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// handleMarkNotificationRead flags one notification as read
func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Notification ID required")
		return
	}
	if err := s.service.MarkNotificationRead(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearNotifications removes all notifications
func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearNotifications(); err != nil {
		slog.Error("Error clearing notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

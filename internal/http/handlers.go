package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"finsight/internal/analysis"
	"finsight/internal/core"
)

type alertsResponse struct {
	Alerts []core.Alert `json:"alerts"`
}

type patternsResponse struct {
	Patterns []core.RecurrencePattern `json:"patterns"`
	Groups   []core.VendorGroup       `json:"groups"`
	Monthly  []core.MonthlyPoint      `json:"monthly"`
}

type correlationResponse struct {
	core.CorrelationResult
	Strength string `json:"strength"`
}

// handleAlerts returns the current alerts, optionally filtered by
// ?severity= and minus any ids listed in ?dismiss=. Dismissal only
// affects this rendering; the next analysis pass recomputes the same
// alert ids from the data.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	severity := strings.TrimSpace(r.URL.Query().Get("severity"))
	if severity != "" {
		switch core.Severity(severity) {
		case core.SeverityCritical, core.SeverityWarning, core.SeverityInfo:
		default:
			writeError(w, http.StatusBadRequest, "invalid severity: "+severity)
			return
		}
	}

	dismissed := make(map[string]bool)
	for _, id := range strings.Split(r.URL.Query().Get("dismiss"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			dismissed[id] = true
		}
	}

	report, err := s.snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot error", "error", err)
		writeError(w, http.StatusInternalServerError, "analysis unavailable")
		return
	}

	alerts := make([]core.Alert, 0, len(report.Alerts))
	for _, alert := range report.Alerts {
		if dismissed[alert.ID] {
			continue
		}
		if severity != "" && alert.Severity != core.Severity(severity) {
			continue
		}
		alerts = append(alerts, alert)
	}

	writeJSON(w, http.StatusOK, alertsResponse{Alerts: alerts})
}

// handlePatterns returns the recurrence patterns with their vendor groups
// and the monthly income/expense series.
func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	report, err := s.snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot error", "error", err)
		writeError(w, http.StatusInternalServerError, "analysis unavailable")
		return
	}

	resp := patternsResponse{
		Patterns: report.Patterns,
		Groups:   report.Groups,
		Monthly:  report.Monthly,
	}
	if resp.Patterns == nil {
		resp.Patterns = []core.RecurrencePattern{}
	}
	if resp.Groups == nil {
		resp.Groups = []core.VendorGroup{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCorrelation returns the income/expense correlation, or 422 when
// fewer than two months of data exist.
func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	report, err := s.snapshot(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Snapshot error", "error", err)
		writeError(w, http.StatusInternalServerError, "analysis unavailable")
		return
	}

	if report.Correlation == nil {
		writeError(w, http.StatusUnprocessableEntity, "insufficient data: need at least two months of transactions")
		return
	}

	writeJSON(w, http.StatusOK, correlationResponse{
		CorrelationResult: *report.Correlation,
		Strength:          analysis.StrengthLabel(report.Correlation.R),
	})
}

// handleReimbursement matches ?category= against ?client='s analyzed
// contracts. 204 means no contracts exist to judge against.
func (s *Server) handleReimbursement(w http.ResponseWriter, r *http.Request) {
	category := sanitizeInput(r.URL.Query().Get("category"))
	clientID := sanitizeInput(r.URL.Query().Get("client"))
	if category == "" || clientID == "" {
		writeError(w, http.StatusBadRequest, "category and client query parameters are required")
		return
	}

	contracts, err := s.contracts.ListContracts(r.Context(), clientID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List contracts error", "error", err, "client", clientID)
		writeError(w, http.StatusInternalServerError, "contract source unavailable")
		return
	}

	suggestion := analysis.SuggestReimbursement(category, contracts, s.terms)
	if suggestion == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, suggestion)
}

// handleWorkflow resolves one pipeline's progress from its current counts.
func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	id := core.WorkflowID(r.PathValue("id"))
	if !id.Valid() {
		writeError(w, http.StatusNotFound, "unknown workflow: "+string(id))
		return
	}

	counts, err := s.workflows.WorkflowCounts(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Workflow counts error", "error", err, "workflow", id)
		writeError(w, http.StatusInternalServerError, "workflow source unavailable")
		return
	}

	writeJSON(w, http.StatusOK, analysis.ResolveWorkflow(id, counts))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

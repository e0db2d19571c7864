package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/expensescan/expensescan/internal/expense"
	"github.com/expensescan/expensescan/internal/fault"
)

// maxUploadSize bounds multipart uploads; high-resolution phone photos of
// multi-page receipts can run large.
const maxUploadSize = int64(50 << 20) // 50MB

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// writeJSON encodes v with the JSON content type
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError maps a pipeline failure onto an HTTP status and a JSON body
// that tells clients whether retrying the same upload could help.
func writeError(w http.ResponseWriter, err error) {
	setCORSHeaders(w)

	status := http.StatusInternalServerError
	retryable := false

	var fe *fault.Error
	if errors.As(err, &fe) {
		retryable = fe.Retryable()
		switch fe.Kind {
		case fault.Precondition:
			status = http.StatusServiceUnavailable
		case fault.Invalid:
			status = http.StatusBadRequest
		case fault.Unparseable:
			status = http.StatusUnprocessableEntity
		case fault.Transport:
			status = http.StatusBadGateway
		case fault.ModelRejection:
			status = http.StatusBadGateway
			if fe.RateLimited {
				status = http.StatusTooManyRequests
			}
		case fault.Persistence:
			status = http.StatusInternalServerError
		}
	}

	writeJSON(w, status, map[string]any{
		"error":     err.Error(),
		"retryable": retryable,
	})
}

// handleListExpenses returns all expenses, optionally filtered by merchant
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	var (
		expenses []*expense.Expense
		err      error
	)
	if merchant := r.URL.Query().Get("merchant"); merchant != "" {
		expenses, err = s.expenses.SearchByMerchant(merchant)
	} else {
		expenses, err = s.expenses.ListExpenses()
	}
	if err != nil {
		slog.Error("Error listing expenses", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Ensure we always return an array, not nil
	if expenses == nil {
		expenses = []*expense.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

// handleUploadExpense accepts a receipt file and runs the extraction
// pipeline over every page it contains.
func (s *Server) handleUploadExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		setCORSHeaders(w)
		msg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			msg = "File is too large. Maximum size is 50MB."
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		setCORSHeaders(w)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file provided"})
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		setCORSHeaders(w)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "File is too large. Maximum size is 50MB."})
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		setCORSHeaders(w)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error reading file"})
		return
	}

	contentType := sniffContentType(header.Header.Get("Content-Type"), header.Filename)

	result, err := s.expenses.ProcessUpload(r.Context(), header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error processing upload", "filename", header.Filename, "error", err)
		writeError(w, err)
		return
	}

	// Pages can fail independently; the batch result carries per-page
	// outcomes, so partial success is still a 201.
	status := http.StatusCreated
	if result.Processed == 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

// sniffContentType falls back to the filename extension when the form part
// carries no usable content type.
func sniffContentType(declared, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(declared))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleGetExpense returns a single expense
func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Expense ID required", http.StatusBadRequest)
		return
	}
	exp, err := s.expenses.GetExpense(id)
	if err != nil {
		corsError(w, "Expense not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, exp)
}

// handleUpdateExpense replaces the editable fields of an expense
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Expense ID required", http.StatusBadRequest)
		return
	}

	var exp expense.Expense
	if err := json.NewDecoder(r.Body).Decode(&exp); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	exp.ID = id

	updated, err := s.expenses.UpdateExpense(&exp)
	if err != nil {
		slog.Error("Error updating expense", "id", id, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// handleGetExpenseFile returns the source media for an expense
func (s *Server) handleGetExpenseFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Expense ID required", http.StatusBadRequest)
		return
	}
	data, contentType, err := s.expenses.GetExpenseFile(id)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteExpense deletes an expense
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Expense ID required", http.StatusBadRequest)
		return
	}
	if err := s.expenses.DeleteExpense(id); err != nil {
		slog.Error("Error deleting expense", "id", id, "error", err)
		corsError(w, "Error deleting expense", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleMonthlySummary reports totals for one calendar month. Defaults to
// the current month when no query parameters are given.
func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year, month := now.Year(), now.Month()

	if q := r.URL.Query().Get("year"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil {
			corsError(w, "Invalid year", http.StatusBadRequest)
			return
		}
		year = parsed
	}
	if q := r.URL.Query().Get("month"); q != "" {
		parsed, err := strconv.Atoi(q)
		if err != nil || parsed < 1 || parsed > 12 {
			corsError(w, "Invalid month", http.StatusBadRequest)
			return
		}
		month = time.Month(parsed)
	}

	summary, err := s.expenses.Monthly(year, month)
	if err != nil {
		slog.Error("Error building monthly summary", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleCategoryTotals returns per-category totals across all expenses
func (s *Server) handleCategoryTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.expenses.CategoryTotals()
	if err != nil {
		slog.Error("Error computing category totals", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if totals == nil {
		totals = []expense.CategoryTotal{}
	}
	writeJSON(w, http.StatusOK, totals)
}

// handleGetInsights returns the cached snapshot with its freshness band
func (s *Server) handleGetInsights(w http.ResponseWriter, r *http.Request) {
	snapshot, freshness, err := s.insights.Current(time.Now())
	if err != nil {
		slog.Error("Error reading insights", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if snapshot == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "No insights generated yet"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot":  snapshot,
		"freshness": freshness,
	})
}

// handleRefreshInsights regenerates the snapshot on demand
func (s *Server) handleRefreshInsights(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.insights.ForceRefresh(r.Context())
	if err != nil {
		slog.Error("Error refreshing insights", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot":  snapshot,
		"freshness": snapshot.FreshnessAt(time.Now()),
	})
}

package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gofinances/internal/dashboard"
	"gofinances/internal/events"
	"gofinances/internal/log"
	"gofinances/internal/services"
)

const readyTimeout = 2 * time.Second

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type indexData struct {
	Profile
	Status string
	View   dashboard.View
	Error  bool
}

// handleIndex announces that the dashboard became visible, which reloads
// it, and renders whatever state results.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	// the reload must finish even if the client goes away mid-request
	s.deps.Bus.Publish(context.WithoutCancel(r.Context()), events.Visible)
	state := s.deps.Screen.Snapshot()

	data := indexData{
		Profile: s.deps.Profile,
		Status:  state.Status.String(),
		View:    state.View,
		Error:   state.Err != nil,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Dashboard template execution failed",
			log.NewFields().WithError(err).WithOperation(log.OpRender).ToSlice()...)
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// handleDashboard returns a freshly loaded view as JSON.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Loader.Load(r.Context())
	if err != nil {
		// stored data is not client input, so a bad record is a server error
		s.logger.ErrorContext(r.Context(), "Dashboard load failed",
			log.NewFields().WithError(err).WithOperation(log.OpLoad).WithErrorType(log.ErrorTypeDecode).ToSlice()...)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to load transactions"})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if s.deps.Transactions == nil {
		http.Error(w, "read-only", http.StatusMethodNotAllowed)
		return
	}

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	in, err := ParseNewTransaction(p)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
		return
	}

	t, err := s.deps.Transactions.AddTransaction(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err, log.OpCreate)
		return
	}
	writeJSON(w, http.StatusCreated, transactionBody(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if s.deps.Transactions == nil {
		http.Error(w, "read-only", http.StatusMethodNotAllowed)
		return
	}

	id := sanitizeInput(chi.URLParam(r, "id"))
	if err := s.deps.Transactions.DeleteTransaction(r.Context(), id); err != nil {
		s.writeError(w, r, err, log.OpDelete)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError maps err to a status code and logs server-side failures.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case services.IsValidationError(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, services.ErrTransactionNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "transaction not found"})
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(),
			"Request failed", err, "", op,
			log.NewFields().WithErrorType(log.ErrorTypeInternal))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

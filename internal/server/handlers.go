package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ppiankov/firecheck/internal/model"
	"github.com/ppiankov/firecheck/internal/store"
	"github.com/ppiankov/firecheck/internal/worker"
)

type checkRequest struct {
	Statement string `json:"statement" validate:"required,max=10000"`
}

type batchRequest struct {
	Statements []worker.Statement `json:"statements" validate:"required,min=1,dive"`
}

type batchResponse struct {
	Summary  worker.BatchSummary        `json:"summary"`
	Outcomes []*worker.StatementOutcome `json:"outcomes"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.Statement = strings.TrimSpace(req.Statement)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	result, err := s.checker.Check(ctx, req.Statement)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		s.logger.Warn("check failed", "error", err)
		writeError(w, status, "check_failed", err.Error())
		return
	}

	s.save(r.Context(), result)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}
	for i := range req.Statements {
		req.Statements[i].Text = strings.TrimSpace(req.Statements[i].Text)
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if s.cfg.MaxBatchSize > 0 && len(req.Statements) > s.cfg.MaxBatchSize {
		writeError(w, http.StatusRequestEntityTooLarge, "batch_too_large",
			"batch exceeds "+strconv.Itoa(s.cfg.MaxBatchSize)+" statements")
		return
	}
	for i := range req.Statements {
		if req.Statements[i].ID == "" {
			req.Statements[i].ID = "item-" + strconv.Itoa(i+1)
		}
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	processor := worker.NewBatchProcessor(s.checker, s.workers,
		worker.WithLogger(s.logger),
		worker.WithOutcomeHook(func(o *worker.StatementOutcome) { s.save(r.Context(), o.Result) }))
	outcomes := processor.ProcessStatements(ctx, req.Statements)

	writeJSON(w, http.StatusOK, batchResponse{
		Summary:  worker.Summarize(outcomes),
		Outcomes: outcomes,
	})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "store_disabled", "run store is disabled")
		return
	}

	opts := store.ListOptions{}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		opts.Limit = n
	}
	if v := r.URL.Query().Get("verdict"); v != "" {
		verdict, ok := model.ParseOverallVerdict(v)
		if !ok && !strings.EqualFold(v, string(model.OverallError)) {
			writeError(w, http.StatusBadRequest, "invalid_request", "unknown verdict "+v)
			return
		}
		if !ok {
			verdict = model.OverallError
		}
		opts.Verdict = verdict
	}

	runs, err := s.runs.List(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "store_disabled", "run store is disabled")
		return
	}

	result, err := s.runs.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) save(ctx context.Context, result *model.StatementResult) {
	if s.runs == nil || result == nil {
		return
	}
	if err := s.runs.Save(context.WithoutCancel(ctx), result); err != nil {
		s.logger.Warn("failed to save run", "run_id", result.RunID, "error", err)
	}
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	if decoder.More() {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must contain a single JSON object")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

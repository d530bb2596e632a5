package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/michaelbrown/agentrun/internal/runner"
	"github.com/michaelbrown/agentrun/internal/storage"
)

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// --- Health ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Run ---

type runRequest struct {
	Code string `json:"code"`
}

type runResponse struct {
	Output string `json:"output"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	output, status := s.execute(r.Context(), req.Code)
	if status == "" {
		writeError(w, http.StatusBadGateway, output)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Output: output})
}

// execute runs the snippet, records history and metrics, and returns the
// outcome. An empty status signals a fatal container failure; the outcome
// then carries the error text.
func (s *Server) execute(ctx context.Context, code string) (string, runner.Status) {
	report, err := s.runner.Run(ctx, code)
	if err != nil {
		log.Printf("server: execute failed: %v", err)
		return "container unreachable: " + err.Error(), ""
	}

	s.metrics.observe(string(report.Status), report.Duration)
	s.recordRun(ctx, code, report)
	return report.Outcome, report.Status
}

func (s *Server) recordRun(ctx context.Context, code string, report runner.Report) {
	if s.store == nil {
		return
	}
	sum := sha256.Sum256([]byte(code))
	run := &storage.Run{
		ID:         uuid.New().String(),
		SourceHash: hex.EncodeToString(sum[:]),
		SourceLen:  len(code),
		Status:     storage.RunStatus(report.Status),
		Outcome:    report.Outcome,
		Duration:   report.Duration,
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		log.Printf("server: recording run: %v", err)
	}
}

// --- Run history ---

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run history disabled")
		return
	}

	opts := storage.RunListOptions{}
	if status := r.URL.Query().Get("status"); status != "" {
		opts.Status = storage.RunStatus(status)
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			opts.Limit = n
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			opts.Offset = n
		}
	}

	runs, err := s.store.ListRuns(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if runs == nil {
		runs = []storage.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "run history disabled")
		return
	}

	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "run not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, run)
}

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/voltlab/distflow/pkg/errors"
	"github.com/voltlab/distflow/pkg/network"
	"github.com/voltlab/distflow/pkg/phase"
	"github.com/voltlab/distflow/pkg/pipeline"
)

// solveRequest is the body of POST /v1/solve: a full network model plus
// the solve options that make sense over the wire. Loads, when present,
// replace the model's own loads so one model can be evaluated against
// many load cases.
type solveRequest struct {
	Model       *network.Model `json:"model"`
	Loads       []network.Load `json:"loads,omitempty"`
	RootAliases []string       `json:"root_aliases,omitempty"`
	RootVoltage phase.Vector3  `json:"root_voltage,omitempty"`
	Refresh     bool           `json:"refresh,omitempty"`
}

// solveResponse mirrors pipeline.Result minus the echoed model.
type solveResponse struct {
	RunID        string             `json:"run_id"`
	Root         string             `json:"root"`
	RootFound    bool               `json:"root_found"`
	Nodes        []string           `json:"nodes"`
	Voltages     []phase.Vector3    `json:"voltages"`
	SkippedLoads []string           `json:"skipped_loads,omitempty"`
	CacheInfo    pipeline.CacheInfo `json:"cache_info"`
}

type errorResponse struct {
	Code  errors.Code `json:"code"`
	Error string      `json:"error"`
}

// writeError maps structured error codes to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat:
		status = http.StatusBadRequest
	case errors.ErrCodeInvalidModel, errors.ErrCodeSolveFailed:
		status = http.StatusUnprocessableEntity
	case errors.ErrCodeNotFound, errors.ErrCodeModelNotFound:
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorResponse{Code: errors.GetCode(err), Error: errors.UserMessage(err)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid JSON"))
		return
	}
	if req.Model == nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "model is required"))
		return
	}
	if req.Loads != nil {
		req.Model.Loads = req.Loads
	}
	if err := req.Model.Validate(); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidModel, err, "model rejected"))
		return
	}

	logger := s.logger.With("request_id", requestIDFrom(r.Context()))
	res, err := s.runner.Solve(r.Context(), req.Model, pipeline.Options{
		RootAliases: req.RootAliases,
		RootVoltage: req.RootVoltage,
		Refresh:     req.Refresh,
		Logger:      logger,
	})
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeSolveFailed, err, "solve failed"))
		return
	}

	if s.store != nil {
		if err := s.store.SaveRun(r.Context(), res); err != nil {
			logger.Error("recording run failed", "run_id", res.RunID, "err", err)
		}
	}

	writeJSON(w, http.StatusOK, solveResponse{
		RunID:        res.RunID,
		Root:         res.Root,
		RootFound:    res.RootFound,
		Nodes:        res.Nodes,
		Voltages:     res.Voltages,
		SkippedLoads: res.SkippedLoads,
		CacheInfo:    res.CacheInfo,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, errors.New(errors.ErrCodeNotFound, "run history requires a store"))
		return
	}

	limit := int64(20)
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.ParseInt(q, 10, 64)
		if err != nil || n < 1 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	runs, err := s.store.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeStore, err, "list runs"))
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

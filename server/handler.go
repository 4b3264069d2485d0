package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	coderun "github.com/qiskit-studio/coderun"
)

const maxRequestBodyBytes = 1 << 20 // 1MB

// runRequest is the parsed body of POST /run. InputValue is a pointer so a
// missing field can be told apart from an empty snippet, which is valid.
type runRequest struct {
	InputValue *string `json:"input_value"`
	IBMToken   string  `json:"ibm_token"`
	Channel    string  `json:"channel"`
	Instance   string  `json:"instance"`
	Region     string  `json:"region"`
}

// runResponse is the JSON body returned by POST /run.
type runResponse struct {
	Output string `json:"output"`
}

func (g *Gateway) handleRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req runRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.InputValue == nil {
		writeError(w, http.StatusUnprocessableEntity, "input_value is required")
		return
	}

	var cred *coderun.Credential
	if req.IBMToken != "" {
		cred = &coderun.Credential{
			Token:    req.IBMToken,
			Channel:  req.Channel,
			Instance: req.Instance,
			Region:   req.Region,
		}
	}

	res := g.rewriter.Apply(*req.InputValue, cred)
	if g.onRewrite != nil {
		g.onRewrite(r.Context(), res.Kind.String())
	}
	g.logger.Info("server: run accepted",
		"rule", res.Kind.String(), "code_bytes", len(res.Code), "has_token", cred.Valid())

	// Acquire an execution slot. Waiters queue; a client that disconnects
	// while waiting gives up its place.
	select {
	case g.sem <- struct{}{}:
		defer func() { <-g.sem }()
	case <-r.Context().Done():
		writeError(w, http.StatusServiceUnavailable, "client disconnected while queued")
		return
	}

	// The execution context is detached from the request so a client
	// disconnect mid-run does not kill the work, but the wall-clock budget
	// still does.
	execCtx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	done := make(chan coderun.Outcome, 1)
	go func() { done <- g.runner.Execute(execCtx, res.Code) }()

	var outcome coderun.Outcome
	select {
	case outcome = <-done:
	case <-execCtx.Done():
		// cancel (via defer) kills the subprocess or container.
		outcome = coderun.Outcome{
			Output:   fmt.Sprintf("Error: Code execution timed out after %.0f minutes.", g.timeout.Minutes()),
			TimedOut: true,
			Elapsed:  g.timeout,
		}
	}

	g.recordAsync(res.Kind.String(), outcome)
	writeJSON(w, http.StatusOK, runResponse{Output: outcome.Output})
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "mode": g.mode.String()})
}

func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	if g.history == nil {
		writeError(w, http.StatusNotFound, "history disabled")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	recs, err := g.history.Recent(r.Context(), limit)
	if err != nil {
		g.logger.Error("server: history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	if recs == nil {
		recs = []coderun.ExecutionRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (g *Gateway) handleSearch(w http.ResponseWriter, r *http.Request) {
	if g.docs == nil {
		writeError(w, http.StatusNotFound, "search disabled")
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	chunks, err := g.docs.SearchChunks(r.Context(), query, limit)
	if err != nil {
		g.logger.Error("server: chunk search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if chunks == nil {
		chunks = []coderun.Chunk{}
	}
	writeJSON(w, http.StatusOK, chunks)
}

// recordAsync appends an audit row without blocking the response. A store
// failure is logged and otherwise ignored.
func (g *Gateway) recordAsync(rule string, out coderun.Outcome) {
	if g.history == nil {
		return
	}
	rec := coderun.ExecutionRecord{
		ID:          coderun.NewID(),
		Mode:        g.mode.String(),
		Rule:        rule,
		Fault:       out.Fault,
		TimedOut:    out.TimedOut,
		ElapsedMS:   out.Elapsed.Milliseconds(),
		OutputBytes: len(out.Output),
		CreatedAt:   coderun.NowUnix(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.history.Record(ctx, rec); err != nil {
			g.logger.Error("server: audit record failed", "id", rec.ID, "error", err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

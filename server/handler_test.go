package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	coderun "github.com/qiskit-studio/coderun"
	"github.com/qiskit-studio/coderun/rewrite"
)

// stubRunner echoes the code it receives so tests can observe what the
// gateway handed to the sandbox.
type stubRunner struct {
	mu    sync.Mutex
	calls []string
	delay time.Duration
	out   string
}

func (s *stubRunner) Execute(ctx context.Context, code string) coderun.Outcome {
	s.mu.Lock()
	s.calls = append(s.calls, code)
	s.mu.Unlock()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return coderun.Outcome{Output: "Error: Code execution timed out after 0 minutes.", TimedOut: true}
		}
	}
	if s.out != "" {
		return coderun.Outcome{Output: s.out}
	}
	return coderun.Outcome{Output: code}
}

func newTestGateway(runner *stubRunner, opts ...Option) *Gateway {
	base := []Option{WithTimeout(5 * time.Second)}
	return New(coderun.ModeLocal, rewrite.New(coderun.ModeLocal), runner, append(base, opts...)...)
}

func postRun(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandleRun_Success(t *testing.T) {
	runner := &stubRunner{out: "Hello World!\n5\n"}
	h := newTestGateway(runner).Handler()

	rr := postRun(t, h, `{"input_value": "print('Hello World!')\nprint(2+3)"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Output string `json:"output"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if !strings.Contains(resp.Output, "Hello World!") || !strings.Contains(resp.Output, "5") {
		t.Errorf("output = %q", resp.Output)
	}
}

func TestHandleRun_MalformedJSON(t *testing.T) {
	h := newTestGateway(&stubRunner{}).Handler()

	for _, body := range []string{"{not json", "", "[1,2,3"} {
		rr := postRun(t, h, body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rr.Code)
		}
	}
}

func TestHandleRun_MissingInputValue(t *testing.T) {
	h := newTestGateway(&stubRunner{}).Handler()

	rr := postRun(t, h, `{"ibm_token": "tok"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rr.Code)
	}
}

func TestHandleRun_EmptyInputValueIsValid(t *testing.T) {
	runner := &stubRunner{out: "Code executed successfully (no output)"}
	h := newTestGateway(runner).Handler()

	rr := postRun(t, h, `{"input_value": ""}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Code executed successfully (no output)") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestHandleRun_CredentialInjectedBeforeExecution(t *testing.T) {
	runner := &stubRunner{}
	h := newTestGateway(runner).Handler()

	body := `{"input_value": "service = QiskitRuntimeService()", "ibm_token": "tok-1", "channel": "ibm_cloud"}`
	rr := postRun(t, h, body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.calls) != 1 {
		t.Fatalf("runner called %d times", len(runner.calls))
	}
	got := runner.calls[0]
	if strings.Contains(got, "QiskitRuntimeService()") {
		t.Errorf("bare service call reached the sandbox: %q", got)
	}
	if !strings.Contains(got, `token="tok-1"`) || !strings.Contains(got, `channel="ibm_cloud"`) {
		t.Errorf("credential not injected: %q", got)
	}
}

func TestHandleRun_TimeoutSynthesized(t *testing.T) {
	runner := &stubRunner{delay: 10 * time.Second}
	h := newTestGateway(runner, WithTimeout(100*time.Millisecond)).Handler()

	rr := postRun(t, h, `{"input_value": "slow"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("timeouts must still answer 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "timed out") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestHandleRun_MethodNotAllowed(t *testing.T) {
	h := newTestGateway(&stubRunner{}).Handler()
	req := httptest.NewRequest(http.MethodGet, "/run", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	h := newTestGateway(&stubRunner{}).Handler()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "ready") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := newTestGateway(&stubRunner{}).Handler()
	req := httptest.NewRequest(http.MethodOptions, "/run", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestHistoryEndpoint_DisabledWithoutStore(t *testing.T) {
	h := newTestGateway(&stubRunner{}).Handler()
	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestRewriteHook_ReceivesRuleKind(t *testing.T) {
	var mu sync.Mutex
	var kinds []string
	hook := func(_ context.Context, kind string) {
		mu.Lock()
		kinds = append(kinds, kind)
		mu.Unlock()
	}
	h := newTestGateway(&stubRunner{}, WithRewriteHook(hook)).Handler()

	postRun(t, h, `{"input_value": "service = QiskitRuntimeService()", "ibm_token": "tok"}`)
	postRun(t, h, `{"input_value": "print('hi')"}`)

	mu.Lock()
	defer mu.Unlock()
	if len(kinds) != 2 || kinds[0] != "generic_inject" || kinds[1] != "no_match" {
		t.Errorf("kinds = %v", kinds)
	}
}

func TestPanicRecovery(t *testing.T) {
	g := newTestGateway(&stubRunner{})
	mux := http.NewServeMux()
	mux.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") })
	h := g.withCORS(g.withRecover(mux))

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}

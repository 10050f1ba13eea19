package controller_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"codecheck/internal/execution"
	"codecheck/internal/validation"
	"codecheck/internal/validation/controller"
	"codecheck/internal/validation/service"
	appErr "codecheck/pkg/errors"

	"github.com/gin-gonic/gin"
)

type echoRunner struct {
	stdout string
}

func (r *echoRunner) Run(ctx context.Context, sub execution.Submission) (execution.Outcome, error) {
	return execution.Outcome{StatusID: execution.StatusAccepted, Stdout: r.stdout}, nil
}

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func newTestRouter(t *testing.T, runner execution.Runner, pingers map[string]controller.Pinger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, err := service.NewValidationService(service.Config{
		Orchestrator: validation.NewOrchestrator(validation.Config{Runner: runner}),
		Runner:       runner,
	})
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	router := gin.New()
	controller.NewValidationController(svc, pingers).RegisterRoutes(router)
	return router
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestValidateEndpoint(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, &echoRunner{stdout: "hello\n"}, nil)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/validate", `{
		"source_code": "print('hello')",
		"language_id": 71,
		"test_cases": [{"kind": "output_exact", "expected_output": "hello"}]
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}
	if env.Code != int(appErr.Success) {
		t.Fatalf("unexpected envelope code: %d", env.Code)
	}

	var out service.ValidateOutput
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data failed: %v", err)
	}
	if out.BatchID == "" || !out.Verdict.AllPassed {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestValidateEndpointRejectsMalformedBody(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, &echoRunner{}, nil)

	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/validate", `{"language_id": "not-a-number"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRunEndpoint(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, &echoRunner{stdout: "42\n"}, nil)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/run", `{
		"source_code": "print(42)",
		"language_id": 71
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}

	var outcome execution.Outcome
	if err := json.Unmarshal(env.Data, &outcome); err != nil {
		t.Fatalf("decode data failed: %v", err)
	}
	if outcome.Stdout != "42\n" {
		t.Fatalf("unexpected stdout: %q", outcome.Stdout)
	}
}

func TestHealthzReportsDependencies(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, &echoRunner{}, map[string]controller.Pinger{
		"redis": fakePinger{},
		"kafka": fakePinger{err: errors.New("broker down")},
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for degraded service, got %d", rec.Code)
	}
	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if body.Status != "degraded" {
		t.Fatalf("unexpected status: %q", body.Status)
	}
	if body.Dependencies["redis"] != "ok" || !strings.Contains(body.Dependencies["kafka"], "broker down") {
		t.Fatalf("unexpected dependencies: %+v", body.Dependencies)
	}
}

func TestHealthzAllHealthy(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, &echoRunner{}, map[string]controller.Pinger{"redis": fakePinger{}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

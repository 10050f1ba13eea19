package controller

import (
	"context"
	"net/http"
	"time"

	"codecheck/internal/validation/model"
	"codecheck/internal/validation/service"
	appErr "codecheck/pkg/errors"
	"codecheck/pkg/utils/logger"
	"codecheck/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ValidationController exposes the validation service over HTTP.
type ValidationController struct {
	svc      *service.ValidationService
	pingers  map[string]Pinger
	upgrader websocket.Upgrader
}

// NewValidationController creates the controller. pingers maps dependency
// names to health probes for /healthz.
func NewValidationController(svc *service.ValidationService, pingers map[string]Pinger) *ValidationController {
	return &ValidationController{
		svc:     svc,
		pingers: pingers,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// RegisterRoutes mounts the API on the router.
func (h *ValidationController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.Healthz)
	v1 := r.Group("/api/v1")
	{
		v1.POST("/validate", h.Validate)
		v1.POST("/run", h.Run)
		v1.GET("/validate/stream", h.ValidateStream)
	}
}

// ValidateRequest is the wire shape of a validation request.
type ValidateRequest struct {
	SourceCode string               `json:"source_code"`
	SourceKey  string               `json:"source_key"`
	LanguageID int                  `json:"language_id" binding:"required"`
	TestCases  []model.TestCaseSpec `json:"test_cases" binding:"required"`
}

func (req *ValidateRequest) toInput() service.ValidateInput {
	return service.ValidateInput{
		SourceCode: req.SourceCode,
		SourceKey:  req.SourceKey,
		LanguageID: req.LanguageID,
		Specs:      req.TestCases,
	}
}

// Validate evaluates all test cases and returns the batch verdict.
func (h *ValidationController) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	out, err := h.svc.Validate(c.Request.Context(), req.toInput())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, out)
}

// RunRequest is the wire shape of a raw run request.
type RunRequest struct {
	SourceCode string `json:"source_code" binding:"required"`
	LanguageID int    `json:"language_id" binding:"required"`
	Stdin      string `json:"stdin"`
}

// Run executes code without judging and returns the raw outcome.
func (h *ValidationController) Run(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	outcome, err := h.svc.RunOnce(c.Request.Context(), req.SourceCode, req.LanguageID, req.Stdin)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, outcome)
}

// streamFrame is one websocket message on the streaming endpoint.
type streamFrame struct {
	Type    string                  `json:"type"`
	Index   int                     `json:"index,omitempty"`
	Result  *model.ValidationResult `json:"result,omitempty"`
	Verdict *service.ValidateOutput `json:"verdict,omitempty"`
	Error   string                  `json:"error,omitempty"`
	Code    appErr.ErrorCode        `json:"code,omitempty"`
}

// ValidateStream upgrades the connection, reads one ValidateRequest frame,
// and streams a result frame per test case followed by a final verdict frame.
func (h *ValidationController) ValidateStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	var req ValidateRequest
	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	if err := conn.ReadJSON(&req); err != nil {
		h.writeStreamError(c, conn, appErr.BadRequest("invalid request frame: "+err.Error()))
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	// The orchestrator serializes observer calls, so writing to the
	// connection here is safe.
	observe := func(index int, result model.ValidationResult) {
		frame := streamFrame{Type: "result", Index: index, Result: &result}
		if err := conn.WriteJSON(frame); err != nil {
			logger.Warn(c.Request.Context(), "stream write failed", zap.Int("index", index), zap.Error(err))
		}
	}

	out, err := h.svc.ValidateWithObserver(c.Request.Context(), req.toInput(), observe)
	if err != nil {
		h.writeStreamError(c, conn, err)
		return
	}

	final := streamFrame{Type: "verdict", Verdict: &out}
	if err := conn.WriteJSON(final); err != nil {
		logger.Warn(c.Request.Context(), "stream verdict write failed", zap.Error(err))
		return
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
}

func (h *ValidationController) writeStreamError(c *gin.Context, conn *websocket.Conn, err error) {
	e := appErr.GetError(err)
	frame := streamFrame{Type: "error", Error: e.Message, Code: e.Code}
	if writeErr := conn.WriteJSON(frame); writeErr != nil {
		logger.Warn(c.Request.Context(), "stream error write failed", zap.Error(writeErr))
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseInternalServerErr, e.Message))
}

// Healthz probes every registered dependency and reports per-dependency state.
func (h *ValidationController) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy := true
	deps := make(map[string]string, len(h.pingers))
	for name, p := range h.pingers {
		if err := p.Ping(ctx); err != nil {
			healthy = false
			deps[name] = "unavailable: " + err.Error()
			continue
		}
		deps[name] = "ok"
	}

	status := http.StatusOK
	state := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "dependencies": deps})
}

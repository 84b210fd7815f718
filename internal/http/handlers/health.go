package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	ping    func() error
	env     string
	version string
}

func NewHealthHandler(ping func() error, env, version string) *HealthHandler {
	return &HealthHandler{ping: ping, env: env, version: version}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, Envelope{
		Success: true,
		Message: "Task Management API is running",
		Data: gin.H{
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"version":     h.version,
			"environment": h.env,
		},
	})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.ping != nil {
		if err := h.ping(); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, Envelope{
				Success: false,
				Error:   &APIError{Code: "NOT_READY", Message: "Database is unreachable"},
			})
			return
		}
	}

	ctx.JSON(http.StatusOK, Envelope{Success: true, Message: "ready"})
}

// Index documents the API surface, mirroring the response served at /api.
func (h *HealthHandler) Index(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, Envelope{
		Success: true,
		Message: "Task Management API v" + h.version,
		Data: gin.H{
			"authentication": gin.H{
				"register":      "POST /api/auth/register",
				"login":         "POST /api/auth/login",
				"profile":       "GET /api/auth/profile",
				"updateProfile": "PUT /api/auth/profile",
				"logout":        "POST /api/auth/logout",
				"verify":        "GET /api/auth/verify",
			},
			"tasks": gin.H{
				"create":     "POST /api/tasks",
				"getAll":     "GET /api/tasks",
				"getById":    "GET /api/tasks/:id",
				"update":     "PUT /api/tasks/:id",
				"delete":     "DELETE /api/tasks/:id",
				"statistics": "GET /api/tasks/stats",
			},
		},
	})
}

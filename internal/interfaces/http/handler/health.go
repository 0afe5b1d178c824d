package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pathsix/crm-backend/internal/infrastructure/persistence"
)

// HealthHandler reports process liveness and database readiness
type HealthHandler struct {
	db      *persistence.Database
	version string
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *persistence.Database, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK

	if err := h.db.Ping(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":  status,
		"version": h.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

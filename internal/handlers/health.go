package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/unicollab/backend/internal/docstore"
)

// HealthHandler reports liveness and document store reachability.
type HealthHandler struct {
	store docstore.Store
}

func NewHealthHandler(store docstore.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	if _, err := h.store.Query(ctx, docstore.Collection("groups").Take(1)); err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]string{
		"status":  status,
		"service": "unicollab-api",
	})
}

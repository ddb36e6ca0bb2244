package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sentra-io/sentra/internal/fraud"
	"github.com/sentra-io/sentra/internal/health"
	"github.com/sentra-io/sentra/internal/logging"
)

// ScoreRequest is the body of POST /v1/transactions/score. The customer
// history is optional; when absent the stored baseline is used if one
// exists, otherwise the transaction scores against neutral defaults.
type ScoreRequest struct {
	Transaction     fraud.Transaction      `json:"transaction"`
	CustomerHistory *fraud.CustomerHistory `json:"customer_history,omitempty"`
}

func (s *Server) scoreHandler(c *gin.Context) {
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must be valid JSON: " + err.Error(),
		})
		return
	}

	result, err := s.pipe.Score(c.Request.Context(), &req.Transaction, req.CustomerHistory)
	if err != nil {
		s.scoringError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// scoringError maps pipeline errors to HTTP responses. Invalid input is
// the caller's fault; an unavailable artifact bundle means the service
// cannot score anything right now.
func (s *Server) scoringError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, fraud.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_transaction",
			"message": err.Error(),
		})
	case errors.Is(err, fraud.ErrArtifactUnavailable), errors.Is(err, fraud.ErrEncoderContract):
		logging.L(c.Request.Context()).Error("scoring unavailable", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "scoring_unavailable",
			"message": "Model artifacts are not available",
		})
	default:
		logging.L(c.Request.Context()).Error("scoring failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to score transaction",
		})
	}
}

func (s *Server) getDecisionHandler(c *gin.Context) {
	id := c.Param("id")

	d, err := s.decisions.Get(c.Request.Context(), id)
	if err != nil {
		logging.L(c.Request.Context()).Error("decision lookup failed", "error", err, "id", id)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load decision",
		})
		return
	}
	if d == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "No decision with that ID",
		})
		return
	}

	c.JSON(http.StatusOK, d)
}

func (s *Server) listDecisionsHandler(c *gin.Context) {
	limit := parseLimit(c.Query("limit"), 50, 500)

	ctx := c.Request.Context()

	if customerID := c.Query("customer_id"); customerID != "" {
		decisions, err := s.decisions.ListByCustomer(ctx, customerID, limit)
		if err != nil {
			s.listError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"decisions": decisions, "count": len(decisions)})
		return
	}

	decisions, err := s.decisions.ListRecent(ctx, limit)
	if err != nil {
		s.listError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": decisions, "count": len(decisions)})
}

func (s *Server) listError(c *gin.Context, err error) {
	logging.L(c.Request.Context()).Error("decision list failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": "Failed to list decisions",
	})
}

func (s *Server) getBaselineHandler(c *gin.Context) {
	customerID := c.Param("id")

	h, err := s.baselines.Get(c.Request.Context(), customerID)
	if err != nil {
		logging.L(c.Request.Context()).Error("baseline lookup failed", "error", err, "customer_id", customerID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load baseline",
		})
		return
	}
	if h == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "No baseline for that customer",
		})
		return
	}

	c.JSON(http.StatusOK, h)
}

func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// -----------------------------------------------------------------------------
// Health & info
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, statuses := s.checks.CheckAll(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    statuses,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Sentra",
		"description": "Real-time transaction fraud decisioning",
		"version":     "0.1.0",
		"endpoints": gin.H{
			"score":     "POST /v1/transactions/score",
			"decision":  "GET /v1/decisions/:id",
			"decisions": "GET /v1/decisions?customer_id=&limit=",
			"baseline":  "GET /v1/customers/:id/baseline",
			"health":    "GET /health",
			"metrics":   "GET /metrics",
		},
	})
}

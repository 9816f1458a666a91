package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports liveness and whether the provider key is set.
type HealthHandler struct {
	APIKeyConfigured bool
}

func (h *HealthHandler) Check(c *gin.Context) {
	status := gin.H{
		"status":    "UP",
		"timestamp": time.Now(),
	}
	if h.APIKeyConfigured {
		status["openrouter_api_key"] = "CONFIGURED"
		status["message"] = "API key is configured"
	} else {
		status["openrouter_api_key"] = "NOT_CONFIGURED"
		status["message"] = "Please set the OPENROUTER_API_KEY environment variable"
	}
	c.JSON(http.StatusOK, status)
}

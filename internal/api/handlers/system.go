package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/presenca/pkg/dto"
)

type SystemHandler struct{}

func NewSystemHandler() *SystemHandler {
	return &SystemHandler{}
}

// Health is the liveness probe.
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:  "healthy",
		Service: "facial-recognition",
	})
}

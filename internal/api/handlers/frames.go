package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/presenca/internal/imaging"
	"github.com/your-org/presenca/internal/quality"
	"github.com/your-org/presenca/pkg/dto"
)

// FrameHandler serves the real-time quality feedback endpoint. A rejected
// frame is a normal 200 verdict; only a missing image is an HTTP error.
type FrameHandler struct {
	evaluator *quality.Evaluator
}

func NewFrameHandler(evaluator *quality.Evaluator) *FrameHandler {
	return &FrameHandler{evaluator: evaluator}
}

func (h *FrameHandler) Validate(c *gin.Context) {
	var req dto.FrameRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Image == "" {
		c.JSON(http.StatusBadRequest, quality.Verdict{
			Valid:   false,
			Message: "image required",
		})
		return
	}

	frame, err := imaging.FromBase64(req.Image)
	if err != nil {
		c.JSON(http.StatusOK, quality.Verdict{
			Valid:   false,
			Message: "image decode error",
		})
		return
	}

	c.JSON(http.StatusOK, h.evaluator.Evaluate(frame))
}

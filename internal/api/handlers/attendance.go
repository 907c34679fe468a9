package handlers

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/presenca/internal/attendance"
	"github.com/your-org/presenca/internal/imaging"
	"github.com/your-org/presenca/internal/vision"
	"github.com/your-org/presenca/pkg/dto"
)

// AttendanceHandler serves verification and confirmation.
type AttendanceHandler struct {
	service *attendance.Service
}

func NewAttendanceHandler(service *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// Verify compares a live frame against the enrolled reference. A mismatch is
// a successful negative answer, not an HTTP error.
func (h *AttendanceHandler) Verify(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Processo == "" || req.Image == "" {
		c.JSON(http.StatusBadRequest, dto.StatusResponse{
			Success: false,
			Message: "processo and image are required",
		})
		return
	}

	frame, err := imaging.FromBase64(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.StatusResponse{
			Success: false,
			Message: "invalid image encoding",
		})
		return
	}

	result, err := h.service.Verify(c.Request.Context(), req.Processo, frame)
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrReferenceNotFound):
			c.JSON(http.StatusNotFound, dto.StatusResponse{
				Success: false,
				Message: "no reference photo registered for this process",
			})
		case errors.Is(err, vision.ErrNoFace):
			c.JSON(http.StatusBadRequest, dto.StatusResponse{
				Success: false,
				Message: "no face detected, position yourself in front of the camera",
			})
		default:
			c.JSON(http.StatusInternalServerError, dto.StatusResponse{
				Success: false,
				Message: "verification failed, try again",
			})
		}
		return
	}

	c.JSON(http.StatusOK, dto.VerifyResponse{
		Success:          true,
		Verified:         result.Verified,
		Message:          result.Message,
		Confidence:       round2(result.Confidence),
		ComparecimentoID: result.SessionID,
	})
}

// Confirm finalizes a pending attendance session, exactly once.
func (h *AttendanceHandler) Confirm(c *gin.Context) {
	sessionID := c.Param("sessionId")

	if err := h.service.Confirm(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusNotFound, dto.StatusResponse{
			Success: false,
			Message: "attendance session not found or expired",
		})
		return
	}

	c.JSON(http.StatusOK, dto.StatusResponse{
		Success: true,
		Message: "attendance recorded",
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

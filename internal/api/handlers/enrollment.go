package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/presenca/internal/audit"
	"github.com/your-org/presenca/internal/imaging"
	"github.com/your-org/presenca/internal/observability"
	"github.com/your-org/presenca/internal/registry"
	"github.com/your-org/presenca/pkg/dto"
)

// EnrollmentHandler manages reference photo registration, listing and
// deletion.
type EnrollmentHandler struct {
	registry *registry.Registry
	auditLog *audit.Logger
}

func NewEnrollmentHandler(reg *registry.Registry, auditLog *audit.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{registry: reg, auditLog: auditLog}
}

// Enroll registers a reference photo for a process.
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Processo == "" || req.Image == "" {
		c.JSON(http.StatusBadRequest, dto.StatusResponse{
			Success: false,
			Message: "processo and image are required",
		})
		return
	}

	imageData, err := imaging.FromBase64(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.StatusResponse{
			Success: false,
			Message: "invalid image encoding",
		})
		return
	}

	path, err := h.registry.Register(c.Request.Context(), req.Processo, imageData)
	if err != nil {
		if errors.Is(err, registry.ErrNoFaceDetected) {
			observability.Enrollments.WithLabelValues("no_face").Inc()
			c.JSON(http.StatusBadRequest, dto.StatusResponse{
				Success: false,
				Message: "no face was detected in the image, please take another photo",
			})
			return
		}
		observability.Enrollments.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, dto.StatusResponse{
			Success: false,
			Message: "error processing image",
		})
		return
	}

	ok := true
	h.auditLog.Append(audit.Entry{
		Processo: req.Processo,
		Action:   audit.ActionCadastro,
		Success:  &ok,
	})
	observability.Enrollments.WithLabelValues("registered").Inc()

	c.JSON(http.StatusOK, dto.EnrollResponse{
		Success: true,
		Message: "reference photo registered",
		Path:    path,
	})
}

// List enumerates all processes with a registered reference photo.
func (h *EnrollmentHandler) List(c *gin.Context) {
	regs, err := h.registry.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.StatusResponse{
			Success: false,
			Message: "error listing registrations",
		})
		return
	}

	cadastros := make([]dto.Registration, 0, len(regs))
	for _, r := range regs {
		cadastros = append(cadastros, dto.Registration{
			Processo:     r.Processo,
			CadastradoEm: r.RegisteredAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Success:   true,
		Total:     len(cadastros),
		Cadastros: cadastros,
	})
}

// Delete removes the reference photo for a process. The wildcard route
// parameter lets identifiers like "2024/001" arrive literally or
// percent-encoded.
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	processo := strings.TrimPrefix(c.Param("processo"), "/")
	if unescaped, err := url.PathUnescape(processo); err == nil {
		processo = unescaped
	}

	if err := h.registry.Delete(c.Request.Context(), processo); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.StatusResponse{
				Success: false,
				Message: "registration not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, dto.StatusResponse{
			Success: false,
			Message: "error removing registration",
		})
		return
	}

	h.auditLog.Append(audit.Entry{
		Processo: processo,
		Action:   audit.ActionDeletado,
	})

	c.JSON(http.StatusOK, dto.StatusResponse{
		Success: true,
		Message: "facial registration removed",
	})
}

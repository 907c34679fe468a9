package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/presenca/internal/api/handlers"
	"github.com/your-org/presenca/internal/api/ws"
	"github.com/your-org/presenca/internal/attendance"
	"github.com/your-org/presenca/internal/audit"
	"github.com/your-org/presenca/internal/auth"
	"github.com/your-org/presenca/internal/quality"
	"github.com/your-org/presenca/internal/registry"
)

type RouterConfig struct {
	APIKey     string
	Evaluator  *quality.Evaluator
	Registry   *registry.Registry
	AuditLog   *audit.Logger
	Attendance *attendance.Service
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// Probes and metrics (no auth)
	systemH := handlers.NewSystemHandler()
	r.GET("/health", systemH.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := r.Group("/")
	authed.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// Frame quality feedback
	frameH := handlers.NewFrameHandler(cfg.Evaluator)
	authed.POST("/validar-frame", frameH.Validate)

	feedbackH := ws.NewFeedbackHandler(cfg.Evaluator)
	authed.GET("/ws/validar-frame", feedbackH.Handle)

	// Reference photo enrollment
	enrollH := handlers.NewEnrollmentHandler(cfg.Registry, cfg.AuditLog)
	authed.POST("/salvar-rosto", enrollH.Enroll)
	authed.GET("/listar-cadastros", enrollH.List)
	authed.DELETE("/deletar-cadastro/*processo", enrollH.Delete)

	// Verification & attendance
	attendH := handlers.NewAttendanceHandler(cfg.Attendance)
	authed.POST("/verificar-rosto", attendH.Verify)
	authed.POST("/confirmar-comparecimento/:sessionId", attendH.Confirm)

	return r
}

package http

import (
	"log/slog"

	"github.com/geocoder89/usuarios/internal/config"
	"github.com/geocoder89/usuarios/internal/http/handlers"
	"github.com/geocoder89/usuarios/internal/http/middlewares"
	"github.com/geocoder89/usuarios/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Deps struct {
	Usuarios handlers.UsuariosStore
	// readiness checks by name, e.g. "db", "cache"
	Checks map[string]handlers.PingFunc
	// nil disables /metrics and request metrics
	Prom *observability.Prom
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// /api/usuarios/ and /api/usuarios/1/ are unknown routes, not redirects
	r.RedirectTrailingSlash = false
	r.HandleMethodNotAllowed = true

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
		r.GET("/metrics", gin.WrapH(deps.Prom.Handler()))
	}

	r.NoRoute(handlers.RespondRouteNotFound)
	r.NoMethod(handlers.RespondMethodNotAllowed)

	// health
	h := handlers.NewHealthHandler(deps.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	r.GET("/", handlers.Home)

	usuariosHandler := handlers.NewUsuariosHandler(deps.Usuarios)

	api := r.Group("/api/usuarios")
	{
		api.GET("", usuariosHandler.ListUsuarios)
		api.POST("", usuariosHandler.CreateUsuario)
		api.GET("/:id", usuariosHandler.GetUsuario)
		api.PUT("/:id", usuariosHandler.UpdateUsuario)
		api.DELETE("/:id", usuariosHandler.DeleteUsuario)
	}

	return r
}

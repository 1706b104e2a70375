package app

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Phurinho/outcome-career-align/api/swagger"
	"github.com/Phurinho/outcome-career-align/internal/middleware"
	"github.com/Phurinho/outcome-career-align/internal/models"
	"github.com/Phurinho/outcome-career-align/pkg/config"
	"github.com/Phurinho/outcome-career-align/pkg/logger"
	corsmiddleware "github.com/Phurinho/outcome-career-align/pkg/middleware/cors"
	reqidmiddleware "github.com/Phurinho/outcome-career-align/pkg/middleware/requestid"
)

func (a *App) registerRoutes(r *gin.Engine, h *handlers) {
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.Logger))
	r.Use(corsmiddleware.New(a.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.services.metrics))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if a.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(a.Config.APIPrefix)
	api.Use(middleware.RateLimit(a.Config.RateLimit.RequestsPerSecond, a.Config.RateLimit.Burst))
	api.Use(middleware.WithResponseMeta())

	// Sessions come from an external identity provider in production.
	if a.Config.Env != config.EnvProduction {
		api.POST("/auth/token", h.auth.IssueToken)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(a.services.auth))

	secured.GET("/auth/me", h.auth.Me)

	catalog := secured.Group("/catalog")
	catalog.GET("/units", h.catalog.Units)
	catalog.GET("/careers", h.catalog.Careers)

	clos := secured.Group("/clos")
	clos.GET("", h.clo.List)
	clos.GET("/weights", h.clo.Weights)
	clos.GET("/weights/warnings", h.clo.WeightWarnings)
	clos.GET("/:id", h.clo.Get)
	clos.POST("", middleware.RequireCapability(models.CapabilityCreateCLO), h.clo.Create)
	clos.PATCH("/:id", middleware.RequireCapability(models.CapabilityEditCLO), h.clo.Update)
	clos.POST("/:id/scoring", middleware.RequireCapability(models.CapabilityManageMappings), h.mapping.Score)

	mappings := secured.Group("/mappings")
	mappings.Use(middleware.RequireCapability(models.CapabilityManageMappings))
	mappings.GET("", h.mapping.List)
	mappings.GET("/pending", h.mapping.Pending)
	mappings.GET("/suggestions", h.mapping.Suggestions)
	mappings.GET("/:id", h.mapping.Get)
	mappings.POST("", h.mapping.Create)
	mappings.POST("/suggestions", h.mapping.Suggest)
	mappings.POST("/:id/submit", h.mapping.Submit)
	mappings.POST("/:id/approve", h.mapping.Approve)
	mappings.POST("/:id/reject", h.mapping.Reject)

	exports := secured.Group("/exports")
	exports.Use(middleware.RequireCapability(models.CapabilityManageMappings))
	exports.GET("/mappings", h.export.Mappings)

	scoring := secured.Group("/scoring")
	scoring.Use(middleware.RequireCapability(models.CapabilityManageMappings))
	scoring.POST("/runs", h.scoring.Start)
	scoring.GET("/runs/:id", h.scoring.Get)

	analytics := secured.Group("/analytics")
	analytics.Use(middleware.RequireCapability(models.CapabilityViewAnalytics))
	analytics.GET("/overview", h.analytics.Overview)
	analytics.GET("/courses", h.analytics.CoursePerformance)
	analytics.GET("/courses/:course/coverage", h.analytics.CourseCoverage)
	analytics.GET("/careers", h.analytics.CareerInsights)
	analytics.GET("/careers/:career/coverage", h.analytics.CareerCoverage)
	analytics.GET("/units", h.analytics.UnitCoverage)
	analytics.GET("/system", h.analytics.System)
}

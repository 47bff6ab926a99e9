package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "contractparser/docs" // registers the OpenAPI document
	"contractparser/internal/handler"
	"contractparser/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	contractH *handler.ContractHandler,
	healthH *handler.HealthHandler,
	corsOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	contracts := v1.Group("/contracts")
	contracts.POST("/upload", contractH.Upload)
	contracts.GET("", contractH.List)
	contracts.GET("/:id", contractH.GetByID)
	contracts.PATCH("/:id/fields", contractH.PatchField)
	contracts.GET("/:id/audit", contractH.Audit)
	contracts.GET("/:id/export", contractH.Export)
	contracts.GET("/:id/download", contractH.Download)
	contracts.DELETE("/:id", contractH.Delete)

	return r
}

package api

import (
	"github.com/beamhq/adgallery/internal/api/handler"
	"github.com/beamhq/adgallery/internal/api/middleware"
	"github.com/beamhq/adgallery/internal/service"
	"github.com/gin-gonic/gin"
)

// RouterConfig holds router-level settings.
type RouterConfig struct {
	Mode string
	CORS middleware.CORSConfig
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	embeddingService service.EmbeddingProvider,
	searchService *service.SearchService,
	catalogService *service.CatalogService,
	cfg RouterConfig,
) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler()
	embeddingHandler := handler.NewEmbeddingHandler(embeddingService)
	searchHandler := handler.NewSearchHandler(searchService)
	imageHandler := handler.NewImageHandler(catalogService)

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	{
		api.POST("/embeddings", embeddingHandler.Embed)

		api.GET("/search", searchHandler.Search)

		api.GET("/images", imageHandler.ListImages)
		api.GET("/images/:id", imageHandler.GetImage)
	}

	return r
}

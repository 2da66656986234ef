package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/streamsaviour-go/api/handlers"
	"github.com/yourusername/streamsaviour-go/api/middleware"
	"github.com/yourusername/streamsaviour-go/internal/app"
	"github.com/yourusername/streamsaviour-go/internal/domain"
	"github.com/yourusername/streamsaviour-go/pkg/logger"
)

// Extractor is the yt-dlp boundary the HTTP layer needs
type Extractor interface {
	domain.MetadataExtractor
	domain.StreamOpener
	handlers.VersionReporter
}

// Dependencies groups everything the router wires into handlers
type Dependencies struct {
	Controller     *app.SessionController
	Store          *app.HistoryStore
	Library        *app.LibraryExporter
	Extractor      Extractor
	Database       handlers.Pinger
	AnalyzeTimeout time.Duration
	MultiLogger    *logger.MultiLogger
	Logger         *zap.Logger
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger, deps.MultiLogger))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Database, deps.Extractor)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		analyzeHandler := handlers.NewAnalyzeHandler(deps.Extractor, deps.AnalyzeTimeout, deps.Logger)
		v1.POST("/analyze", analyzeHandler.Analyze)

		streamHandler := handlers.NewStreamHandler(deps.Extractor, deps.Logger)
		v1.GET("/stream", streamHandler.Stream)

		sessionHandler := handlers.NewSessionHandler(deps.Controller, deps.Store, deps.Extractor, deps.AnalyzeTimeout, deps.Logger)
		eventsHandler := handlers.NewEventsHandler(deps.Store, deps.Logger)
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", sessionHandler.StartSession)
			sessions.GET("", sessionHandler.ListSessions)
			sessions.GET("/events", eventsHandler.HandleWebSocket)
			sessions.GET("/:id", sessionHandler.GetSession)
			sessions.POST("/:id/pause", sessionHandler.PauseSession)
			sessions.POST("/:id/resume", sessionHandler.ResumeSession)
			sessions.POST("/:id/cancel", sessionHandler.CancelSession)
			sessions.DELETE("/:id", sessionHandler.DeleteSession)
		}

		historyHandler := handlers.NewHistoryHandler(deps.Store)
		searches := v1.Group("/history/searches")
		{
			searches.GET("", historyHandler.ListSearches)
			searches.DELETE("/:id", historyHandler.DeleteSearch)
			searches.DELETE("", historyHandler.ClearSearches)
		}

		libraryHandler := handlers.NewLibraryHandler(deps.Store, deps.Library)
		library := v1.Group("/library")
		{
			library.GET("", libraryHandler.ListDownloads)
			library.GET("/:id/content", libraryHandler.GetContent)
			library.POST("/:id/export", libraryHandler.ExportDownload)
			library.DELETE("/:id", libraryHandler.DeleteDownload)
			library.DELETE("", libraryHandler.ClearDownloads)
		}

		if deps.MultiLogger != nil {
			logHandler := handlers.NewLogHandler(deps.MultiLogger)
			logs := v1.Group("/logs")
			{
				logs.GET("/categories", logHandler.GetCategories)
				logs.GET("/:category", logHandler.GetLogs)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}

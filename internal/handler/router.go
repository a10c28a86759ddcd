package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/tribute/internal/middleware"
)

type RouterDeps struct {
	Artifacts *ArtifactHandler
	Entries   *EntryHandler
	Shares    *ShareHandler
	Files     *FileHandler
	JWTSecret []byte
	// RateLimit is the per user window of the generation routes.
	RateLimit time.Duration
}

// StreamingPaths are the routes answered with text/event-stream; they must
// not pass through response compression.
var StreamingPaths = []string{
	"/api/v1/artifact/stream",
	"/api/v1/artifact/ui",
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/public/share/:token", deps.Shares.PublicGet)
	api.GET("/files/:key", deps.Files.Get)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	aiGroup := authGroup.Group("")
	aiGroup.Use(middleware.RateLimit(deps.RateLimit))
	aiGroup.POST("/artifact/message", deps.Artifacts.Message)
	aiGroup.POST("/artifact/stream", deps.Artifacts.Stream)
	aiGroup.POST("/artifact/ui", deps.Artifacts.UI)

	authGroup.GET("/artifact", deps.Artifacts.Get)
	authGroup.GET("/artifacts", deps.Artifacts.List)
	authGroup.DELETE("/artifact/:id", deps.Artifacts.Delete)
	authGroup.POST("/artifact/:id/share", deps.Artifacts.Share)
	authGroup.DELETE("/artifact/:id/share", deps.Artifacts.Unshare)
	authGroup.POST("/artifact/:id/export", deps.Artifacts.Export)
	authGroup.GET("/artifact/:id/suggestions", deps.Artifacts.Suggestions)

	authGroup.POST("/entries", deps.Entries.Create)
	authGroup.GET("/entries", deps.Entries.List)
	authGroup.GET("/entries/:id", deps.Entries.Get)
	authGroup.PUT("/entries/:id", deps.Entries.Update)
	authGroup.DELETE("/entries/:id", deps.Entries.Delete)
}

package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"linkchat/internal/catalog"
	"linkchat/internal/chat"
	"linkchat/internal/config"
	"linkchat/internal/handler"
	"linkchat/internal/middleware"
	"linkchat/internal/session"
	"linkchat/internal/stream"
	"linkchat/internal/token"
	"linkchat/internal/view"
)

type Deps struct {
	Config      config.Config
	Sessions    *session.Manager
	Chat        *chat.Service
	Coordinator *stream.Coordinator
	Issuer      *token.Issuer
	Catalog     *catalog.Catalog
	TokenConfig session.TokenConfig
	Log         zerolog.Logger
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(deps.Log))
	r.SetHTMLTemplate(view.Templates())

	healthHandler := &handler.HealthHandler{APIKeyConfigured: deps.Config.APIKey != ""}
	r.GET("/api/health", healthHandler.Check)

	withSession := middleware.WithSession(deps.Sessions, deps.TokenConfig)

	linkLimiter := middleware.NewRateLimiter(10, time.Minute)
	linkHandler := &handler.MagicLinkHandler{
		Issuer:   deps.Issuer,
		Sessions: deps.Sessions,
		APIKey:   deps.Config.MagicLinkKey,
		Log:      deps.Log,
	}
	r.GET("/magic-link/request", linkHandler.Request)
	r.POST("/magic-link/request", middleware.RateLimitMiddleware(linkLimiter), linkHandler.RequestForm)
	r.GET("/magic-link/consume", withSession, linkHandler.Consume)
	r.POST("/logout", withSession, linkHandler.Logout)

	chatHandler := &handler.ChatHandler{Chat: deps.Chat, Catalog: deps.Catalog, Log: deps.Log}
	streamHandler := &handler.StreamHandler{Coordinator: deps.Coordinator, Log: deps.Log}

	authed := r.Group("/")
	authed.Use(withSession, middleware.RequireAuthenticated(deps.Config.NoAuth))

	authed.GET("/", chatHandler.Page)
	authed.GET("/config", chatHandler.ConfigMenu)
	authed.GET("/data", chatHandler.DataMenu)
	authed.POST("/config/ai", chatHandler.UpdateConfig)

	authed.POST("/chat", chatHandler.Submit)
	authed.GET("/chat/message/:id/edit", chatHandler.Edit)
	authed.GET("/chat/message/:id/view", chatHandler.View)
	authed.POST("/chat/message/:id/save", chatHandler.Save)
	authed.POST("/chat/message/:id/delete", chatHandler.Delete)
	authed.POST("/chat/message/:id/regenerate", chatHandler.Regenerate)
	authed.POST("/chat/clear", chatHandler.Clear)
	authed.POST("/chat/export", chatHandler.Export)
	authed.POST("/chat/import", chatHandler.Import)

	authed.POST("/chat/stream", streamHandler.Submit)
	authed.GET("/chat/stream-frame", streamHandler.Frame)
	authed.GET("/chat/stream/ws", streamHandler.Push)

	return r
}

// requestLogger is the gin access log routed through zerolog.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

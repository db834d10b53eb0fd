// Package httpapi is the REST surface of the server: CRUD routes per entity
// collection, chat messages, outbox replay, health, snapshot export and the
// application shell pages.
package httpapi

import (
	"time"

	"github.com/dmitrijs2005/suitewaste/internal/logging"
	"github.com/dmitrijs2005/suitewaste/internal/server/entities"
	"github.com/dmitrijs2005/suitewaste/internal/server/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Options configures NewRouter.
type Options struct {
	// Secret enables bearer token checks on /api routes when non-empty.
	Secret         string
	TokenMaxAge    time.Duration
	AllowedOrigins []string
}

// Handler serves every route. Snapshots may be nil.
type Handler struct {
	registry  *entities.Registry
	sync      *services.SyncService
	snapshots *services.SnapshotService
	log       logging.Logger
}

func NewHandler(registry *entities.Registry, sync *services.SyncService, snapshots *services.SnapshotService, log logging.Logger) *Handler {
	return &Handler{registry: registry, sync: sync, snapshots: snapshots, log: log}
}

func NewRouter(opts Options, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(h.log))

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	r.GET("/", h.Shell)
	r.GET("/index.html", h.Shell)

	r.GET("/api/health", h.Health)

	api := r.Group("/api")
	if opts.Secret != "" {
		api.Use(bearerAuth([]byte(opts.Secret), opts.TokenMaxAge, time.Now))
	}
	{
		for _, c := range h.registry.All() {
			g := api.Group("/" + c.Name())
			g.GET("", h.list(c))
			g.DELETE("/:id", h.delete(c))
			g.POST("/deleteMany", h.deleteMany(c))
		}
		for _, path := range h.registry.EntityPaths() {
			c, _ := h.registry.ByPath(path)
			api.POST("/"+path, h.create(c))
			api.PATCH("/"+path+"/:id", h.patch(c))
		}

		api.POST("/users", h.CreateUser)
		api.POST("/chats", h.CreateChat)
		api.GET("/chats/:chatId/messages", h.ListMessages)
		api.POST("/chats/:chatId/messages", h.SendMessage)

		api.POST("/sync", h.Sync)
		api.POST("/admin/snapshot", h.Snapshot)
	}
	return r
}

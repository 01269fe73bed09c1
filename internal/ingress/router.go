package ingress

import (
	"github.com/gin-gonic/gin"

	"chatproxy/internal/channel"
	"chatproxy/internal/dispatch"
	"chatproxy/internal/family"
	"chatproxy/internal/logger"
	"chatproxy/internal/thinking"
)

// Router bundles every core collaborator the HTTP handlers need. Its
// methods are registered onto a *gin.Engine by NewEngine; nothing below
// internal/ingress imports gin.
type Router struct {
	registry   *family.Registry
	store      *channel.Store
	thinking   *thinking.Mapper
	dispatcher *dispatch.Dispatcher
	log        *logger.Logger
}

func NewRouter(registry *family.Registry, store *channel.Store, tm *thinking.Mapper, d *dispatch.Dispatcher, log *logger.Logger) *Router {
	return &Router{registry: registry, store: store, thinking: tm, dispatcher: d, log: log}
}

// NewEngine wires every inbound endpoint of spec.md §6 onto a gin.Engine,
// grounded on the teacher's internal/proxy/server.go route table.
func (rt *Router) NewEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.POST("/v1/chat/completions", rt.handleChat)
	engine.POST("/v1/messages", rt.handleChat)
	engine.POST("/v1beta/models/*rest", rt.handleChat)

	engine.GET("/v1/models", rt.handleModelList)
	engine.GET("/v1beta/models", rt.handleModelList)

	return engine
}

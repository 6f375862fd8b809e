package bootstrap

import (
	"context"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpapi "github.com/nivethaug/clawd-backend/internal/api/http"
	"github.com/nivethaug/clawd-backend/internal/api/http/middleware"
	"github.com/nivethaug/clawd-backend/internal/chat"
	chathttp "github.com/nivethaug/clawd-backend/internal/chat/http"
	projectshttp "github.com/nivethaug/clawd-backend/internal/projects/http"
	"github.com/nivethaug/clawd-backend/internal/projects/service"
	"github.com/nivethaug/clawd-backend/internal/provision"
	provisionhttp "github.com/nivethaug/clawd-backend/internal/provision/http"
	sessionshttp "github.com/nivethaug/clawd-backend/internal/sessions/http"
	sessionsrepo "github.com/nivethaug/clawd-backend/internal/sessions/repository"
)

// RouterDeps carries everything the HTTP surface needs, already wired.
type RouterDeps struct {
	ServiceName string
	Version     string
	PingStore   func(context.Context) error

	Projects *service.Service
	Sessions sessionsrepo.Store
	Gateway  *chat.Gateway
	Janitor  *chat.Janitor
	Registry *provision.Registry
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	r.Use(middleware.RequestID())

	httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.PingStore).RegisterRoutes(r)
	httpapi.NewMetricsHandler().RegisterRoutes(r)

	api := r.Group("/api/v1")

	projectsGroup := api.Group("/projects")
	projectshttp.NewHandler(dep.Projects).Register(projectsGroup)

	var cleaner sessionshttp.GatewayCleaner
	if dep.Janitor != nil {
		cleaner = dep.Janitor
	}
	sessionsHandler := sessionshttp.NewHandler(dep.Sessions, cleaner)
	sessionsHandler.RegisterProject(projectsGroup)
	sessionsHandler.RegisterSessions(api.Group("/sessions"))

	chathttp.NewHandler(dep.Sessions, dep.Gateway).Register(api)

	if dep.Registry != nil {
		runsHandler := provisionhttp.NewRunsHandler(dep.Registry)
		runsHandler.RegisterProject(projectsGroup)
		runsHandler.RegisterOps(api)
	}

	return r
}

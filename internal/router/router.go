package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/community-events/internal/cache"
    "github.com/iliyamo/community-events/internal/config"
    "github.com/iliyamo/community-events/internal/handler"
    "github.com/iliyamo/community-events/internal/middleware"
    "github.com/iliyamo/community-events/internal/model"
)

// Deps carries everything the routes need.  Redis and Cache may be nil;
// the rate limiter and response cache then pass requests through.
type Deps struct {
    Config        config.Config
    Logger        *zap.Logger
    Redis         *redis.Client
    Cache         *cache.Store
    Public        *handler.PublicHandler
    Registrations *handler.RegistrationHandler
    Admin         *handler.AdminHandler
}

// New returns an Echo instance with the global middleware chain and every
// route registered.
func New(d Deps) *echo.Echo {
    e := echo.New()
    e.HideBanner = true
    e.HidePort = true

    e.Use(echomw.RequestID())
    e.Use(echomw.Recover())
    e.Use(middleware.RequestLogger(d.Logger))
    e.Use(middleware.Maintenance(d.Config.Maintenance))

    RegisterRoutes(e)
    RegisterPublic(e, d)
    RegisterMember(e, d)
    RegisterAdmin(e, d)
    return e
}

// RegisterRoutes registers routes that do not require authentication and
// are never cached.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated browse endpoints.  Both are
// served through the response cache under the keys the notification
// pipeline forgets when seats or events change.
func RegisterPublic(e *echo.Echo, d Deps) {
    maxBody := d.Config.Cache.MaxBodyBytes
    upcoming := middleware.NewResponseCache(d.Cache, maxBody, func(c echo.Context) string {
        // limited lists are rare and not worth a key of their own
        if c.QueryParam("limit") != "" {
            return ""
        }
        return cache.UpcomingKey()
    })
    detail := middleware.NewResponseCache(d.Cache, maxBody, func(c echo.Context) string {
        return cache.EventKey(c.Param("event"))
    })

    e.GET("/v1/events", d.Public.ListUpcoming, upcoming)
    e.GET("/v1/events/:event", d.Public.GetEvent, detail)
}

// RegisterMember registers the authenticated member endpoints.  Taking and
// giving back a seat is rate limited per caller.
func RegisterMember(e *echo.Echo, d Deps) {
    auth := e.Group("/v1", middleware.JWTAuth(d.Config.JWTSecret))
    limit := middleware.NewTokenBucket(d.Config.RateLimit, d.Redis, d.Logger)

    auth.POST("/events/:event/register", d.Registrations.Register, limit)
    auth.DELETE("/events/:event/register", d.Registrations.Cancel, limit)
    auth.GET("/me/registrations", d.Registrations.Mine)
}

// RegisterAdmin registers event administration.  Organizers reach the
// group; finer checks (ownership, publishing) are made by the service.
func RegisterAdmin(e *echo.Echo, d Deps) {
    admin := e.Group("/v1/admin",
        middleware.JWTAuth(d.Config.JWTSecret),
        middleware.RequireRole(model.RoleAdmin, model.RoleOrganizer),
    )
    adminOnly := middleware.RequireRole(model.RoleAdmin)

    admin.POST("/events", d.Admin.CreateEvent)
    admin.PATCH("/events/:id/status", d.Admin.SetStatus)
    admin.DELETE("/events/:id", d.Admin.DeleteEvent, adminOnly)
    admin.GET("/events/:id/registrations", d.Admin.ListRegistrations)
    admin.POST("/events/:id/reconcile", d.Admin.Reconcile, adminOnly)
}

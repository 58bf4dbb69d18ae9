package api

import (
	"database/sql"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rankwise/seo-crm/internal/api/handler"
	"github.com/rankwise/seo-crm/internal/api/middleware"
	"github.com/rankwise/seo-crm/internal/core/domain"
	"github.com/rankwise/seo-crm/internal/core/ports"
	"github.com/rankwise/seo-crm/internal/core/service"
	mongostore "github.com/rankwise/seo-crm/internal/infrastructure/db/mongo"
	"github.com/rankwise/seo-crm/internal/infrastructure/db/postgres"
	redisstore "github.com/rankwise/seo-crm/internal/infrastructure/db/redis"
	opshttp "github.com/rankwise/seo-crm/internal/infrastructure/http"
	"github.com/rankwise/seo-crm/internal/infrastructure/http/handlers"
	"github.com/rankwise/seo-crm/internal/pkg/config"
)

// Dependencies are the connected stores the API runs on.
type Dependencies struct {
	Postgres *sql.DB
	Mongo    *mongo.Database
	Redis    *redis.Client
}

// Handlers groups everything Mount needs to serve the API.
type Handlers struct {
	Resolver   ports.IdentityResolver
	CookieName string

	Auth      *handler.AuthHandler
	Clients   *handler.ClientHandler
	Keywords  *handler.KeywordHandler
	Backlinks *handler.BacklinkHandler
	Imports   *handler.ImportHandler
	Dashboard *handler.DashboardHandler
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg *config.Config, deps Dependencies, log zerolog.Logger) *echo.Echo {
	// --- Stores ---
	tx := postgres.NewTxManager(deps.Postgres)
	clients := postgres.NewClientRepository(deps.Postgres, cfg.StoreTimeout)
	keywords := postgres.NewKeywordRepository(deps.Postgres, cfg.StoreTimeout)
	backlinks := postgres.NewBacklinkRepository(deps.Postgres, cfg.StoreTimeout)
	identities := postgres.NewIdentityRepository(deps.Postgres, tx, cfg.StoreTimeout)
	audit := mongostore.NewAuditRepository(deps.Mongo, cfg.StoreTimeout)
	sessions := redisstore.NewSessionStore(deps.Redis)

	// --- Services ---
	enforcer := service.NewEnforcer(clients, keywords, backlinks, audit, log, cfg.StoreTimeout)
	tokens := service.NewTokenIssuer(cfg.Session.JWTSecret, cfg.Session.TTL)
	manager := service.NewSessionManager(identities, enforcer, sessions, tokens, audit, log, cfg.StoreTimeout)
	cookie := handler.CookieConfig{
		Name:   cfg.Session.CookieName,
		Domain: cfg.Session.CookieDomain,
		Secure: cfg.IsProduction(),
	}

	e := NewEcho(log)
	Mount(e, Handlers{
		Resolver:   service.NewIdentityResolver(tokens, sessions, identities, log),
		CookieName: cfg.Session.CookieName,
		Auth:       handler.NewAuthHandler(manager, cookie),
		Clients:    handler.NewClientHandler(enforcer),
		Keywords:   handler.NewKeywordHandler(enforcer),
		Backlinks:  handler.NewBacklinkHandler(enforcer),
		Imports:    handler.NewImportHandler(service.NewImportService(enforcer, log)),
		Dashboard:  handler.NewDashboardHandler(service.NewDashboardService(enforcer, log)),
	})

	// --- Ops (public in the route policy) ---
	opshttp.RegisterOps(e, map[string]handlers.Check{
		"postgres": handlers.PostgresCheck(deps.Postgres),
		"mongodb":  handlers.MongoCheck(deps.Mongo),
		"redis":    handlers.RedisCheck(deps.Redis),
	})

	return e
}

// NewEcho returns an Echo instance with the validator, error handler and the
// process-wide middleware installed.
func NewEcho(log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echoprometheus.NewMiddleware("seocrm"))

	return e
}

// Mount installs session resolution, the route gate and every API route.
// The gate runs for every request, including unknown paths, before any handler.
func Mount(e *echo.Echo, h Handlers) {
	e.Use(middleware.Authenticate(h.Resolver, h.CookieName))
	e.Use(middleware.Gate())

	// --- Pages ---
	e.GET(domain.PathHome, h.Dashboard.Landing)
	e.GET(domain.PathLogin, h.Dashboard.LoginPage)
	e.GET(domain.PathRegister, h.Dashboard.LoginPage)
	e.GET(domain.PathDashboard, h.Dashboard.Redirect)

	// --- Auth ---
	e.POST("/auth/login", h.Auth.Login)
	e.POST("/auth/register", h.Auth.Register)
	e.POST("/auth/logout", h.Auth.Logout)
	e.GET("/auth/me", h.Auth.Me)
	e.GET(domain.PathAdminSetup, h.Auth.SetupStatus)
	e.POST(domain.PathAdminSetup, h.Auth.Setup)

	// --- Admin area ---
	admin := e.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	admin.GET("/dashboard", h.Dashboard.Admin)
	admin.POST("/clients/:id/user", h.Auth.CreateClientUser)

	// --- Client area ---
	client := e.Group("/client", middleware.RequireRole(domain.RoleClient))
	client.GET("/dashboard", h.Dashboard.Client)

	// --- Data API (scoped by the enforcer) ---
	apiGroup := e.Group("/api")

	apiGroup.GET("/clients", h.Clients.List)
	apiGroup.POST("/clients", h.Clients.Create)
	apiGroup.GET("/clients/:id", h.Clients.Get)
	apiGroup.PUT("/clients/:id", h.Clients.Update)
	apiGroup.DELETE("/clients/:id", h.Clients.Delete)

	apiGroup.GET("/keywords", h.Keywords.List)
	apiGroup.POST("/keywords", h.Keywords.Create)
	apiGroup.POST("/keywords/import", h.Imports.Keywords)
	apiGroup.GET("/keywords/:id", h.Keywords.Get)
	apiGroup.PUT("/keywords/:id", h.Keywords.Update)
	apiGroup.PUT("/keywords/:id/position", h.Keywords.RecordPosition)
	apiGroup.DELETE("/keywords/:id", h.Keywords.Delete)

	apiGroup.GET("/backlinks", h.Backlinks.List)
	apiGroup.POST("/backlinks", h.Backlinks.Create)
	apiGroup.POST("/backlinks/import", h.Imports.Backlinks)
	apiGroup.GET("/backlinks/:id", h.Backlinks.Get)
	apiGroup.PUT("/backlinks/:id", h.Backlinks.Update)
	apiGroup.DELETE("/backlinks/:id", h.Backlinks.Delete)
}

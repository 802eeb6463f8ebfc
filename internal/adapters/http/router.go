package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/planpresso/internal/pkg/metrics"
)

// requestTimeout bounds every REST call. Saves talk to Postgres and NATS.
const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Editing sends a request per keystroke burst, hence the generous limit.
	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, 429, "rate_limited", "too many requests, please try again later")
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	t := func(h fiber.Handler) fiber.Handler { return timeout.NewWithContext(h, requestTimeout) }

	// Editor sessions
	v1.Post("/sessions", t(OpenSessionHandler(deps)))
	v1.Get("/sessions/:id", t(GetSessionHandler(deps)))
	v1.Delete("/sessions/:id", t(CloseSessionHandler(deps)))
	v1.Put("/sessions/:id/text", t(SetTextHandler(deps)))
	v1.Patch("/sessions/:id/plan", t(UpdatePlanHandler(deps)))
	v1.Post("/sessions/:id/commit", t(CommitHandler(deps)))
	v1.Post("/sessions/:id/stops", t(AddStopHandler(deps)))
	v1.Patch("/sessions/:id/stops/:index", t(SetStopFieldHandler(deps)))
	v1.Delete("/sessions/:id/stops/:index", t(RemoveStopHandler(deps)))
	v1.Post("/sessions/:id/stops/:index/duplicate", t(DuplicateStopHandler(deps)))
	v1.Post("/sessions/:id/stops/:index/move", t(MoveStopHandler(deps)))
	v1.Post("/sessions/:id/undo", t(UndoHandler(deps)))
	v1.Post("/sessions/:id/redo", t(RedoHandler(deps)))
	v1.Put("/sessions/:id/view", t(SwitchViewHandler(deps)))
	v1.Post("/sessions/:id/validate", t(ValidateSessionHandler(deps)))
	v1.Post("/sessions/:id/save", t(SaveSessionHandler(deps)))
	v1.Post("/sessions/:id/example", t(LoadExampleHandler(deps)))
	v1.Post("/sessions/:id/draft/restore", t(RestoreDraftHandler(deps)))
	v1.Delete("/sessions/:id/draft", t(DiscardDraftHandler(deps)))
	v1.Post("/sessions/:id/recover", t(RecoverSavedHandler(deps)))
	v1.Post("/sessions/:id/share", t(ShareSessionHandler(deps)))

	// Stateless plan tools
	v1.Post("/plans/validate", t(ValidateTextHandler(deps)))
	v1.Post("/plans/format", t(FormatTextHandler(deps)))
	v1.Post("/plans/share", t(SharePlanHandler(deps)))
	v1.Post("/plans/map", t(MapViewHandler(deps)))
	v1.Get("/plans/example", t(ExamplePlanHandler(deps)))
	v1.Get("/share/:payload", t(OpenShareHandler(deps)))

	// Saved plans
	v1.Get("/plans", t(ListPlansHandler(deps)))
	v1.Get("/plans/latest", t(LatestPlanHandler(deps)))
	v1.Get("/plans/:id", t(GetPlanHandler(deps)))
	v1.Get("/plans/:id/map", t(SavedMapViewHandler(deps)))
	v1.Delete("/drafts/legacy", t(ClearLegacyHandler(deps)))

	v1.Post("/markdown", t(MarkdownHandler(deps)))
	v1.Get("/fields/check", t(CheckFieldHandler(deps)))
	if deps.Geocoder != nil {
		v1.Get("/geocode", t(GeocodeHandler(deps)))
	}

	app.Post("/graphql", GraphQLHandler(deps))

	app.Use("/ws", WebSocketUpgrade())
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}

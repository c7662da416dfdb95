package app

import (
	"context"
	"strings"

	"pinboard-backend/internal/cache"
	"pinboard-backend/internal/config"
	"pinboard-backend/internal/handlers"
	"pinboard-backend/internal/media"
	"pinboard-backend/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// bodyLimit leaves room for a maximum size pin image plus form fields
const bodyLimit = services.MaxPinImageSize + 2<<20

// Store is the persistence shared by the pin and user services
type Store interface {
	services.PinStore
	services.UserStore
	Ping(ctx context.Context) error
}

// NewServer wires services and routes on top of the given backends
func NewServer(cfg *config.Config, store Store, c cache.Cache, m media.Store) *fiber.App {
	hub := handlers.NewRoomManager()

	userService := services.NewUserService(store, m, cfg.JWTSecret)
	pinService := services.NewPinService(store, c, m,
		services.WithNotifier(hub),
		services.WithStrictMediaCleanup(cfg.Media.StrictDelete),
	)

	// Immutable: the memory store keeps strings taken from params and bodies
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    bodyLimit,
		Immutable:    true,
	})

	// Middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(corsMiddleware(cfg.CORSOrigins))

	if cfg.Media.Driver == "local" {
		app.Static("/uploads", cfg.Media.UploadDir)
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := store.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auth := handlers.AuthMiddleware(userService)
	limiter := handlers.NewIPRateLimiter(cfg.AuthRateLimit)

	api := app.Group("/api")

	// User routes
	user := api.Group("/user")
	user.Post("/register", limiter.Middleware(), handlers.RegisterHandler(userService))
	user.Post("/login", limiter.Middleware(), handlers.LoginHandler(userService))
	user.Get("/logout", auth, handlers.LogoutHandler())
	user.Get("/me", auth, handlers.MeHandler(userService))
	user.Put("/update", auth, handlers.UpdateProfileHandler(userService))
	user.Post("/follow/:id", auth, handlers.FollowHandler(userService))
	user.Get("/:id", auth, handlers.UserProfileHandler(userService))

	// Pin routes, all authenticated
	pin := api.Group("/pin", auth)
	pin.Post("/new", handlers.CreatePinHandler(pinService))
	pin.Get("/all", handlers.ListPinsHandler(pinService))
	pin.Get("/saved", handlers.SavedPinsHandler(pinService))
	pin.Get("/user/:id", handlers.UserPinsHandler(pinService))
	pin.Post("/comment/:id", handlers.AddCommentHandler(pinService, userService))
	pin.Delete("/comment/:id", handlers.DeleteCommentHandler(pinService))
	pin.Post("/save/:id", handlers.SavePinHandler(pinService))
	pin.Post("/save", handlers.SavePinHandler(pinService))
	pin.Post("/unsave", handlers.UnsavePinHandler(pinService))
	pin.Get("/:id", handlers.GetPinHandler(pinService))
	pin.Put("/:id", handlers.UpdatePinHandler(pinService))
	pin.Delete("/:id", handlers.DeletePinHandler(pinService))

	// WebSocket Route
	// Note: Middleware order matters. WSUpgradeMiddleware rejects plain
	// requests before the token is checked.
	app.Use("/ws", handlers.WSUpgradeMiddleware)
	app.Use("/ws", auth)
	app.Get("/ws", handlers.WebSocketHandler(hub))

	return app
}

func corsMiddleware(origins []string) fiber.Handler {
	if len(origins) == 0 {
		return cors.New()
	}
	return cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowCredentials: true,
	})
}

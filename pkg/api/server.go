package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/caltrain-transit/railfeed/pkg/kvstore"
)

// SetupServer builds the fiber app: the three read-only endpoints, CORS and
// request logging. It does not call Listen, so callers (and tests) can use
// webApp.Test() directly.
func SetupServer(store kvstore.Store) *fiber.App {
	webApp := fiber.New()
	webApp.Use(NewLogger())
	webApp.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
	}))

	group := webApp.Group("/api")
	group.Get("/schedule", scheduleHandler(store))
	group.Get("/meta", metaHandler(store))
	group.Get("/realtime", realtimeHandler(store))

	// The cors middleware only answers true preflights (those carrying
	// Access-Control-Request-Method); any other OPTIONS request lands here.
	group.Options("/*", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		c.Set(fiber.HeaderAccessControlAllowMethods, "GET,OPTIONS")
		return c.SendStatus(fiber.StatusNoContent)
	})

	webApp.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})

	return webApp
}

// Listen starts the server built by SetupServer on addr.
func Listen(store kvstore.Store, addr string) error {
	return SetupServer(store).Listen(addr)
}

package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// NewApp builds the fiber app with the three pipeline boundaries. The body
// limit sits just above the upload limit so oversized requests get the
// handler's structured rejection instead of a transport error.
func NewApp(h *Handler, corsOrigins []string, maxUploadBytes int64) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "videosplice",
		BodyLimit: int(maxUploadBytes) + 1024*1024,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(corsOrigins, ","),
		AllowCredentials: true,
		AllowMethods:     "GET,POST,OPTIONS",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Post("/upload", h.Upload)
	api.Get("/status/:id", h.Status)
	api.Get("/download/:id", h.Download)

	return app
}

// Package api assembles the HTTP server.
package api

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/savoirfairelinux/vulnscout-sub000/graphql"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
	"github.com/savoirfairelinux/vulnscout-sub000/restapi"
	"github.com/savoirfairelinux/vulnscout-sub000/restapi/modules/lifecycle"
	"github.com/savoirfairelinux/vulnscout-sub000/util"
)

// NewFiberApp creates and configures a Fiber app with REST and GraphQL routes over set.
// events may be nil when no event store is configured.
func NewFiberApp(set *registry.Set, events lifecycle.EventLister, log *zap.Logger) (*fiber.App, error) {
	schema, err := graphql.CreateSchema(set)
	if err != nil {
		return nil, fmt.Errorf("failed to create GraphQL schema: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "vulnscout API v1.0",
		BodyLimit:    10 * 1024 * 1024, // 10MB
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	})

	// Middleware
	app.Use(fiberrecover.New())
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: util.GetEnvDefault("VULNSCOUT_CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"),
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, HEAD, OPTIONS",
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("graphql_op", "-")
		return c.Next()
	})
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${locals:graphql_op} ${latency}\n",
	}))

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	restapi.SetupRoutes(app, set, schema, events, log)

	return app, nil
}

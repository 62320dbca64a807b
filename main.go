package main

import (
	"log"
	"os"
	"strings"

	"dailypivot/internal/api"
	"dailypivot/internal/database"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	// Initialize database
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/dailypivot.db"
	}
	db, err := database.Initialize(dbPath)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New())

	// CORS configuration: restrict to specific origins for security
	allowedOriginsRaw := os.Getenv("ALLOWED_ORIGINS")
	allowedOrigins := strings.TrimSpace(allowedOriginsRaw)
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:80,http://localhost:5173" // Default for local dev
		log.Println("WARNING: Using default ALLOWED_ORIGINS. Set ALLOWED_ORIGINS env var for production.")
	} else {
		// Normalize comma-separated list (trim whitespace around entries)
		if allowedOrigins != "*" {
			parts := strings.Split(allowedOrigins, ",")
			for i, p := range parts {
				parts[i] = strings.TrimSpace(p)
			}
			allowedOrigins = strings.Join(parts, ",")
		}
	}

	log.Printf("CORS allowed origins: %s", allowedOrigins)

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true, // Required for cookies
	}))

	// Setup routes
	api.SetupRoutes(app, db)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("Server starting on port %s", port)
	log.Fatal(app.Listen(":" + port))
}

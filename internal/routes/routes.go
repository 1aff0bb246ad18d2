package routes

import (
	"obrolan/server/internal/handlers"
	"obrolan/server/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App) {
	// API v1 group
	api := app.Group("/api/v1")

	// Health check (public)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Obrolan API is running",
		})
	})

	// Auth routes (public)
	auth := api.Group("/auth")
	auth.Post("/register", middleware.StrictRateLimiter(), handlers.Register)
	auth.Post("/login", middleware.StrictRateLimiter(), handlers.Login)
	auth.Post("/refresh", middleware.StrictRateLimiter(), handlers.RefreshToken)
	auth.Post("/logout", middleware.AuthMiddleware, handlers.Logout)
	auth.Get("/me", middleware.AuthMiddleware, handlers.GetMe)

	// Profile routes (protected)
	users := api.Group("/users", middleware.AuthMiddleware)
	users.Put("/me", handlers.UpdateProfile)
	users.Get("/:userId", middleware.RelaxedRateLimiter(), handlers.GetProfile)

	// Contact routes (protected)
	contacts := api.Group("/contacts", middleware.AuthMiddleware)
	contacts.Get("/", handlers.GetRelationships)
	contacts.Get("/search", middleware.RelaxedRateLimiter(), handlers.SearchContacts)
	contacts.Post("/requests", middleware.ModerateRateLimiter(), handlers.SendContactRequest)
	contacts.Post("/requests/:id/accept", handlers.AcceptContactRequest)
	contacts.Post("/blocks", handlers.BlockUser)
	contacts.Delete("/blocks/:userId", handlers.UnblockUser)
	contacts.Delete("/:id", handlers.DeclineContactRequest)

	// Notification routes (protected)
	notifications := api.Group("/notifications", middleware.AuthMiddleware)
	notifications.Get("/", handlers.GetNotifications)
	notifications.Put("/read", handlers.MarkNotificationsRead)

	// Room routes (protected)
	rooms := api.Group("/rooms", middleware.AuthMiddleware)
	rooms.Get("/", handlers.GetRooms)
	rooms.Post("/groups", handlers.CreateGroup)
	rooms.Post("/direct", handlers.DirectRoom)
	rooms.Get("/vault", handlers.VaultRoom)
	rooms.Get("/:roomId", handlers.GetRoom)
	rooms.Get("/:roomId/messages", handlers.GetMessages)
	rooms.Post("/:roomId/messages", middleware.ModerateRateLimiter(), handlers.SendMessage)
	rooms.Post("/:roomId/block", handlers.BlockInRoom)
	rooms.Delete("/:roomId/block", handlers.UnblockInRoom)

	// Translation (protected)
	api.Post("/translate", middleware.AuthMiddleware, middleware.ModerateRateLimiter(), handlers.Translate)

	// Upload routes (protected)
	uploads := api.Group("/upload", middleware.AuthMiddleware)
	uploads.Post("/file", middleware.UploadRateLimiter(), handlers.UploadFile)
	uploads.Post("/avatar", middleware.UploadRateLimiter(), handlers.UploadAvatar)

	// Serve uploaded files (public)
	app.Get("/uploads/:type/:filename", handlers.GetFile)

	// WebSocket route (protected)
	api.Get("/ws", middleware.AuthMiddleware, handlers.WebSocketUpgrade, websocket.New(handlers.WebSocketHandler))

	// WebSocket stats (protected, for debugging)
	api.Get("/ws/stats", middleware.AuthMiddleware, handlers.GetWebSocketStats)
}

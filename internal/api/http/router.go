package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/discord-ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/discord-ticket-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Servers        *handlers.ServersHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Get("/discord/url", cfg.Auth.AuthorizeURL)
	authGroup.Post("/discord/login", cfg.Auth.Login)
	authGroup.Get("/check", cfg.AuthMiddleware.Handle, cfg.Auth.Check)

	users := api.Group("/users", cfg.AuthMiddleware.Handle)
	users.Get("/me", cfg.Users.Me)
	users.Get("/:userId", cfg.Users.Profile)
	users.Post("/:userId/notes", cfg.Users.AddNote)

	servers := api.Group("/servers", cfg.AuthMiddleware.Handle)
	servers.Get("/", cfg.Servers.List)
	servers.Get("/:serverId", cfg.Servers.Get)
	servers.Post("/:serverId/moderators", cfg.Servers.AddModerator)
	servers.Delete("/:serverId/moderators/:moderatorId", cfg.Servers.RemoveModerator)
	servers.Post("/:serverId/categories", cfg.Servers.AddCategory)
	servers.Delete("/:serverId/categories/:categoryId", cfg.Servers.RemoveCategory)

	tickets := api.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/mine", cfg.Tickets.ListMine)
	tickets.Get("/server/:serverId", cfg.Tickets.ListByServer)
	tickets.Get("/server/:serverId/user", cfg.Tickets.SearchByUser)
	tickets.Get("/:ticketId", cfg.Tickets.GetTicket)
	tickets.Post("/:ticketId/messages", cfg.Tickets.AddMessage)
	tickets.Post("/:ticketId/notes", cfg.Tickets.AddNote)
	tickets.Put("/:ticketId/assign", cfg.Tickets.Assign)
	tickets.Put("/:ticketId/category", cfg.Tickets.ChangeCategory)
	tickets.Put("/:ticketId/close", cfg.Tickets.Close)
	tickets.Put("/:ticketId/reopen", cfg.Tickets.Reopen)
}

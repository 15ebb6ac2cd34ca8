package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskgate/deskgate/internal/api/http/handlers"
	"github.com/deskgate/deskgate/internal/auth"
	"github.com/deskgate/deskgate/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Staff          *handlers.StaffHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)

	authGroup.Post("/staff/login", cfg.Staff.Login)
	authGroup.Post("/password/reset/request", cfg.Staff.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Staff.ConfirmPasswordReset)

	protectedAuth := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protectedAuth.Post("/password/change", cfg.Staff.ChangePassword)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireUser())
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Get("/:id/events", cfg.Tickets.ListEvents)

	staffTickets := app.Group("/staff/tickets", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	staffTickets.Get("/", cfg.StaffTickets.ListTickets)
	staffTickets.Post("/bulk", cfg.StaffTickets.Bulk)
	staffTickets.Get("/:id", cfg.StaffTickets.GetTicket)
	staffTickets.Post("/:id/assign", cfg.StaffTickets.Assign)
	staffTickets.Post("/:id/transfer", cfg.StaffTickets.Transfer)
	staffTickets.Post("/:id/status", cfg.StaffTickets.Transition)
	staffTickets.Post("/:id/priority", cfg.StaffTickets.ChangePriority)
	staffTickets.Post("/:id/messages", cfg.StaffTickets.AddMessage)
	staffTickets.Get("/:id/events", cfg.StaffTickets.ListEvents)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireStaffRole(domain.StaffRoleAdmin))
	admin.Post("/routing-rules", cfg.Admin.CreateRoutingRule)
	admin.Get("/routing-rules", cfg.Admin.ListRoutingRules)
	admin.Put("/routing-rules/:id", cfg.Admin.UpdateRoutingRule)

	admin.Post("/teams", cfg.Admin.CreateTeam)
	admin.Get("/teams", cfg.Admin.ListTeams)
	admin.Put("/teams/:id", cfg.Admin.UpdateTeam)
	admin.Post("/teams/:id/members", cfg.Admin.AddTeamMember)
	admin.Delete("/teams/:id/members/:staffId", cfg.Admin.RemoveTeamMember)

	admin.Post("/sla-policies", cfg.Admin.CreateSlaPolicy)
	admin.Get("/sla-policies", cfg.Admin.ListSlaPolicies)

	admin.Post("/access-grants", cfg.Admin.GrantAccess)
	admin.Delete("/access-grants/:staffId/:teamId", cfg.Admin.RevokeAccess)
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/deskgate/deskgate/internal/api/http"
	"github.com/deskgate/deskgate/internal/api/http/handlers"
	"github.com/deskgate/deskgate/internal/auth"
	"github.com/deskgate/deskgate/internal/config"
	"github.com/deskgate/deskgate/internal/events"
	"github.com/deskgate/deskgate/internal/observability"
	"github.com/deskgate/deskgate/internal/persistence"
	"github.com/deskgate/deskgate/internal/repository"
	"github.com/deskgate/deskgate/internal/service"
	"github.com/deskgate/deskgate/internal/sla"
	"github.com/deskgate/deskgate/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	natsConn := persistence.NewNats(cfg.Nats, logger)
	defer natsConn.Close()

	store := repository.NewStore(pg.PoolHandle())
	resolver := sla.NewResolver(store.SlaPolicies())
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          store.Users(),
		StaffRepo:         store.Staff(),
		PasswordResetRepo: store.PasswordResets(),
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), store, cfg.Features.AccessGrants)

	routingService := service.NewRoutingService(store)
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		Store:      store,
		Resolver:   resolver,
		Dispatcher: dispatcher,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:       store,
		Resolver:    resolver,
		Routing:     routingService,
		Assignments: assignmentService,
		Dispatcher:  dispatcher,
	})
	bulkService := service.NewBulkService(ticketService, assignmentService)
	adminService := service.NewAdminService(store)

	notificationService := service.NewNotificationService(dispatcher, redis.Client, logger, cfg.Notification)
	automationService := service.NewAutomationService(dispatcher, natsConn.Conn, logger, cfg.Nats)
	worker.StartEventWorkers(notificationService, automationService)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, natsConn),
		Users:          handlers.NewUsersHandler(authService),
		Staff:          handlers.NewStaffHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketService, assignmentService, bulkService),
		Admin:          handlers.NewAdminHandler(routingService, adminService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

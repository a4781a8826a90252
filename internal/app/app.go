package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"github.com/AmanSingh544/ChatAppResponsive/internal/config"
	"github.com/AmanSingh544/ChatAppResponsive/internal/db"
	"github.com/AmanSingh544/ChatAppResponsive/internal/handlers"
	"github.com/AmanSingh544/ChatAppResponsive/internal/services"
	"github.com/AmanSingh544/ChatAppResponsive/internal/store"
	"github.com/AmanSingh544/ChatAppResponsive/internal/utils"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Users  *services.UserService
	Chat   *services.ChatService
	Tokens *services.Tokens
	Hub    *handlers.RoomManager
}

// NewDeps wires the services over st.
func NewDeps(st store.Store, cfg config.Server) Deps {
	tokens := services.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	return Deps{
		Users:  services.NewUserService(st, tokens),
		Chat:   services.NewChatService(st, cfg.HistoryLimit),
		Tokens: tokens,
		Hub:    handlers.NewRoomManager(),
	}
}

// NewServer builds the Fiber app with the REST API and the socket route.
func NewServer(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "chatd",
		DisableStartupMessage: true,
		ErrorHandler:          handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: log.Logger}))
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/signup", handlers.SignupHandler(d.Users))
	auth.Post("/login", handlers.LoginHandler(d.Users))
	auth.Post("/logout", handlers.LogoutHandler())

	user := api.Group("/user", handlers.AuthMiddleware(d.Tokens))
	user.Get("/alluser", handlers.ListUsersHandler(d.Users, d.Hub))
	user.Get("/profile/:id", handlers.GetProfileHandler(d.Users, d.Hub))
	handlers.NewRoomHandlers(d.Chat).Routes(user.Group("/room"))

	// Order matters: the upgrade check answers plain HTTP before auth runs.
	app.Use("/ws", handlers.WSUpgradeMiddleware)
	app.Use("/ws", handlers.AuthMiddleware(d.Tokens))
	app.Get("/ws", handlers.WebSocketHandler(d.Chat, d.Hub))

	return app
}

// OpenStore picks the backend: PostgreSQL when a database URL is set, an
// embedded Pebble store when a data path is set, memory otherwise.
func OpenStore(ctx context.Context, cfg config.Server) (store.Store, error) {
	switch {
	case cfg.DatabaseURL != "":
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("[app] using postgres store")
		return store.NewPostgres(pool), nil
	case cfg.DataPath != "":
		dir := filepath.Clean(cfg.DataPath)
		st, err := store.OpenPebble(dir, &pebble.Options{})
		if err != nil {
			return nil, fmt.Errorf("open pebble store %s: %w", dir, err)
		}
		log.Info().Str("path", dir).Msg("[app] using pebble store")
		return st, nil
	}
	log.Warn().Msg("[app] no DATABASE_URL or DATA_PATH set, data is kept in memory")
	return store.NewMemory(), nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config) error {
	st, err := OpenStore(ctx, cfg.Server)
	if err != nil {
		return err
	}
	defer func() { utils.LogError(st.Close(), "close store") }()

	app := NewServer(NewDeps(st, cfg.Server))

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info().Str("addr", addr).Msg("[app] listening")
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("[app] gracefully shutting down")
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("[app] server shutdown complete")
	return nil
}

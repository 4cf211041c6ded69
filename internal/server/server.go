package server

import (
	"fmt"
	"net"
	"time"

	"ai-pdfchat-client/internal/config"
	"ai-pdfchat-client/internal/controller"
	"ai-pdfchat-client/internal/devserver"
	"ai-pdfchat-client/internal/pkg/logger"
	"ai-pdfchat-client/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const logModule = "DevServer"

// Server is the reference chat backend: auth, sessions, messages, uploads
// and a token stream, all held in memory.
type Server struct {
	app   *fiber.App
	cfg   config.DevServerConfig
	log   logger.ILogger
	store *devserver.Store
}

func New(cfg config.DevServerConfig, log logger.ILogger) (*Server, error) {
	auth := devserver.NewAuth(cfg.JWTSecret)
	if err := auth.AddUser(cfg.DemoEmail, cfg.DemoPassword, cfg.DemoFullName); err != nil {
		return nil, fmt.Errorf("register demo user: %w", err)
	}
	store := devserver.NewStore()

	app := fiber.New(fiber.Config{
		BodyLimit:             20 * 1024 * 1024, // 20MB
		ErrorHandler:          serverutils.ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())
	app.Use(requestLogger(log))

	jwt := serverutils.JwtMiddleware(auth.Secret())
	controller.NewAuthController(auth).RegisterRoutes(app)
	controller.NewChatController(store).RegisterRoutes(app, jwt)
	controller.NewRagController(store, time.Duration(cfg.AnswerDelay)*time.Millisecond, log).RegisterRoutes(app, jwt)

	return &Server{app: app, cfg: cfg, log: log, store: store}, nil
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.log.Info(logModule, "Server is running", map[string]interface{}{
		"address": "http://localhost:" + s.cfg.Port,
		"user":    s.cfg.DemoEmail,
	})
	return s.app.Listen(":" + s.cfg.Port)
}

// Serve runs on an existing listener; tests pass one bound to port 0.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func requestLogger(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()
		log.Debug(logModule, "Request handled", map[string]interface{}{
			"method":   ctx.Method(),
			"path":     ctx.Path(),
			"status":   ctx.Response().StatusCode(),
			"duration": time.Since(start).String(),
		})
		return err
	}
}

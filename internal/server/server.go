package server

import (
    "context"
    "errors"
    "time"

    "github.com/gofiber/fiber/v2"

    "github.com/fxwallet/fxwallet/internal/config"
    "github.com/fxwallet/fxwallet/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
    app *fiber.App
    cfg config.Config
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(deps routes.Deps) (*Server, error) {
    app := fiber.New(fiber.Config{
        AppName:               deps.Cfg.AppName,
        ReadTimeout:           30 * time.Second,
        WriteTimeout:          30 * time.Second,
        DisableStartupMessage: !deps.Cfg.IsDev(),
        ErrorHandler:          errorHandler,
    })

    if err := routes.Setup(app, deps); err != nil {
        return nil, err
    }

    return &Server{app: app, cfg: deps.Cfg}, nil
}

// App exposes the underlying Fiber application, mainly for app.Test.
func (s *Server) App() *fiber.App {
    return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
    return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
    return s.app.ShutdownWithContext(ctx)
}

// errorHandler renders every error as {"error": message}.
func errorHandler(c *fiber.Ctx, err error) error {
    code := fiber.StatusInternalServerError
    message := "internal error"
    var fe *fiber.Error
    if errors.As(err, &fe) {
        code = fe.Code
        message = fe.Message
    }
    return c.Status(code).JSON(fiber.Map{"error": message})
}

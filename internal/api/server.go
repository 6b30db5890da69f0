package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/insightdelivered/finfeex/internal/logging"
)

// ServerConfig holds the fiber server settings.
type ServerConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MetricsEnabled bool
}

// bodyOverhead leaves room for multipart boundaries and form fields on top
// of the upload itself.
const bodyOverhead = 1 << 20

// NewApp builds the fiber app with middleware and all routes.
func NewApp(h *Handler, cfg ServerConfig) *fiber.App {
	bodyLimit := fiber.DefaultBodyLimit
	if h.maxUploadBytes > 0 {
		bodyLimit = int(h.maxUploadBytes) + bodyOverhead
	}

	app := fiber.New(fiber.Config{
		AppName:               "FinFeeX " + h.version,
		BodyLimit:             bodyLimit,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ErrorHandler:          h.errorHandler,
		DisableStartupMessage: true,
	})

	app.Use(h.requestLogger)
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	if cfg.MetricsEnabled && h.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(h.metrics.Handler()))
	}

	h.RegisterRoutes(app)
	return app
}

// requestLogger logs every request once its final status is known.
func (h *Handler) requestLogger(c *fiber.Ctx) error {
	start := time.Now()

	if err := c.Next(); err != nil {
		if herr := h.errorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	h.logger.Debug("Request handled",
		logging.F(logging.FieldMethod, c.Method()),
		logging.F(logging.FieldPath, c.Path()),
		logging.F(logging.FieldStatus, c.Response().StatusCode()),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()),
	)
	return nil
}

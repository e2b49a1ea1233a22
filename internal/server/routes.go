package server

import (
	"net/http"
	"time"

	"HealthAssistant/internal/assistant"
	"HealthAssistant/web"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	// Only loopback, link-local and private-range peers may set X-Forwarded-For.
	e.IPExtractor = echo.ExtractIPFromXFFHeader()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(LoggerMiddleware)

	renderer, err := web.NewRenderer()
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to parse page templates")
	}
	e.Renderer = renderer

	e.StaticFS("/static", web.Static())

	e.GET("/health", s.status.Handler)

	page := assistant.NewHandler(s.sessions, s.results, s.model)
	page.Register(e)

	return e
}

// LoggerMiddleware attaches a request-scoped zerolog logger carrying the
// request id and client address.
func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().
			Str("request_id", requestID).
			Str("ip", c.RealIP()).
			Logger()

		c.Set("logger", &logger)

		start := time.Now()
		err := next(c)
		logger.Debug().
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Dur("elapsed", time.Since(start)).
			Msg("Request handled")
		return err
	}
}

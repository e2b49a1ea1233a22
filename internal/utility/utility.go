package utility

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoggerFromContext returns the request-scoped logger set by the logger
// middleware, or the global logger when the middleware did not run.
func LoggerFromContext(c echo.Context) *zerolog.Logger {
	if logger, ok := c.Get("logger").(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	l := log.Logger
	return &l
}

func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// MealPlanFileName names a downloaded meal plan after the given day.
func MealPlanFileName(day time.Time) string {
	return fmt.Sprintf("google_meal_plan_%s.txt", day.Format(time.DateOnly))
}

/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and wires the page
handler to its session store, result store and model client.
*/
package server

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"HealthAssistant/internal/geminiservice"
	"HealthAssistant/internal/status"
	"HealthAssistant/internal/store"
	"HealthAssistant/internal/utility"
	"github.com/gorilla/sessions"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"
)

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	// results keeps each session's generated text in memory.
	results store.Service

	// model is the client for the hosted text-generation model.
	model *geminiservice.Client

	// sessions signs the cookie that carries the page flags.
	sessions sessions.Store

	// status reports host metrics and component health on /health.
	status *status.Reporter
}

// NewServer initializes a new Server instance and returns a configured *http.Server.
// It reads configuration from environment variables and sets network timeouts
// long enough for one model call.
func NewServer() *http.Server {
	// Attempt to parse port from environment; fallback to 8080 if not set or invalid.
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil || port == 0 {
		port = 8080
	}

	sessionStore, err := newSessionStore()
	if err != nil {
		log.Fatal().Err(err).Msg("Unable to configure sessions")
	}

	results := store.NewService()
	model := geminiservice.NewClient()
	if !model.Configured() {
		log.Warn().Msg("GOOGLE_API_KEY is not set; every generation will show an error")
	}

	newApp := &Server{
		port:     port,
		results:  results,
		model:    model,
		sessions: sessionStore,
		status: status.NewReporter(map[string]status.Checker{
			"result_store": results,
			"model":        model,
		}),
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", newApp.port),
		Handler:      newApp.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second, // Covers the model call plus rendering.
	}
	server.RegisterOnShutdown(results.Close)

	log.Info().Int("port", port).Str("model", model.Model()).Msg("Server configured")
	return server
}

// newSessionStore builds the cookie store. Production requires SESSION_SECRET;
// development falls back to a per-process random key, so sessions do not
// survive a restart.
func newSessionStore() (*sessions.CookieStore, error) {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "development"
	}
	isProd := appEnv == "production"

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		if isProd {
			return nil, fmt.Errorf("SESSION_SECRET environment variable is not set")
		}
		generated, err := utility.GenerateSecureToken(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate session secret: %w", err)
		}
		sessionSecret = generated
		log.Warn().Msg("SESSION_SECRET not set; using a random key for this process")
	}

	cookieStore := sessions.NewCookieStore([]byte(sessionSecret))
	cookieStore.MaxAge(12 * 60 * 60)
	cookieStore.Options.Path = "/"
	cookieStore.Options.HttpOnly = true
	cookieStore.Options.Secure = isProd
	cookieStore.Options.SameSite = http.SameSiteLaxMode

	log.Info().Str("app_env", appEnv).Bool("secure_cookies", isProd).Msg("Sessions initialized")
	return cookieStore, nil
}

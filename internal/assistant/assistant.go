package assistant

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"HealthAssistant/internal/geminiservice"
	"HealthAssistant/internal/store"
	"HealthAssistant/internal/utility"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

/* =================================================================================
							View Models
=================================================================================*/

// PageData is everything index.html needs for one render.
type PageData struct {
	ShowMealOptions bool
	Durations       []string
	HealthFocuses   []string
	Duration        string
	HealthFocus     string

	Result        *ResultView
	CanDownload   bool
	MealPlanStale bool
}

// ResultView is a stored result prepared for display.
type ResultView struct {
	Kind        string
	Heading     string
	HTML        template.HTML
	IsError     bool
	GeneratedAt string
}

// SelectionResponse answers background selection updates.
type SelectionResponse struct {
	Duration    string `json:"duration"`
	HealthFocus string `json:"condition"`
}

/* =================================================================================
							Handler
=================================================================================*/

// Handler serves the single assistant page and its form actions.
type Handler struct {
	sessions sessions.Store
	results  store.Service
	model    geminiservice.TextGenerator

	// now is swapped in tests to pin the download file name.
	now func() time.Time
}

// NewHandler wires the page to its session store, result store and model.
func NewHandler(sessionStore sessions.Store, results store.Service, model geminiservice.TextGenerator) *Handler {
	return &Handler{
		sessions: sessionStore,
		results:  results,
		model:    model,
		now:      time.Now,
	}
}

// Register mounts the page routes.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/", h.IndexHandler)
	e.POST("/actions/analysis", h.HealthAnalysisHandler)
	e.POST("/actions/meal", h.MealPlanOptionsHandler)
	e.POST("/actions/tips", h.HealthTipsHandler)
	e.POST("/meal-plan/selection", h.UpdateSelectionHandler)
	e.POST("/meal-plan/generate", h.GenerateMealPlanHandler)
	e.GET("/meal-plan/download", h.DownloadMealPlanHandler)
	e.POST("/reset", h.ResetHandler)
}

/*=================================================================================
									HANDLERS
=================================================================================*/

// IndexHandler renders the page from the session flags and stored results.
func (h *Handler) IndexHandler(c echo.Context) error {
	sess, state := loadState(h.sessions, c.Request())
	entry := h.results.Get(state.ID)

	data := PageData{
		ShowMealOptions: state.ShowMealOptions,
		Durations:       geminiservice.Durations,
		HealthFocuses:   geminiservice.HealthFocuses,
		Duration:        state.Duration,
		HealthFocus:     state.HealthFocus,
	}

	if entry.Display != nil {
		data.Result = newResultView(entry.Display)
	}
	if state.ShowMealOptions && entry.MealPlan != nil {
		data.CanDownload = matchesSelection(entry.MealPlan, state)
		data.MealPlanStale = !data.CanDownload
	}

	if err := saveState(sess, state, c.Response(), c.Request()); err != nil {
		return h.sessionError(c, err)
	}
	return c.Render(http.StatusOK, "index.html", data)
}

// HealthAnalysisHandler runs the "Health Analysis" button.
func (h *Handler) HealthAnalysisHandler(c echo.Context) error {
	return h.runFixedPrompt(c, store.KindHealthAnalysis,
		"🏥 Your Health Analysis", geminiservice.HealthAnalysisPrompt)
}

// HealthTipsHandler runs the "Health Tips" button.
func (h *Handler) HealthTipsHandler(c echo.Context) error {
	return h.runFixedPrompt(c, store.KindHealthTips,
		"💡 Health & Wellness Tips", geminiservice.HealthTipsPrompt)
}

// MealPlanOptionsHandler runs the "Meal Plan" button: it only reveals the
// options panel, and like a fresh page run it clears the shown result.
func (h *Handler) MealPlanOptionsHandler(c echo.Context) error {
	sess, state := loadState(h.sessions, c.Request())
	state.ShowMealOptions = true

	h.results.ClearDisplay(state.ID)

	if err := saveState(sess, state, c.Response(), c.Request()); err != nil {
		return h.sessionError(c, err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// UpdateSelectionHandler stores a new duration/focus without generating.
// The displayed result is left alone until the plan is regenerated.
func (h *Handler) UpdateSelectionHandler(c echo.Context) error {
	sess, state := loadState(h.sessions, c.Request())

	if msg := applySelection(c, &state); msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	if err := saveState(sess, state, c.Response(), c.Request()); err != nil {
		return h.sessionError(c, err)
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, SelectionResponse{Duration: state.Duration, HealthFocus: state.HealthFocus})
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// GenerateMealPlanHandler runs "Generate My Meal Plan" for the submitted
// duration and focus.
func (h *Handler) GenerateMealPlanHandler(c echo.Context) error {
	logger := utility.LoggerFromContext(c)
	sess, state := loadState(h.sessions, c.Request())

	if msg := applySelection(c, &state); msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}
	state.ShowMealOptions = true

	logger.Info().
		Str("session_id", state.ID).
		Str("duration", state.Duration).
		Str("condition", state.HealthFocus).
		Msg("Generating meal plan")

	prompt := geminiservice.BuildMealPlanPrompt(state.Duration, state.HealthFocus)
	resp := geminiservice.Respond(c.Request().Context(), logger, h.model, prompt)

	result := &store.Result{
		Kind:        store.KindMealPlan,
		Title:       fmt.Sprintf("🍽️ %s Meal Plan for %s", state.Duration, state.HealthFocus),
		Text:        resp.Text,
		Failed:      resp.Failed,
		Duration:    state.Duration,
		HealthFocus: state.HealthFocus,
		GeneratedAt: h.now(),
	}
	h.results.SetDisplay(state.ID, result)

	// A failed generation leaves nothing to download.
	if resp.Failed {
		h.results.SetMealPlan(state.ID, nil)
	} else {
		h.results.SetMealPlan(state.ID, result)
	}

	if err := saveState(sess, state, c.Response(), c.Request()); err != nil {
		return h.sessionError(c, err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// DownloadMealPlanHandler serves the latest meal plan as a dated text file.
func (h *Handler) DownloadMealPlanHandler(c echo.Context) error {
	_, state := loadState(h.sessions, c.Request())
	plan := h.results.Get(state.ID).MealPlan

	if plan == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No meal plan has been generated yet"})
	}
	if !matchesSelection(plan, state) {
		return c.JSON(http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("The last meal plan was generated for %s / %s; generate again for %s / %s",
				plan.Duration, plan.HealthFocus, state.Duration, state.HealthFocus),
		})
	}

	fileName := utility.MealPlanFileName(h.now())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
	return c.Blob(http.StatusOK, "text/plain; charset=utf-8", []byte(plan.Text))
}

// ResetHandler forgets the session's flags and results.
func (h *Handler) ResetHandler(c echo.Context) error {
	sess, state := loadState(h.sessions, c.Request())
	h.results.Delete(state.ID)

	fresh := State{
		ID:          state.ID,
		Duration:    geminiservice.DefaultDuration,
		HealthFocus: geminiservice.DefaultHealthFocus,
	}
	if err := saveState(sess, fresh, c.Response(), c.Request()); err != nil {
		return h.sessionError(c, err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

/*=================================================================================
								HELPER FUNCTIONS
=================================================================================*/

// runFixedPrompt handles the two buttons whose prompt takes no input.
func (h *Handler) runFixedPrompt(c echo.Context, kind, title, prompt string) error {
	logger := utility.LoggerFromContext(c)
	sess, state := loadState(h.sessions, c.Request())

	logger.Info().Str("session_id", state.ID).Str("kind", kind).Msg("Running assistant action")

	resp := geminiservice.Respond(c.Request().Context(), logger, h.model, prompt)
	h.results.SetDisplay(state.ID, &store.Result{
		Kind:        kind,
		Title:       title,
		Text:        resp.Text,
		Failed:      resp.Failed,
		GeneratedAt: h.now(),
	})

	if err := saveState(sess, state, c.Response(), c.Request()); err != nil {
		return h.sessionError(c, err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// applySelection copies submitted dropdown values into state. Empty fields
// keep the current value; anything outside the offered options is rejected
// with a message for the visitor.
func applySelection(c echo.Context, state *State) string {
	duration := strings.TrimSpace(c.FormValue("duration"))
	condition := strings.TrimSpace(c.FormValue("condition"))

	if duration != "" {
		if !geminiservice.IsValidDuration(duration) {
			return fmt.Sprintf("Invalid duration '%s'", duration)
		}
		state.Duration = duration
	}
	if condition != "" {
		if !geminiservice.IsValidHealthFocus(condition) {
			return fmt.Sprintf("Invalid health focus '%s'", condition)
		}
		state.HealthFocus = condition
	}
	return ""
}

func matchesSelection(plan *store.Result, state State) bool {
	return plan.Duration == state.Duration && plan.HealthFocus == state.HealthFocus
}

func newResultView(r *store.Result) *ResultView {
	return &ResultView{
		Kind:        r.Kind,
		Heading:     r.Title,
		HTML:        renderMarkdown(r.Text),
		IsError:     r.Failed,
		GeneratedAt: r.GeneratedAt.Format("Jan 2, 2006 15:04"),
	}
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func (h *Handler) sessionError(c echo.Context, err error) error {
	utility.LoggerFromContext(c).Error().Err(err).Msg("Failed to save session")
	return echo.NewHTTPError(http.StatusInternalServerError, "Could not save your session")
}

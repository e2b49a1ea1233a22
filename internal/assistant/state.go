package assistant

import (
	"net/http"

	"HealthAssistant/internal/geminiservice"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// SessionName is the cookie that carries the page state.
const SessionName = "health_assistant"

// Session keys.
const (
	keyID              = "id"
	keyShowMealOptions = "show_meal_options"
	keyDuration        = "duration"
	keyCondition       = "condition"
)

// State is the per-visit page state kept in the signed session cookie.
// Generated text is too large for a cookie and lives in the result store,
// keyed by ID; the kind of the stored result records which button produced it.
type State struct {
	ID              string
	ShowMealOptions bool
	Duration        string
	HealthFocus     string
}

// loadState reads the session, starting a fresh one when the cookie is
// missing or no longer decodes.
func loadState(store sessions.Store, r *http.Request) (*sessions.Session, State) {
	// On a decode error gorilla still hands back a usable new session.
	sess, _ := store.Get(r, SessionName)

	state := State{
		ID:          stringValue(sess, keyID),
		Duration:    stringValue(sess, keyDuration),
		HealthFocus: stringValue(sess, keyCondition),
	}
	state.ShowMealOptions, _ = sess.Values[keyShowMealOptions].(bool)

	if state.ID == "" {
		state.ID = uuid.NewString()
	}
	if !geminiservice.IsValidDuration(state.Duration) {
		state.Duration = geminiservice.DefaultDuration
	}
	if !geminiservice.IsValidHealthFocus(state.HealthFocus) {
		state.HealthFocus = geminiservice.DefaultHealthFocus
	}

	return sess, state
}

// saveState writes the state back; it must run before the response body.
func saveState(sess *sessions.Session, state State, w http.ResponseWriter, r *http.Request) error {
	sess.Values[keyID] = state.ID
	sess.Values[keyShowMealOptions] = state.ShowMealOptions
	sess.Values[keyDuration] = state.Duration
	sess.Values[keyCondition] = state.HealthFocus
	return sess.Save(r, w)
}

func stringValue(sess *sessions.Session, key string) string {
	v, _ := sess.Values[key].(string)
	return v
}

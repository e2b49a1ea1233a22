package store

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"
)

const defaultSize = 1024

// Result kinds, one per page action that produces text.
const (
	KindHealthAnalysis = "analysis"
	KindMealPlan       = "meal_plan"
	KindHealthTips     = "tips"
)

// Result is one piece of generated text and what it was generated for.
type Result struct {
	Kind  string
	Title string
	Text  string

	// Failed marks Text as an "Error: ..." message rather than model output.
	Failed bool

	// Duration and HealthFocus are only set for meal plans.
	Duration    string
	HealthFocus string

	GeneratedAt time.Time
}

// Entry holds everything kept for a single browser session.
type Entry struct {
	// Display is the result currently shown on the page.
	Display *Result

	// MealPlan is the most recently generated meal plan, offered for download.
	MealPlan *Result
}

// Service represents the in-memory store of per-session results.
type Service interface {
	// Health returns a map of health status information.
	Health() map[string]string

	Get(sessionID string) Entry
	SetDisplay(sessionID string, result *Result)
	ClearDisplay(sessionID string)
	SetMealPlan(sessionID string, result *Result)
	Delete(sessionID string)

	// Close drops every stored session.
	Close()
}

type service struct {
	mu        sync.Mutex
	cache     *lru.Cache[string, Entry]
	size      int
	evictions atomic.Int64
}

// NewService builds a store sized from RESULT_STORE_SIZE.
func NewService() Service {
	size, err := strconv.Atoi(os.Getenv("RESULT_STORE_SIZE"))
	if err != nil || size <= 0 {
		size = defaultSize
	}
	return New(size)
}

// New builds a store holding at most size sessions; the least recently used
// session is dropped when full.
func New(size int) Service {
	if size <= 0 {
		size = defaultSize
	}

	cache, err := lru.New[string, Entry](size)
	if err != nil {
		// Only possible with a non-positive size, which is ruled out above.
		log.Fatal().Err(err).Msg("Unable to create result store")
	}
	return &service{cache: cache, size: size}
}

func (s *service) Get(sessionID string) Entry {
	entry, _ := s.cache.Get(sessionID)
	return entry
}

func (s *service) SetDisplay(sessionID string, result *Result) {
	s.update(sessionID, func(e *Entry) { e.Display = result })
}

func (s *service) ClearDisplay(sessionID string) {
	s.update(sessionID, func(e *Entry) { e.Display = nil })
}

func (s *service) SetMealPlan(sessionID string, result *Result) {
	s.update(sessionID, func(e *Entry) { e.MealPlan = result })
}

// Delete shares update's lock, so an in-flight write cannot bring a deleted
// session back.
func (s *service) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Remove(sessionID)
}

// update serialises read-modify-write so two requests from the same session
// cannot lose each other's writes.
func (s *service) update(sessionID string, fn func(*Entry)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, _ := s.cache.Peek(sessionID)
	fn(&entry)
	if s.cache.Add(sessionID, entry) {
		s.evictions.Add(1)
	}
}

// Health reports occupancy of the store.
func (s *service) Health() map[string]string {
	stats := make(map[string]string)

	sessions := s.cache.Len()
	stats["status"] = "up"
	stats["sessions"] = strconv.Itoa(sessions)
	stats["capacity"] = strconv.Itoa(s.size)
	stats["evictions"] = strconv.FormatInt(s.evictions.Load(), 10)

	if sessions > s.size*8/10 { // 80% capacity
		stats["message"] = "The result store is near capacity; older sessions will lose their results."
	}

	return stats
}

func (s *service) Close() {
	log.Info().Int("sessions", s.cache.Len()).Msg("Dropping stored session results")
	s.cache.Purge()
}

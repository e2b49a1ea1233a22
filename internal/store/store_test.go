package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayAndMealPlanAreIndependent(t *testing.T) {
	s := New(8)

	plan := &Result{Kind: KindMealPlan, Text: "plan", Duration: "3 days", HealthFocus: "Gut Health"}
	s.SetDisplay("a", plan)
	s.SetMealPlan("a", plan)

	tips := &Result{Kind: KindHealthTips, Text: "tips"}
	s.SetDisplay("a", tips)

	entry := s.Get("a")
	assert.Same(t, tips, entry.Display)
	assert.Same(t, plan, entry.MealPlan)

	s.ClearDisplay("a")
	entry = s.Get("a")
	assert.Nil(t, entry.Display)
	assert.Same(t, plan, entry.MealPlan)
}

func TestSessionsAreIsolated(t *testing.T) {
	s := New(8)
	s.SetDisplay("a", &Result{Text: "for a"})

	assert.Nil(t, s.Get("b").Display)
	assert.Equal(t, "for a", s.Get("a").Display.Text)
}

func TestDelete(t *testing.T) {
	s := New(8)
	s.SetDisplay("a", &Result{Text: "x"})
	s.Delete("a")

	assert.Equal(t, Entry{}, s.Get("a"))
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	s := New(2)
	s.SetDisplay("a", &Result{Text: "a"})
	s.SetDisplay("b", &Result{Text: "b"})

	// Touch "a" so "b" is the oldest.
	_ = s.Get("a")
	s.SetDisplay("c", &Result{Text: "c"})

	assert.NotNil(t, s.Get("a").Display)
	assert.Nil(t, s.Get("b").Display)
	assert.NotNil(t, s.Get("c").Display)

	health := s.Health()
	assert.Equal(t, "2", health["sessions"])
	assert.Equal(t, "1", health["evictions"])
	assert.Contains(t, health, "message")
}

func TestNewServiceReadsSize(t *testing.T) {
	t.Setenv("RESULT_STORE_SIZE", "3")
	assert.Equal(t, "3", NewService().Health()["capacity"])

	t.Setenv("RESULT_STORE_SIZE", "nope")
	assert.Equal(t, fmt.Sprint(defaultSize), NewService().Health()["capacity"])
}

func TestConcurrentUpdatesKeepBothSlots(t *testing.T) {
	s := New(16)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetDisplay("shared", &Result{Text: "display"})
		}()
		go func() {
			defer wg.Done()
			s.SetMealPlan("shared", &Result{Text: "plan"})
		}()
	}
	wg.Wait()

	entry := s.Get("shared")
	require.NotNil(t, entry.Display)
	require.NotNil(t, entry.MealPlan)
}

func TestDeleteWaitsForInFlightUpdate(t *testing.T) {
	s := New(4).(*service)

	entered := make(chan struct{})
	release := make(chan struct{})
	go s.update("a", func(e *Entry) {
		close(entered)
		<-release
		e.Display = &Result{Text: "late write"}
	})
	<-entered

	deleted := make(chan struct{})
	go func() {
		s.Delete("a")
		close(deleted)
	}()

	select {
	case <-deleted:
		t.Fatal("Delete returned while an update held the entry")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-deleted
	assert.Equal(t, Entry{}, s.Get("a"))
}

func TestClose(t *testing.T) {
	s := New(4)
	s.SetDisplay("a", &Result{Text: "x"})
	s.Close()

	assert.Equal(t, "0", s.Health()["sessions"])
}

/*
Package status reports the runtime state of the process: host metrics gathered
with gopsutil plus the health maps of the services the page depends on.
*/
package status

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"golang.org/x/sync/errgroup"
)

const gb = 1024 * 1024 * 1024

// Checker is implemented by every service that can describe its own health.
type Checker interface {
	Health() map[string]string
}

// Reporter collects host metrics and component health.
type Reporter struct {
	StartTime time.Time

	// CPUSample is how long CPU usage is measured for; zero compares against
	// the previous call.
	CPUSample time.Duration

	components map[string]Checker
}

// NewReporter starts the uptime clock now.
func NewReporter(components map[string]Checker) *Reporter {
	return &Reporter{
		StartTime:  time.Now(),
		CPUSample:  200 * time.Millisecond,
		components: components,
	}
}

// Collect gathers everything concurrently. Individual metric failures are
// reported inline instead of failing the whole report.
func (r *Reporter) Collect(ctx context.Context) map[string]interface{} {
	report := map[string]interface{}{
		"status": "online",
	}
	var mu sync.Mutex
	set := func(key string, value interface{}) {
		mu.Lock()
		report[key] = value
		mu.Unlock()
	}

	g, grpCtx := errgroup.WithContext(ctx)

	// --- Task 1: Memory ---
	g.Go(func() error {
		v, err := mem.VirtualMemoryWithContext(grpCtx)
		if err != nil {
			set("memory", unavailable(err))
			return nil
		}
		set("memory", map[string]interface{}{
			"total_gb":     fmt.Sprintf("%.2f GB", float64(v.Total)/gb),
			"used_gb":      fmt.Sprintf("%.2f GB", float64(v.Used)/gb),
			"used_percent": fmt.Sprintf("%.2f%%", v.UsedPercent),
			"free_gb":      fmt.Sprintf("%.2f GB", float64(v.Free)/gb),
		})
		return nil
	})

	// --- Task 2: CPU ---
	g.Go(func() error {
		percent, err := cpu.PercentWithContext(grpCtx, r.CPUSample, false)
		if err != nil || len(percent) == 0 {
			set("cpu", unavailable(err))
			return nil
		}
		cores, _ := cpu.CountsWithContext(grpCtx, true)
		set("cpu", map[string]interface{}{
			"usage_percent": fmt.Sprintf("%.2f%%", percent[0]),
			"cores":         cores,
		})
		return nil
	})

	// --- Task 3: Disk (root partition) ---
	g.Go(func() error {
		d, err := disk.UsageWithContext(grpCtx, "/")
		if err != nil {
			set("disk", unavailable(err))
			return nil
		}
		set("disk", map[string]interface{}{
			"total_gb":     fmt.Sprintf("%.2f GB", float64(d.Total)/gb),
			"used_gb":      fmt.Sprintf("%.2f GB", float64(d.Used)/gb),
			"used_percent": fmt.Sprintf("%.2f%%", d.UsedPercent),
		})
		return nil
	})

	// --- Task 4: Host / runtime ---
	g.Go(func() error {
		runtime := map[string]interface{}{
			"uptime":     time.Since(r.StartTime).Round(time.Second).String(),
			"start_time": r.StartTime.Format(time.RFC3339),
		}
		if hInfo, err := host.InfoWithContext(grpCtx); err == nil {
			runtime["os"] = hInfo.OS
			runtime["platform"] = hInfo.Platform
			runtime["arch"] = hInfo.KernelArch
			runtime["hostname"] = hInfo.Hostname
		}
		set("runtime", runtime)
		return nil
	})

	// Component checks are cheap and in-memory.
	for name, checker := range r.components {
		set(name, checker.Health())
	}

	// Subtasks never return errors.
	_ = g.Wait()

	return report
}

// Handler serves the report as JSON.
func (r *Reporter) Handler(c echo.Context) error {
	report := r.Collect(c.Request().Context())
	return c.JSON(http.StatusOK, report)
}

func unavailable(err error) map[string]interface{} {
	msg := "no data"
	if err != nil {
		msg = err.Error()
		log.Warn().Err(err).Msg("Failed to read host metric")
	}
	return map[string]interface{}{"status": "unavailable", "error": msg}
}

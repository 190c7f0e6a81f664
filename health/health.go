package health

import (
	"context"
	"os"
	"time"

	"github.com/agentuity/itemcache/cache"
	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sync/errgroup"
)

// Status summarises a Report.
type Status string

const (
	// StatusOK means the store and, when configured, the shared cache answered.
	StatusOK Status = "ok"
	// StatusDegraded means the store is fine but the shared cache is not.
	// Reads still succeed.
	StatusDegraded Status = "degraded"
	// StatusDown means the store is unreachable.
	StatusDown Status = "down"
)

// DefaultTimeout bounds each dependency check.
const DefaultTimeout = 2 * time.Second

// Pinger is anything that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreReport describes the durable store.
type StoreReport struct {
	Engine string `json:"engine"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// SharedReport describes the shared cache.
type SharedReport struct {
	Enabled bool   `json:"enabled"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// CacheReport describes the local cache.
type CacheReport struct {
	Size        int    `json:"size"`
	Capacity    int    `json:"capacity"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
}

// ProcessReport carries process resource usage. Zero when unavailable.
type ProcessReport struct {
	RSSBytes uint64 `json:"rss_bytes"`
	RSS      string `json:"rss,omitempty"`
}

// Report is the liveness probe result.
type Report struct {
	Status  Status        `json:"status"`
	Store   StoreReport   `json:"store"`
	Shared  SharedReport  `json:"shared"`
	Cache   CacheReport   `json:"cache"`
	Process ProcessReport `json:"process"`
}

// Sizer reports the local cache occupancy.
type Sizer interface {
	Len() int
	Cap() int
	Stats() cache.LRUStats
}

// Checker probes the store and shared cache independently.
type Checker struct {
	Store       Pinger
	StoreEngine string
	// Shared is nil when the shared tier is disabled.
	Shared  Pinger
	Local   Sizer
	Timeout time.Duration
}

// Check pings the store and shared cache concurrently. A failed dependency
// is reported, never returned as an error.
func (c *Checker) Check(ctx context.Context) Report {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	report := Report{
		Store:  StoreReport{Engine: c.StoreEngine},
		Shared: SharedReport{Enabled: c.Shared != nil},
	}
	if c.Local != nil {
		stats := c.Local.Stats()
		report.Cache = CacheReport{
			Size:        c.Local.Len(),
			Capacity:    c.Local.Cap(),
			Evictions:   stats.Evictions,
			Expirations: stats.Expirations,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		report.Store.OK, report.Store.Error = ping(gctx, c.Store, timeout)
		return nil
	})
	if c.Shared != nil {
		g.Go(func() error {
			report.Shared.OK, report.Shared.Error = ping(gctx, c.Shared, timeout)
			return nil
		})
	}
	g.Go(func() error {
		if n := rss(gctx); n > 0 {
			report.Process = ProcessReport{RSSBytes: n, RSS: humanize.IBytes(n)}
		}
		return nil
	})
	_ = g.Wait()

	switch {
	case !report.Store.OK:
		report.Status = StatusDown
	case report.Shared.Enabled && !report.Shared.OK:
		report.Status = StatusDegraded
	default:
		report.Status = StatusOK
	}
	return report
}

func ping(ctx context.Context, p Pinger, timeout time.Duration) (bool, string) {
	if p == nil {
		return false, "not configured"
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func rss(ctx context.Context) uint64 {
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return 0
	}
	mem, err := proc.MemoryInfoWithContext(ctx)
	if err != nil || mem == nil {
		return 0
	}
	return mem.RSS
}

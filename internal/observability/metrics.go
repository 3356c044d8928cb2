package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-authoring/internal/platform/envutil"
	"github.com/yungbote/neurobridge-authoring/internal/platform/logger"
)

// Metrics collects service counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	apiRequests  *CounterVec
	apiLatency   *HistogramVec
	apiInflight  *GaugeVec
	generations  *CounterVec
	genLatency   *HistogramVec
	genCost      *CounterVec
	parseQuality *CounterVec
	cacheLookups *CounterVec
	versions     *CounterVec
	shrinkEvents *CounterVec
	reviews      *CounterVec
	pgStats      *GaugeVec
	redisUp      *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

// Init builds the process-wide collector when METRICS_ENABLED is set.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// New returns a standalone collector.
func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("authoring_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec("authoring_api_request_duration_seconds", "API latency by method/route.",
			[]string{"method", "route"}, []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}),
		apiInflight: NewGaugeVec("authoring_api_inflight_requests", "In-flight API requests.", nil),
		generations: NewCounterVec("authoring_generations_total", "Generation calls by mode/provider/outcome.", []string{"mode", "provider", "outcome"}),
		genLatency: NewHistogramVec("authoring_generation_duration_seconds", "Generation latency by mode.",
			[]string{"mode"}, []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160}),
		genCost:      NewCounterVec("authoring_generation_cost_usd_total", "Generation spend by model.", []string{"model"}),
		parseQuality: NewCounterVec("authoring_parse_total", "Payload recovery by mode/strategy/degraded.", []string{"mode", "strategy", "degraded"}),
		cacheLookups: NewCounterVec("authoring_generation_cache_total", "Generation cache lookups by result.", []string{"result"}),
		versions:     NewCounterVec("authoring_versions_total", "Version log writes by kind.", []string{"kind"}),
		shrinkEvents: NewCounterVec("authoring_content_shrink_total", "Saves that shrank a text field by field.", []string{"field"}),
		reviews:      NewCounterVec("authoring_reviews_total", "Reviews by mode/verdict.", []string{"mode", "verdict"}),
		pgStats:      NewGaugeVec("authoring_db_pool", "Database pool stats.", []string{"stat"}),
		redisUp:      NewGaugeVec("authoring_redis_up", "Redis reachability (1 up, 0 down).", nil),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.generations, m.genLatency, m.genCost, m.parseQuality, m.cacheLookups,
		m.versions, m.shrinkEvents, m.reviews, m.pgStats, m.redisUp,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, strconv.Itoa(status))
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) APIInflight(delta float64) {
	if m == nil {
		return
	}
	m.apiInflight.Add(delta)
}

// ObserveGeneration records one generation call. outcome is "ok" or an error code.
func (m *Metrics) ObserveGeneration(mode, provider, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.generations.Inc(mode, provider, outcome)
	if dur > 0 {
		m.genLatency.Observe(dur.Seconds(), mode)
	}
}

func (m *Metrics) AddGenerationCost(model string, usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.genCost.Add(usd, strings.TrimSpace(model))
}

func (m *Metrics) ObserveParse(mode, strategy string, degraded bool) {
	if m == nil {
		return
	}
	m.parseQuality.Inc(mode, strategy, strconv.FormatBool(degraded))
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.Inc("hit")
	} else {
		m.cacheLookups.Inc("miss")
	}
}

// IncVersion counts version log writes; kind is "save", "generation" or "restore".
func (m *Metrics) IncVersion(kind string) {
	if m == nil {
		return
	}
	m.versions.Inc(kind)
}

func (m *Metrics) IncShrink(field string) {
	if m == nil {
		return
	}
	m.shrinkEvents.Inc(field)
}

func (m *Metrics) IncReview(mode string, approved bool) {
	if m == nil {
		return
	}
	verdict := "rejected"
	if approved {
		verdict = "approved"
	}
	m.reviews.Inc(mode, verdict)
}

func scrapeInterval() time.Duration {
	d := envutil.Duration("METRICS_SCRAPE_INTERVAL", 15*time.Second)
	if d < time.Second {
		return time.Second
	}
	return d
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

// StartRedisCollector pings the generation cache's Redis on every scrape interval.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *goredis.Client) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
			}
		}
	}()
}

package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/baiirun/bidtrack/internal/metrics"
)

const (
	DefaultBaseURL  = "https://timor.tech/api/holiday/info"
	DefaultTimeout  = 10 * time.Second
	DefaultCacheTTL = 24 * time.Hour
)

// Options configures a Gateway. Zero values take the defaults above.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	CacheTTL   time.Duration
	Cache      Cache
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Health is a snapshot of how the remote holiday API has been behaving.
type Health struct {
	LastSuccess         time.Time `json:"lastSuccess,omitempty"`
	LastFailure         time.Time `json:"lastFailure,omitempty"`
	LastError           string    `json:"lastError,omitempty"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	Fallbacks           int       `json:"fallbacks"`
}

// Healthy is false once the latest remote call failed.
func (h Health) Healthy() bool {
	return h.ConsecutiveFailures == 0
}

// Gateway looks dates up in the remote holiday API.
type Gateway struct {
	baseURL string
	ttl     time.Duration
	cache   Cache
	client  *http.Client
	logger  *zap.Logger

	mu     sync.Mutex
	health Health
}

func NewGateway(opts Options) *Gateway {
	g := &Gateway{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		ttl:     opts.CacheTTL,
		cache:   opts.Cache,
		client:  opts.HTTPClient,
		logger:  opts.Logger,
	}
	if g.baseURL == "" {
		g.baseURL = DefaultBaseURL
	}
	if g.ttl <= 0 {
		g.ttl = DefaultCacheTTL
	}
	if g.cache == nil {
		g.cache = NewMemoryCache()
	}
	if g.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		g.client = &http.Client{Timeout: timeout}
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g
}

// IsBusinessDay reports whether date is a working day.
func (g *Gateway) IsBusinessDay(ctx context.Context, date time.Time) bool {
	return g.Info(ctx, date).IsBusinessDay(date)
}

// Info returns the holiday record for date. It never fails: lookups that
// can't reach the API yield a record with both flags false.
func (g *Gateway) Info(ctx context.Context, date time.Time) HolidayInfo {
	key := date.Format(DateLayout)

	if info, ok := g.cache.Get(ctx, key); ok {
		metrics.RecordCalendarLookup("cache_hit")
		return info
	}

	info, err := g.fetch(ctx, key)
	if err != nil {
		g.recordFailure(err)
		metrics.RecordCalendarLookup("fallback")
		g.logger.Warn("Holiday lookup failed, assuming ordinary day",
			zap.String("date", key),
			zap.Error(err),
		)
		return HolidayInfo{Date: key}
	}

	g.recordSuccess()
	metrics.RecordCalendarLookup("remote")
	g.cache.Set(ctx, key, info, g.ttl)
	return info
}

// Health returns the current health snapshot.
func (g *Gateway) Health() Health {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.health
}

// ClearCache drops every cached answer.
func (g *Gateway) ClearCache(ctx context.Context) {
	g.cache.Clear(ctx)
}

type apiResponse struct {
	Code    int `json:"code"`
	Holiday *struct {
		Holiday bool   `json:"holiday"`
		Work    bool   `json:"work"`
		Name    string `json:"name"`
	} `json:"holiday"`
}

// fetch performs one remote lookup. A well-formed response with a non-zero
// code or no holiday record is a valid "ordinary day" answer, not an error.
func (g *Gateway) fetch(ctx context.Context, date string) (HolidayInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/"+date, nil)
	if err != nil {
		return HolidayInfo{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		metrics.RecordCalendarRequest("error", time.Since(start))
		return HolidayInfo{}, fmt.Errorf("failed to call holiday API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordCalendarRequest(fmt.Sprintf("%d", resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return HolidayInfo{}, fmt.Errorf("holiday API returned status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return HolidayInfo{}, fmt.Errorf("failed to decode holiday response: %w", err)
	}

	info := HolidayInfo{Date: date}
	if body.Code == 0 && body.Holiday != nil {
		info.Holiday = body.Holiday.Holiday
		info.Work = body.Holiday.Work
		info.Name = body.Holiday.Name
	}
	return info, nil
}

func (g *Gateway) recordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.health.LastSuccess = time.Now()
	g.health.ConsecutiveFailures = 0
	metrics.SetCalendarUp(true)
}

func (g *Gateway) recordFailure(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.health.LastFailure = time.Now()
	g.health.LastError = err.Error()
	g.health.ConsecutiveFailures++
	g.health.Fallbacks++
	metrics.SetCalendarUp(false)
}

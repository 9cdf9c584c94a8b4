package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/taskhub/internal/core/port"
)

const (
	rateLimitProblemType  = "https://taskhub.example.com/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// IdentifierFunc extracts the identity a limit is scoped to, typically the
// client IP. Returning false skips the rule for this request.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule caps attempts per identity inside a sliding window.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter evaluates sliding-window rules against a shared attempt store.
// Store failures never block traffic; the limiter fails open and logs.
type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// ProblemDetails is the RFC 9457 payload returned on a blocked request.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RateLimiter{store: store, logger: logger, now: time.Now}
}

// WithClock injects a custom clock, primarily for tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier scopes a rule to the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// decision is the outcome of checking one rule for one request.
type decision struct {
	allowed   bool
	limit     int
	remaining int
	resetAt   time.Time
	wait      time.Duration
}

// RateLimit returns a gin middleware enforcing the given rules. A request is
// blocked as soon as any rule denies it; otherwise the strictest rule's
// counters are exposed in the X-RateLimit headers.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	active := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		active = append(active, rule)
	}

	return func(c *gin.Context) {
		if len(active) == 0 || rl.store == nil {
			c.Next()
			return
		}

		now := rl.now()
		var strictest *decision

		for _, rule := range active {
			identity, ok := rule.Identifier(c)
			if !ok || identity == "" {
				continue
			}

			d, err := rl.check(c, rule, identity, now)
			if err != nil {
				rl.logger.Warn("rate limit check failed",
					zap.String("rule", rule.Name),
					zap.String("identity", identity),
					zap.Error(err))
				continue
			}

			if strictest == nil || stricter(d, *strictest) {
				snapshot := d
				strictest = &snapshot
			}

			if !d.allowed {
				writeRateLimitHeaders(c, d)
				rl.reject(c, d)
				return
			}
		}

		if strictest != nil {
			writeRateLimitHeaders(c, *strictest)
		}

		c.Next()
	}
}

func (rl *RateLimiter) check(c *gin.Context, rule RateLimitRule, identity string, now time.Time) (decision, error) {
	ctx := c.Request.Context()
	key := rule.Name + ":" + identity

	if err := rl.store.Prune(ctx, key, rule.Window, now); err != nil {
		return decision{}, err
	}

	count, err := rl.store.Count(ctx, key, rule.Window, now)
	if err != nil {
		return decision{}, err
	}

	// The window resets when the oldest surviving attempt ages out.
	resetAt := now.Add(rule.Window)
	if earliest, found, err := rl.store.Earliest(ctx, key, rule.Window, now); err != nil {
		return decision{}, err
	} else if found {
		resetAt = earliest.Add(rule.Window)
	}

	if count >= rule.Limit {
		return decision{
			allowed:   false,
			limit:     rule.Limit,
			remaining: 0,
			resetAt:   resetAt,
			wait:      max(resetAt.Sub(now), 0),
		}, nil
	}

	if err := rl.store.Record(ctx, key, now); err != nil {
		return decision{}, err
	}

	return decision{
		allowed:   true,
		limit:     rule.Limit,
		remaining: max(rule.Limit-count-1, 0),
		resetAt:   resetAt,
	}, nil
}

// stricter orders decisions for header reporting: denials first, then fewer
// remaining attempts, then the earlier reset.
func stricter(a, b decision) bool {
	if a.allowed != b.allowed {
		return !a.allowed
	}
	if a.remaining != b.remaining {
		return a.remaining < b.remaining
	}
	return a.resetAt.Before(b.resetAt)
}

func writeRateLimitHeaders(c *gin.Context, d decision) {
	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.resetAt.Unix(), 10))

	if !d.allowed {
		h.Set("Retry-After", strconv.Itoa(retrySeconds(d)))
	}
}

func (rl *RateLimiter) reject(c *gin.Context, d decision) {
	seconds := retrySeconds(d)

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", seconds),
		Instance:   instance,
		RetryAfter: seconds,
		TraceID:    GetTraceID(c),
	})
}

func retrySeconds(d decision) int {
	return max(int(math.Ceil(d.wait.Seconds())), 0)
}

package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/friend_calendar/internal/response"
	"github.com/mroshb/friend_calendar/pkg/errors"
)

// RateLimiter is a fixed-window in-memory limiter keyed by user id, or by
// client IP for anonymous requests.
type RateLimiter struct {
	userLimits map[uint]*window
	ipLimits   map[string]*window
	mu         sync.Mutex

	userMaxRequests int
	ipMaxRequests   int
	window          time.Duration
	now             func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	requests  int
	resetTime time.Time
}

// NewRateLimiter creates a limiter and starts its cleanup goroutine. Call
// Stop to end it.
func NewRateLimiter(userMaxRequests, ipMaxRequests int, windowSize time.Duration) *RateLimiter {
	rl := &RateLimiter{
		userLimits:      make(map[uint]*window),
		ipLimits:        make(map[string]*window),
		userMaxRequests: userMaxRequests,
		ipMaxRequests:   ipMaxRequests,
		window:          windowSize,
		now:             time.Now,
		stop:            make(chan struct{}),
	}

	go rl.cleanup(5 * time.Minute)

	return rl
}

// CheckUserLimit counts one request for userID and reports whether it is allowed
func (rl *RateLimiter) CheckUserLimit(userID uint) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return hit(rl, rl.userLimits, userID, rl.userMaxRequests)
}

// CheckIPLimit counts one request for ip and reports whether it is allowed
func (rl *RateLimiter) CheckIPLimit(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return hit(rl, rl.ipLimits, ip, rl.ipMaxRequests)
}

func hit[K comparable](rl *RateLimiter, limits map[K]*window, key K, max int) bool {
	now := rl.now()

	limit, exists := limits[key]
	if !exists || now.After(limit.resetTime) {
		limits[key] = &window{requests: 1, resetTime: now.Add(rl.window)}
		return true
	}

	if limit.requests >= max {
		return false
	}

	limit.requests++
	return true
}

// GetUserRemaining returns remaining requests for user
func (rl *RateLimiter) GetUserRemaining(userID uint) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return remaining(rl.userLimits[userID], rl.userMaxRequests, rl.now())
}

// GetIPRemaining returns remaining requests for IP
func (rl *RateLimiter) GetIPRemaining(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return remaining(rl.ipLimits[ip], rl.ipMaxRequests, rl.now())
}

func remaining(limit *window, max int, now time.Time) int {
	if limit == nil || now.After(limit.resetTime) {
		return max
	}
	if left := max - limit.requests; left > 0 {
		return left
	}
	return 0
}

// cleanup removes expired entries
func (rl *RateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
		}

		rl.mu.Lock()
		now := rl.now()
		for userID, limit := range rl.userLimits {
			if now.After(limit.resetTime) {
				delete(rl.userLimits, userID)
			}
		}
		for ip, limit := range rl.ipLimits {
			if now.After(limit.resetTime) {
				delete(rl.ipLimits, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Reset clears all rate limits (useful for testing)
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.userLimits = make(map[uint]*window)
	rl.ipLimits = make(map[string]*window)
}

// Middleware limits authenticated callers per user and everyone else per
// IP. Mount it after Auth on protected groups.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var allowed bool
		var left int
		if p, ok := PrincipalFrom(c); ok {
			allowed = rl.CheckUserLimit(p.UserID)
			left = rl.GetUserRemaining(p.UserID)
		} else {
			ip := c.ClientIP()
			allowed = rl.CheckIPLimit(ip)
			left = rl.GetIPRemaining(ip)
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(left))
		if !allowed {
			response.Error(c, errors.New(errors.ErrCodeRateLimitExceeded, "too many requests, slow down"))
			return
		}
		c.Next()
	}
}

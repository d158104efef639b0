package ratelimit

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Rule is the limit applied to one route group.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Handler returns Fiber middleware enforcing rule per client IP. Limiter
// errors let the request through.
func Handler(limiter Allower, rule Rule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil || rule.Limit <= 0 {
			return c.Next()
		}

		key := rule.Name + ":" + c.IP()
		result, err := limiter.Allow(c.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Printf("[ratelimit] Check failed for %s, allowing request: %v", key, err)
			return c.Next()
		}

		setRateLimitHeaders(c, result)
		if !result.Allowed {
			log.Printf("[ratelimit] Limit exceeded for %s", key)
			return sendRateLimitExceeded(c, result)
		}
		return c.Next()
	}
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(c *fiber.Ctx, result *Result) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// sendRateLimitExceeded sends a 429 Too Many Requests response.
func sendRateLimitExceeded(c *fiber.Ctx, result *Result) error {
	retryAfter := int(result.RetryAfter.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Set("Retry-After", strconv.Itoa(retryAfter))

	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":   "Too Many Requests",
		"message": fmt.Sprintf("Rate limit exceeded. Please retry after %d seconds.", retryAfter),
	})
}

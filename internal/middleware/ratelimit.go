package middleware

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// SenderRateLimit throttles inbound messages per sender so one hot phone
// number cannot drain the extraction backends for everyone else.
func SenderRateLimit(perMinute int) fiber.Handler {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	limiterFor := func(sender string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[sender]
		if !ok {
			l = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
			limiters[sender] = l
		}
		return l
	}

	return func(c *fiber.Ctx) error {
		sender := c.Get("X-Sender-ID")
		if sender == "" {
			sender = c.IP()
		}
		if !limiterFor(sender).Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Muitas mensagens em sequência. Aguarde um instante.",
			})
		}
		return c.Next()
	}
}

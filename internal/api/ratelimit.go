// ratelimit.go - Admission rate limiting for replay endpoints
package api

import (
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimit admits at most perSecond requests per second with the given burst,
// shared by every route it wraps. A non-positive rate disables limiting.
func RateLimit(perSecond float64, burst int) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow() {
				return NewTooManyRequestsError("rate limit exceeded")
			}
			return next(c)
		}
	}
}

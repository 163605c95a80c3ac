// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements the daily-check throttle: one token bucket shared by
// every caller of the route it guards. The sweep is meant to be triggered by a
// scheduler a few times a day, so a single process-local bucket is enough to
// stop repeated triggers from re-sending the same reminders.
//
// The router mounts it on the daily-check route only. The Telegram webhook is
// never limited: Telegram retries on any non-200 answer, so a 429 there would
// amplify traffic instead of shedding it.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// maxRetryAfter caps the advertised Retry-After when the bucket cannot refill.
const maxRetryAfter = time.Hour

// RouteLimit returns a middleware that admits requests from a single bucket
// refilled at rps tokens per second, holding at most burst tokens (values
// below 1 are coerced to 1).
//
// A denied request gets a Retry-After header with the seconds until the next
// token. onLimit then writes the response; when it is nil a bare 429 is sent.
func RouteLimit(rps float64, burst int, onLimit gin.HandlerFunc) gin.HandlerFunc {
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", retryAfter(lim))
		if onLimit == nil {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		onLimit(c)
		c.Abort()
	}
}

// retryAfter reports, in whole seconds (at least 1), how long until lim can
// grant one token. The reservation is cancelled so the estimate costs nothing.
func retryAfter(lim *rate.Limiter) string {
	r := lim.Reserve()
	d := maxRetryAfter
	if r.OK() {
		d = min(r.Delay(), maxRetryAfter)
		r.Cancel()
	}
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

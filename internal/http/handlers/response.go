// Package handlers provides the HTTP handlers of the inspection bot.
//
// This file defines the response utilities shared by the handlers and the
// router fallbacks. Two response families exist:
//
//   - Acknowledgements: the webhook and the daily check always answer 200.
//     ack() writes {"ok":true}; plainOK() writes the literal "OK" for methods
//     those endpoints do not serve. Domain failures never change the status.
//   - Error envelopes: router fallbacks (404/405) and panics use fail()/Fail()
//     with a stable `code`. 5xx responses are logged with request context.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "route not found"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/annual-inspection-bot/internal/http/middleware"
)

// ErrorResponse is the standard error envelope.
//
// Fields:
//   - RequestID: Optional correlation ID, echoed from X-Request-ID header.
//   - Code: A stable, machine-readable string (see errors.go constants).
//   - Message: A human-readable error description.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// AckResponse is the body of every webhook and daily-check answer.
type AckResponse struct {
	OK bool `json:"ok"`
	// NotificationsSent is only present on a completed daily check.
	NotificationsSent *int `json:"notificationsSent,omitempty"`
}

// fail aborts the request with a structured error and logs server-side errors.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for the router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ack writes 200 {"ok":true}.
func ack(c *gin.Context) {
	c.JSON(http.StatusOK, AckResponse{OK: true})
}

// ackSent writes 200 {"ok":true,"notificationsSent":n}.
func ackSent(c *gin.Context, n int) {
	c.JSON(http.StatusOK, AckResponse{OK: true, NotificationsSent: &n})
}

// plainOK writes 200 "OK" for unsupported methods.
func plainOK(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

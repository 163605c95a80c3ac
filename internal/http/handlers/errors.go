// Package handlers defines the error codes used in HTTP error envelopes.
//
// Only the router fallbacks, the daily-check throttle and the recovery path
// produce error envelopes; the webhook and daily-check endpoints acknowledge
// every request.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "method_not_allowed",
//	  "message": "method not allowed"
//	}
package handlers

const (
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"
)

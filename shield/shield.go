// Package shield provides reusable HTTP hardening middleware for the ardoise
// engine. It consolidates security headers, JSON body limits, request tracing,
// and HEAD method handling into a single importable package.
//
// Usage:
//
//	r := chi.NewRouter()
//	r.Use(shield.HeadToGet)
//	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
//	r.Use(shield.MaxJSONBody(1 << 20))
//	r.Use(shield.TraceID)
//
// Or apply the default stack in one call:
//
//	for _, mw := range shield.DefaultStack() {
//	    r.Use(mw)
//	}
package shield

import "net/http"

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultStack returns the standard middleware stack for the engine's HTTP
// surface. Middleware is ordered: HeadToGet → SecurityHeaders → MaxJSONBody
// → TraceID. The body limit is generous because /restore and /sync carry
// full canvas payloads.
func DefaultStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxJSONBody(4 << 20),
		TraceID,
	}
}

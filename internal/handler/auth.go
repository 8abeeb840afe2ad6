// Package handler - Authenticated identity plumbing
//
// The server middleware authenticates requests and attaches the result
// to the request context; handlers read it from here and fail closed
// when it is missing.

package handler

import (
	"context"

	"github.com/MDValleLogic/netrunner-dashboard/internal/errors"
)

// Session is an authenticated dashboard caller. TenantID comes from the
// server-side token binding, never from request input.
type Session struct {
	TokenID  string
	TenantID string
	Admin    bool
}

type contextKey int

const (
	contextKeyDeviceID contextKey = iota
	contextKeySession
)

// WithDeviceID attaches an authenticated device id to the context.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, contextKeyDeviceID, deviceID)
}

// DeviceIDFromContext returns the authenticated device id, failing
// closed when the middleware did not run.
func DeviceIDFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(contextKeyDeviceID).(string)
	if !ok || id == "" {
		return "", errors.ErrInvalidCredential
	}
	return id, nil
}

// WithSession attaches an authenticated dashboard session to the context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKeySession, s)
}

// SessionFromContext returns the authenticated session, failing closed
// when the middleware did not run.
func SessionFromContext(ctx context.Context) (Session, error) {
	s, ok := ctx.Value(contextKeySession).(Session)
	if !ok {
		return Session{}, errors.ErrSessionRequired
	}
	return s, nil
}

// Package requestcontext carries request-scoped values between middleware,
// handlers and services.
package requestcontext

import (
	"context"
	"time"

	"dim/pkg/domain"
)

type (
	requestIDKey   struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	deviceIDKey    struct{}
	deviceKey      struct{}
	fingerprintKey struct{}
	callerKey      struct{}
	sessionIDKey   struct{}
	requestTimeKey struct{}
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id or "" outside an HTTP request.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithClientMetadata stores the client IP and raw User-Agent.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, ip)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey{}).(string)
	return v
}

func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(userAgentKey{}).(string)
	return v
}

func WithDeviceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, deviceIDKey{}, id)
}

func DeviceID(ctx context.Context) string {
	v, _ := ctx.Value(deviceIDKey{}).(string)
	return v
}

// WithDevice stores a human-readable device label such as "Firefox on Linux".
func WithDevice(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, deviceKey{}, label)
}

func Device(ctx context.Context) string {
	v, _ := ctx.Value(deviceKey{}).(string)
	return v
}

// WithDeviceFingerprint stores a coarse hash of the client software.
func WithDeviceFingerprint(ctx context.Context, fp string) context.Context {
	return context.WithValue(ctx, fingerprintKey{}, fp)
}

func DeviceFingerprint(ctx context.Context) string {
	v, _ := ctx.Value(fingerprintKey{}).(string)
	return v
}

// WithCaller stores the wallet address authenticated for this request.
func WithCaller(ctx context.Context, addr domain.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, addr)
}

// Caller returns the authenticated wallet address, zero when anonymous.
func Caller(ctx context.Context) domain.Address {
	v, _ := ctx.Value(callerKey{}).(domain.Address)
	return v
}

func WithSessionID(ctx context.Context, id domain.SessionID) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

func SessionID(ctx context.Context) domain.SessionID {
	v, _ := ctx.Value(sessionIDKey{}).(domain.SessionID)
	return v
}

// WithTime pins "now" for everything downstream of ctx.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the pinned request time, or time.Now outside a request.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

package log

import (
	"context"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
)

var current atomic.Pointer[zap.Logger]

func init() {
	_ = Configure(os.Getenv("DEBUG") == "true")
}

// Configure swaps the package logger: development output at debug level when
// debug is set, production JSON at info level otherwise.
func Configure(debug bool) error {
	build := zap.NewProduction
	if debug {
		build = zap.NewDevelopment
	}
	l, err := build()
	if err != nil {
		return err
	}
	current.Store(l)
	return nil
}

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	userIDKey    ctxKey = "user_id"
	sessionIDKey ctxKey = "session_id"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func WithSessionID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// UserID returns the authenticated user stored by WithUserID.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

func WithCtx(ctx context.Context) *zap.Logger {
	fields := []zap.Field{}

	if v, ok := ctx.Value(requestIDKey).(string); ok {
		fields = append(fields, zap.String("request_id", v))
	}
	if v, ok := ctx.Value(userIDKey).(int64); ok {
		fields = append(fields, zap.Int64("user_id", v))
	}
	if v, ok := ctx.Value(sessionIDKey).(int64); ok {
		fields = append(fields, zap.Int64("session_id", v))
	}

	return current.Load().With(fields...)
}

func With(fields ...zap.Field) *zap.Logger {
	return current.Load().With(fields...)
}

// Sync flushes buffered entries; call it before exit.
func Sync() {
	_ = current.Load().Sync()
}

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytbridge/internal/shared"
)

// HandlerFunc executes one command. Returning an error produces an error response.
type HandlerFunc func(ctx context.Context, req *Request) (Payload, error)

// Middleware wraps a HandlerFunc and returns a new HandlerFunc with additional behavior.
type Middleware func(HandlerFunc) HandlerFunc

// Router maps command names to handlers.
type Router struct {
	handlers    map[string]HandlerFunc
	middlewares []Middleware
	logger      *log.Logger
}

// NewRouter creates an empty [Router].
func NewRouter(logger *log.Logger) *Router {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Router{handlers: map[string]HandlerFunc{}, logger: logger}
}

// Use adds [Middleware] to the router's stack, applied in the order it's added.
//
// Middleware only wraps handlers registered after the call.
func (r *Router) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for command, wrapped with all registered middleware.
func (r *Router) Handle(command string, handler HandlerFunc) {
	r.handlers[command] = r.Apply(handler)
}

// Apply wraps a handler with all registered middleware.
//
// Middleware is applied in reverse order (last added wraps first).
func (r *Router) Apply(handler HandlerFunc) HandlerFunc {
	wrapped := handler
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}
	return wrapped
}

// Commands lists the registered command names in sorted order.
func (r *Router) Commands() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dispatch runs the handler for req and always returns exactly one response. Errors and
// panics become error responses carrying req's callId.
func (r *Router) Dispatch(ctx context.Context, req *Request) (resp Response) {
	logger := shared.WithLogger(r.logger, "command", req.Command, "callId", string(req.CallID))

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("handler panicked", "panic", rec, "stack", string(debug.Stack()))
			resp = Fail(req, fmt.Errorf("internal error: %v", rec))
		}
	}()

	handler, ok := r.handlers[req.Command]
	if !ok {
		err := unknownCommand(req.Command)
		logger.Warn("unknown command")
		return Fail(req, err)
	}

	payload, err := handler(ctx, req)
	if err != nil {
		logger.Error("command failed", "error", err)
		return Fail(req, err)
	}
	return OK(req, payload)
}

// Logging logs every command with its duration at debug level.
func Logging(logger *log.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request) (Payload, error) {
			start := time.Now()
			payload, err := next(ctx, req)
			logger.Debug("command handled", "command", req.Command, "callId", string(req.CallID),
				"duration", time.Since(start), "ok", err == nil)
			return payload, err
		}
	}
}

// commandError carries the message shown to the caller while keeping the sentinel for errors.Is.
type commandError struct {
	msg string
	err error
}

func (e *commandError) Error() string { return e.msg }
func (e *commandError) Unwrap() error { return e.err }

var errNotAuthenticated error = &commandError{msg: "Not authenticated", err: shared.ErrNotAuthenticated}

func unknownCommand(command string) error {
	return &commandError{msg: "Unknown command: " + command, err: shared.ErrUnknownCommand}
}

// IsNotAuthenticated reports whether err stems from a missing or rejected session.
func IsNotAuthenticated(err error) bool {
	return errors.Is(err, shared.ErrNotAuthenticated)
}

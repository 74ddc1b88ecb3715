// Package web contains a small web framework extension built on top of
// httptreemux. It carries the application's own signature for handlers
// (context plus a returned error) so middleware can wrap every response
// without every handler repeating the same plumbing.
package web

import (
	"context"
	"net/http"
	"os"
	"syscall"

	"github.com/dimfeld/httptreemux/v5"
)

// Handler is the signature app handlers use instead of the stdlib's. It
// lets middleware see and act on an error without handlers having to
// write their own response for every failure path.
type Handler func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

// Middleware wraps a Handler with cross-cutting behavior (logging, panic
// recovery, CORS) and returns a new Handler.
type Middleware func(Handler) Handler

// App is the entrypoint into the framework and implements http.Handler
// by wrapping httptreemux.
type App struct {
	mux      *httptreemux.ContextMux
	shutdown chan os.Signal
	mw       []Middleware
}

// NewApp constructs an App, wiring in shutdown so any handler can trigger
// a graceful shutdown (e.g. on seeing an unrecoverable integrity error)
// and a common middleware chain applied to every route.
func NewApp(shutdown chan os.Signal, mw ...Middleware) *App {
	return &App{
		mux:      httptreemux.NewContextMux(),
		shutdown: shutdown,
		mw:       mw,
	}
}

// ServeHTTP implements the http.Handler interface.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

// SignalShutdown sends a signal to the application signaling for it to
// gracefully shut down, used when a handler hits an error it has decided
// the process should not continue running past.
func (a *App) SignalShutdown() {
	a.shutdown <- syscall.SIGTERM
}

// Handle sets a handler function for a given HTTP method and path pair
// to the application server mux, running the App's own middleware chain
// followed by any route-specific middleware passed in.
func (a *App) Handle(method, group, path string, handler Handler, mw ...Middleware) {
	handler = wrapMiddleware(mw, handler)
	handler = wrapMiddleware(a.mw, handler)

	h := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := handler(ctx, w, r); err != nil {
			a.SignalShutdown()
			return
		}
	}

	finalPath := path
	if group != "" {
		finalPath = "/" + group + path
	}
	a.mux.Handle(method, finalPath, h)
}

// wrapMiddleware applies a slice of middleware, outermost first, around
// a final Handler.
func wrapMiddleware(mw []Middleware, handler Handler) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		if m := mw[i]; m != nil {
			handler = m(handler)
		}
	}
	return handler
}

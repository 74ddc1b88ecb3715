// Package mid contains the set of middleware functions the node's debug
// HTTP surface wraps every route with.
package mid

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/nonagon-chain/nonagon/business/web/errs"
	"github.com/nonagon-chain/nonagon/foundation/web"
)

// Logger logs every request as it comes in and as it finishes, including
// the time it took to process.
func Logger(log *zap.SugaredLogger) web.Middleware {
	return func(handler web.Handler) web.Handler {
		return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			start := time.Now()
			log.Infow("request started", "method", r.Method, "path", r.URL.Path, "remoteaddr", r.RemoteAddr)

			err := handler(ctx, w, r)

			log.Infow("request completed", "method", r.Method, "path", r.URL.Path, "since", time.Since(start))
			return err
		}
	}
}

// Errors handles errors coming out of the call chain, logging trusted
// errors at their declared status and everything else as a 500.
func Errors(log *zap.SugaredLogger) web.Middleware {
	return func(handler web.Handler) web.Handler {
		return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			log.Errorw("request error", "path", r.URL.Path, "ERROR", err)

			status := http.StatusInternalServerError
			if trusted := errs.GetTrusted(err); trusted != nil {
				status = trusted.Status
			}

			if respErr := web.Respond(ctx, w, errs.Response{Error: err.Error()}, status); respErr != nil {
				return respErr
			}
			return nil
		}
	}
}

// Panics recovers from any panic inside the handler chain and turns it
// into a trusted 500 error instead of crashing the server.
func Panics() web.Middleware {
	return func(handler web.Handler) web.Handler {
		return func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = errs.NewTrusted(fmt.Errorf("panic: %v\n%s", rec, debug.Stack()), http.StatusInternalServerError)
				}
			}()
			return handler(ctx, w, r)
		}
	}
}

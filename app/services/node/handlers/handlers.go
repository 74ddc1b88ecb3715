// Package handlers wires the node's debug HTTP surface: health checks,
// runtime variables, and a websocket stream of the node's diagnostic
// events. The settlement/transaction JSON-RPC API a public client would
// speak against is out of scope for the core and is not built here.
package handlers

import (
	"expvar"
	"net/http"
	"net/http/pprof"
	"os"

	"go.uber.org/zap"

	"github.com/nonagon-chain/nonagon/business/web/mid"
	"github.com/nonagon-chain/nonagon/business/web/v1/debug/checkgrp"
	"github.com/nonagon-chain/nonagon/foundation/node"
	"github.com/nonagon-chain/nonagon/foundation/web"
)

// MuxConfig contains all the mandatory systems required by the debug
// handlers.
type MuxConfig struct {
	Build    string
	Shutdown chan os.Signal
	Log      *zap.SugaredLogger
	Node     *node.Node
}

// DebugMux constructs the http.Handler serving every debug route: the
// standard library's pprof/expvar endpoints, the check endpoints, and
// the event stream.
func DebugMux(cfg MuxConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	app := web.NewApp(
		cfg.Shutdown,
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Panics(),
	)

	cgh := checkgrp.Handlers{
		Build: cfg.Build,
		Log:   cfg.Log,
		Node:  cfg.Node,
	}
	app.Handle(http.MethodGet, "", "/debug/readiness", cgh.Readiness)
	app.Handle(http.MethodGet, "", "/debug/liveness", cgh.Liveness)

	egh := eventsHandlers{node: cfg.Node, log: cfg.Log}
	app.Handle(http.MethodGet, "", "/debug/events", egh.stream)

	mux.Handle("/debug/readiness", app)
	mux.Handle("/debug/liveness", app)
	mux.Handle("/debug/events", app)

	return mux
}

// Package checkgrp maintains the readiness and liveness endpoints the
// debug surface exposes for orchestration probes.
package checkgrp

import (
	"context"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/nonagon-chain/nonagon/business/web/errs"
	"github.com/nonagon-chain/nonagon/foundation/node"
	"github.com/nonagon-chain/nonagon/foundation/web"
)

// Handlers manages the set of check endpoints.
type Handlers struct {
	Build string
	Log   *zap.SugaredLogger
	Node  *node.Node
}

// Readiness checks if the node is ready to accept traffic: it must have
// a block store open and a head it can report, whether genesis or the
// most recently applied block.
func (h Handlers) Readiness(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if _, err := h.Node.GetBlockByNumber(0); err != nil {
		return errs.NewTrustedf(http.StatusInternalServerError, "node not ready: %s", err)
	}

	data := struct {
		Status string `json:"status"`
	}{
		Status: "ok",
	}

	return web.Respond(ctx, w, data, http.StatusOK)
}

// Liveness reports basic health information about the running process.
// A 500 is never returned; liveness reporting the process can still
// service requests, not that everything is necessarily working.
func (h Handlers) Liveness(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	host, err := os.Hostname()
	if err != nil {
		host = "unavailable"
	}

	data := struct {
		Status    string `json:"status"`
		Build     string `json:"build"`
		Host      string `json:"host"`
		Pod       string `json:"pod,omitempty"`
		PodIP     string `json:"podIP,omitempty"`
		Node      string `json:"node,omitempty"`
		Namespace string `json:"namespace,omitempty"`
	}{
		Status:    "up",
		Build:     h.Build,
		Host:      host,
		Pod:       os.Getenv("KUBERNETES_PODNAME"),
		PodIP:     os.Getenv("KUBERNETES_NAMESPACE_POD_IP"),
		Node:      os.Getenv("KUBERNETES_NODENAME"),
		Namespace: os.Getenv("KUBERNETES_NAMESPACE"),
	}

	return web.Respond(ctx, w, data, http.StatusOK)
}

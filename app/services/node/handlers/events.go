package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nonagon-chain/nonagon/foundation/node"
)

// eventsHandlers serves a websocket stream of the node's diagnostic
// events (block production, batch settlement, peer housekeeping), the
// same raw messages the logger records, fanned out live to connected
// clients through foundation/events.
type eventsHandlers struct {
	node *node.Node
	log  *zap.SugaredLogger
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// stream upgrades the connection to a websocket and forwards every event
// the node's event bus emits until the client disconnects or the node
// shuts down.
func (h eventsHandlers) stream(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	id := uuid.NewString()
	ch := h.node.Events().Acquire(id)
	defer h.node.Events().Release(id)

	for msg := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return nil
		}
	}
	return nil
}

package dashboard

import (
	"encoding/json"
	"time"

	"github.com/mnemosync/mnemosync/internal/reconcile"
)

// Handler turns reconciliation events into dashboard messages.
type Handler struct {
	server *Server
}

var _ reconcile.Observer = (*Handler)(nil)

// NewHandler creates a Handler broadcasting through server.
func NewHandler(server *Server) *Handler {
	return &Handler{server: server}
}

// OnMutation implements reconcile.Observer.
func (h *Handler) OnMutation(m reconcile.Mutation, dryRun bool) {
	tags := []string(m.Tags)
	if tags == nil {
		tags = []string{}
	}
	h.send(MessageTypeCardUpdate, CardUpdateData{
		Action: m.Kind.String(),
		Front:  m.Front,
		Back:   m.Back,
		Tags:   tags,
		DryRun: dryRun,
	})
}

// OnComplete implements reconcile.Observer.
func (h *Handler) OnComplete(result *reconcile.Result) {
	h.send(MessageTypeSyncComplete, SyncCompleteData{
		Inserted:  result.Inserted(),
		Updated:   result.Updated(),
		Unchanged: result.Unchanged(),
		DryRun:    result.DryRun,
	})
}

func (h *Handler) send(typ MessageType, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		h.server.logger.Printf("Failed to marshal %s data: %v", typ, err)
		return
	}
	h.server.Broadcast(Message{
		Type:      typ,
		Timestamp: time.Now(),
		Data:      raw,
	})
}

package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/providers"
	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
)

// SSEHandler streams a client's packet status changes as server-sent events
type SSEHandler struct {
	eventBus  providers.EventBus
	heartbeat time.Duration

	mu      sync.Mutex
	streams map[string]int // client ID -> open streams
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		heartbeat: 30 * time.Second,
		streams:   make(map[string]int),
	}
}

// WithHeartbeat overrides the keep-alive interval
func (h *SSEHandler) WithHeartbeat(d time.Duration) *SSEHandler {
	h.heartbeat = d
	return h
}

// StreamClientPackets handles GET /api/clients/{id}/packets/events.
// Failed packets are reported as pending, like the packet list. The bus
// subscription ends with the request context.
func (h *SSEHandler) StreamClientPackets(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("id")
	if clientID == "" {
		respondWithError(w, http.StatusBadRequest, "client ID is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx)

	events, err := h.eventBus.Subscribe(ctx, providers.GetClientChannel(clientID))
	if err != nil {
		logger.Error().Err(err).Str("client_id", clientID).Msg("Failed to subscribe to packet events")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	h.track(clientID, 1)
	defer h.track(clientID, -1)

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	write := func(name, id string, payload any) bool {
		if err := writeSSE(w, name, id, payload); err != nil {
			logger.Debug().Err(err).Str("client_id", clientID).Msg("Packet stream write failed")
			return false
		}
		flusher.Flush()
		return true
	}

	if !write("connected", "", map[string]any{"client_id": clientID, "timestamp": time.Now()}) {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Str("client_id", clientID).Msg("Client disconnected from packet stream")
			return
		case <-ticker.C:
			if !write("heartbeat", "", map[string]any{"timestamp": time.Now()}) {
				return
			}
		case event, open := <-events:
			if !open {
				return
			}
			if event == nil {
				continue
			}
			view := *event
			if view.Status == entities.PacketStatusFailed {
				view.Status = entities.PacketStatusPending
			}
			if !write("packet_status", view.ID, &view) {
				return
			}
		}
	}
}

func writeSSE(w io.Writer, name, id string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}
	if id != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", id); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

func (h *SSEHandler) track(clientID string, delta int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := h.streams[clientID] + delta; n > 0 {
		h.streams[clientID] = n
	} else {
		delete(h.streams, clientID)
	}
}

// GetClientCount returns the number of open streams
func (h *SSEHandler) GetClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	count := 0
	for _, n := range h.streams {
		count += n
	}
	return count
}

package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"deskreport/internal/config"
	"deskreport/internal/infrastructure"
	"deskreport/pkg/contracts/domain"
	"deskreport/pkg/contracts/events"
)

// broadcastBuffer bounds the number of queued run events.
const broadcastBuffer = 256

type outbound struct {
	workspaceID string
	payload     []byte
}

// Hub fans report run events out to the websocket clients subscribed to the
// run's workspace.
type Hub struct {
	// Registered clients, grouped by workspace
	clients map[string]map[*Client]struct{}

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu      sync.RWMutex
	running bool

	cfg     config.WebSocketConfig
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewHub creates a hub. metrics may be nil.
func NewHub(cfg config.WebSocketConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		broadcast:  make(chan outbound, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled. All
// remaining clients are disconnected on return.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// RunChanged queues a status event for the run's workspace. It never blocks;
// events are dropped when the queue is full.
func (h *Hub) RunChanged(ctx context.Context, run *domain.ReportRun) {
	payload, err := json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.NewString(),
			Type:      events.MessageTypeRunStatus,
			Timestamp: time.Now().UTC(),
			TraceID:   infrastructure.GetTraceID(ctx),
		},
		Data: events.NewRunStatusEvent(run),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal run event",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- outbound{workspaceID: run.WorkspaceID, payload: payload}:
	default:
		h.logger.WarnContext(ctx, "broadcast queue full, dropping run event",
			slog.String("run_id", run.ID),
			slog.String("status", string(run.Status)))
	}
}

// Register subscribes a client. It returns false when the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Healthy reports whether the hub loop is running.
func (h *Hub) Healthy(context.Context) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.running {
		return errHubStopped
	}
	return nil
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	set, ok := h.clients[client.workspaceID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.workspaceID] = set
	}
	set[client] = struct{}{}
	h.mu.Unlock()

	ctx := client.context()
	h.addClientMetric(ctx, 1)
	h.logger.InfoContext(ctx, "client registered",
		slog.String("client_id", client.id),
		slog.String("workspace_id", client.workspaceID),
		slog.String("remote_addr", client.remoteAddr))

	welcome, err := json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			Type:      events.MessageTypeConnect,
			Timestamp: time.Now().UTC(),
			TraceID:   client.traceID,
		},
		Data: map[string]string{
			"client_id":    client.id,
			"workspace_id": client.workspaceID,
		},
	})
	if err == nil {
		select {
		case client.send <- welcome:
		default:
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	set, ok := h.clients[client.workspaceID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := set[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.workspaceID)
	}
	close(client.send)
	h.mu.Unlock()

	ctx := client.context()
	h.addClientMetric(ctx, -1)
	h.logger.InfoContext(ctx, "client unregistered",
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

func (h *Hub) deliver(msg outbound) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[msg.workspaceID]))
	for client := range h.clients[msg.workspaceID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	var slow []*Client
	for _, client := range targets {
		select {
		case client.send <- msg.payload:
		default:
			slow = append(slow, client)
		}
	}

	for _, client := range slow {
		h.logger.WarnContext(client.context(), "client send buffer full, disconnecting",
			slog.String("client_id", client.id))
		h.removeClient(client)
	}

	if h.metrics != nil {
		h.metrics.WebSocketBroadcasts.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("type", string(events.MessageTypeRunStatus)),
			attribute.Int("recipients", len(targets)-len(slow))))
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	h.running = false
	close(h.done)
	var n int64
	for ws, set := range h.clients {
		for client := range set {
			close(client.send)
			n++
		}
		delete(h.clients, ws)
	}
	h.mu.Unlock()

	h.addClientMetric(context.Background(), -n)
}

func (h *Hub) addClientMetric(ctx context.Context, delta int64) {
	if h.metrics != nil && delta != 0 {
		h.metrics.WebSocketClients.Add(ctx, delta)
	}
}

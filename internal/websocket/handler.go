package websocket

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/websocket"

	apierrors "deskreport/internal/errors"
	"deskreport/internal/infrastructure"
)

// Handler upgrades GET /ws?workspace=<id> requests and subscribes the
// connection to that workspace's run events.
type Handler struct {
	hub            *Hub
	upgrader       websocket.Upgrader
	allowedOrigins []string
	errorHandler   *apierrors.ErrorHandler
	logger         *slog.Logger
}

// NewHandler creates the upgrade handler. An empty allowedOrigins list
// accepts any origin.
func NewHandler(hub *Hub, allowedOrigins []string, errorHandler *apierrors.ErrorHandler) *Handler {
	h := &Handler{
		hub:            hub,
		allowedOrigins: allowedOrigins,
		errorHandler:   errorHandler,
		logger:         hub.logger.With(slog.String("handler", "websocket")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  hub.cfg.ReadBufferSize,
		WriteBufferSize: hub.cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 || slices.Contains(h.allowedOrigins, "*") {
		return true
	}
	if slices.Contains(h.allowedOrigins, origin) {
		return true
	}
	h.logger.WarnContext(r.Context(), "websocket origin not allowed",
		slog.String("origin", origin))
	return false
}

// ServeHTTP handles GET /ws
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := infrastructure.EnsureTraceID(r.Context())

	workspaceID := strings.TrimSpace(r.URL.Query().Get("workspace"))
	if workspaceID == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("workspace", "workspace is required"))
		return
	}
	if h.hub.Healthy(ctx) != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.WarnContext(ctx, "websocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("origin", r.Header.Get("Origin")))
		return
	}

	client := NewClient(h.hub, conn, workspaceID, r.RemoteAddr, infrastructure.GetTraceID(ctx))
	if !h.hub.Register(client) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

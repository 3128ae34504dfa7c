package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"deskreport/internal/config"
	apierrors "deskreport/internal/errors"
	"deskreport/internal/infrastructure"
	"deskreport/internal/shared/testutil"
	"deskreport/pkg/contracts/domain"
	"deskreport/pkg/contracts/events"
)

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		PingPeriod:      time.Second,
		PongWait:        2 * time.Second,
	}
}

type hubFixture struct {
	hub    *Hub
	server *httptest.Server
	reader *sdkmetric.ManualReader
}

func startHub(t *testing.T) *hubFixture {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	metrics, err := infrastructure.CreateBusinessMetrics(provider.Meter("test"))
	require.NoError(t, err)

	hub := NewHub(testConfig(), metrics, logger)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	require.Eventually(t, func() bool { return hub.Healthy(ctx) == nil }, time.Second, 5*time.Millisecond)

	server := httptest.NewServer(NewHandler(hub, nil, apierrors.NewErrorHandler(logger, false)))
	t.Cleanup(func() {
		cancel()
		<-stopped
		server.Close()
	})
	return &hubFixture{hub: hub, server: server, reader: reader}
}

func (f *hubFixture) dial(t *testing.T, workspace string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?workspace=" + workspace
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) events.WebSocketMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg events.WebSocketMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_BroadcastsToWorkspaceSubscribers(t *testing.T) {
	f := startHub(t)

	subscriber := f.dial(t, "ws-1")
	other := f.dial(t, "ws-2")

	assert.Equal(t, events.MessageTypeConnect, readMessage(t, subscriber).Type)
	assert.Equal(t, events.MessageTypeConnect, readMessage(t, other).Type)
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	done := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	f.hub.RunChanged(context.Background(), &domain.ReportRun{
		ID: "run-1", WorkspaceID: "ws-1", ReportID: "r-1",
		Status: domain.RunStatusSucceeded, StartedAt: done, CompletedAt: &done,
		RowCount: 3, FileBytes: []byte("secret,payload\n"), FileName: "open_tickets.csv",
	})

	msg := readMessage(t, subscriber)
	assert.Equal(t, events.MessageTypeRunStatus, msg.Type)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "run-1", data["run_id"])
	assert.Equal(t, "succeeded", data["status"])
	assert.Equal(t, float64(3), data["row_count"])
	assert.NotContains(t, data, "file_bytes")

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "other workspaces must not receive the event")
}

func TestHub_ClientMetrics(t *testing.T) {
	f := startHub(t)

	conn := f.dial(t, "ws-1")
	readMessage(t, conn)
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "websocket_clients" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)
			assert.Equal(t, int64(0), sum.DataPoints[0].Value)
			return
		}
	}
	t.Fatal("websocket_clients metric not recorded")
}

func TestHandler_RequiresWorkspace(t *testing.T) {
	f := startHub(t)

	resp, err := http.Get(f.server.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var problem map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.Equal(t, "VALIDATION_FAILED", problem["error_code"])
}

func TestHandler_CheckOrigin(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(testConfig(), nil, logger)
	h := NewHandler(hub, []string{"https://desk.example.com"}, apierrors.NewErrorHandler(logger, false))

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://desk.example.com", true},
		{"https://evil.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws?workspace=ws-1", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, h.checkOrigin(r))
		})
	}
}

func TestHub_RunChangedNeverBlocks(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	hub := NewHub(testConfig(), nil, logger)

	run := &domain.ReportRun{ID: "run-1", WorkspaceID: "ws-1", Status: domain.RunStatusRunning}
	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+5; i++ {
			hub.RunChanged(context.Background(), run)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunChanged blocked without a running hub")
	}
	assert.True(t, logs.ContainsMessage("broadcast queue full, dropping run event"))
}

func TestHub_StoppedHubRejectsClients(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(testConfig(), nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	assert.Error(t, hub.Healthy(ctx))
	assert.False(t, hub.Register(NewClient(hub, nil, "ws-1", "127.0.0.1", "")))
}

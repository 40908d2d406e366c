package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/recipe-catalog/internal/model"
)

// dialTestServer starts a server for handler and connects one client to it.
func dialTestServer(t *testing.T, handler *WebSocketHandler) (*httptest.Server, *websocket.Conn) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		server.Close()
		t.Fatalf("Failed to connect: %v", err)
	}

	return server, conn
}

// waitForClients polls until the handler has registered n clients.
func waitForClients(t *testing.T, handler *WebSocketHandler, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if handler.ClientCount() == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("ClientCount() = %d, want %d", handler.ClientCount(), n)
}

func TestNewWebSocketHandler(t *testing.T) {
	// Arrange
	logger := zap.NewNop()

	// Act
	handler := NewWebSocketHandler(logger)

	// Assert
	if handler == nil {
		t.Fatal("NewWebSocketHandler() returned nil")
	}
	if handler.clients == nil {
		t.Error("clients map should be initialized")
	}
	if handler.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", handler.ClientCount())
	}
}

func TestWebSocketHandler_RegisterRoutes(t *testing.T) {
	// Arrange
	handler := NewWebSocketHandler(zap.NewNop())
	router := mux.NewRouter()

	// Act
	handler.RegisterRoutes(router)

	// Assert - a plain GET fails the upgrade but must not 404
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code == http.StatusNotFound {
		t.Error("Route /ws not found")
	}
}

func TestWebSocketHandler_HandleWebSocket_InvalidUpgrade(t *testing.T) {
	// Arrange
	handler := NewWebSocketHandler(zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rr := httptest.NewRecorder()

	// Act
	handler.HandleWebSocket(rr, req)

	// Assert
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if handler.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", handler.ClientCount())
	}
}

func TestWebSocketHandler_Notify(t *testing.T) {
	// Arrange
	handler := NewWebSocketHandler(zap.NewNop())
	server, conn := dialTestServer(t, handler)
	defer func() {
		handler.CloseAllConnections()
		server.Close()
	}()
	defer conn.Close()
	waitForClients(t, handler, 1)

	recipe := model.Recipe{ID: "abc", Name: "Waffles"}

	// Act
	handler.Notify(model.NewNotification(model.NotificationRecipeCreated, recipe))

	// Assert
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline() error: %v", err)
	}
	var got model.Notification
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error: %v", err)
	}
	if got.Type != model.NotificationRecipeCreated {
		t.Errorf("Type = %s, want %s", got.Type, model.NotificationRecipeCreated)
	}
	if got.RecipeID != "abc" || got.Name != "Waffles" {
		t.Errorf("notification = %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
}

func TestWebSocketHandler_Notify_MultipleClients(t *testing.T) {
	// Arrange
	handler := NewWebSocketHandler(zap.NewNop())
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer func() {
		handler.CloseAllConnections()
		server.Close()
	}()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	const numClients = 3
	conns := make([]*websocket.Conn, numClients)
	for i := range conns {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("Failed to connect client %d: %v", i, err)
		}
		defer conn.Close()
		conns[i] = conn
	}
	waitForClients(t, handler, numClients)

	// Act
	handler.Notify(model.NewNotification(model.NotificationRecipeDeleted, model.Recipe{ID: "1"}))

	// Assert
	for i, conn := range conns {
		if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
			t.Fatalf("SetReadDeadline() error: %v", err)
		}
		var got model.Notification
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("client %d ReadJSON() error: %v", i, err)
		}
		if got.Type != model.NotificationRecipeDeleted {
			t.Errorf("client %d Type = %s", i, got.Type)
		}
	}
}

func TestWebSocketHandler_Notify_NoClients(t *testing.T) {
	handler := NewWebSocketHandler(zap.NewNop())

	// Must not block or panic.
	handler.Notify(model.NewNotification(model.NotificationRecipeUpdated, model.Recipe{ID: "1"}))
}

func TestWebSocketHandler_Notify_DropsWhenBufferFull(t *testing.T) {
	// Arrange - a registered client whose pumps are not running
	handler := NewWebSocketHandler(zap.NewNop())
	server, conn := dialTestServer(t, handler)
	defer server.Close()
	defer conn.Close()
	waitForClients(t, handler, 1)

	stalled := &wsClient{send: make(chan model.Notification, 1), cancel: func() {}}
	stalled.conn = conn
	handler.mu.Lock()
	handler.clients[conn] = stalled
	handler.mu.Unlock()

	n := model.NewNotification(model.NotificationRecipeUpdated, model.Recipe{ID: "1"})

	// Act
	done := make(chan struct{})
	go func() {
		handler.Notify(n)
		handler.Notify(n)
		close(done)
	}()

	// Assert
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify() blocked on a full client buffer")
	}
	if len(stalled.send) != 1 {
		t.Errorf("buffered = %d, want 1", len(stalled.send))
	}

	handler.mu.Lock()
	delete(handler.clients, conn)
	handler.mu.Unlock()
}

func TestWebSocketHandler_ClientDisconnect(t *testing.T) {
	// Arrange
	handler := NewWebSocketHandler(zap.NewNop())
	server, conn := dialTestServer(t, handler)
	defer server.Close()
	waitForClients(t, handler, 1)

	// Act
	conn.Close()

	// Assert
	waitForClients(t, handler, 0)
}

func TestWebSocketHandler_CloseAllConnections_Empty(t *testing.T) {
	// Arrange
	handler := NewWebSocketHandler(zap.NewNop())

	// Act - Close all connections when there are none
	handler.CloseAllConnections()

	// Assert - No panic should occur
}

func TestWebSocketHandler_CloseAllConnections_WithConnections(t *testing.T) {
	// Arrange
	handler := NewWebSocketHandler(zap.NewNop())
	server, conn := dialTestServer(t, handler)
	defer server.Close()
	defer conn.Close()
	waitForClients(t, handler, 1)

	// Act
	handler.CloseAllConnections()

	// Assert - the client sees a close frame or a closed connection
	if err := conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
		t.Fatalf("SetReadDeadline() error: %v", err)
	}
	_, _, err := conn.ReadMessage()
	if err == nil {
		t.Error("Connection should be closed")
	}
	if handler.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", handler.ClientCount())
	}
}

func TestWebSocketHandler_SendPing(t *testing.T) {
	// Arrange
	handler := NewWebSocketHandler(zap.NewNop())
	pinged := make(chan struct{}, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := handler.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if err := handler.sendPing(conn); err != nil {
			t.Errorf("sendPing() error: %v", err)
		}
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	conn.SetPingHandler(func(string) error {
		pinged <- struct{}{}
		return nil
	})

	// Act - reading drives control frame handlers
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, _ = conn.ReadMessage()

	// Assert
	select {
	case <-pinged:
	default:
		t.Error("client did not receive a ping")
	}
}

func TestWebSocketConstants(t *testing.T) {
	if pingPeriod >= pongWait {
		t.Errorf("pingPeriod (%v) should be less than pongWait (%v)", pingPeriod, pongWait)
	}
	if writeWait <= 0 {
		t.Error("writeWait should be positive")
	}
	if maxMessageSize <= 0 {
		t.Error("maxMessageSize should be positive")
	}
	if sendBufferSize <= 0 {
		t.Error("sendBufferSize should be positive")
	}
}

func TestNopNotifier(t *testing.T) {
	var n Notifier = nopNotifier{}
	n.Notify(model.Notification{Type: model.NotificationRecipeCreated})
}

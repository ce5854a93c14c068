package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/asreval/domain"
	"github.com/satriahrh/asreval/domain/entities"
)

func setupTestHub(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(logger)
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/events", func(c echo.Context) error {
		return HandleWebSocket(hub, c, "tester", logger)
	})
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Client was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return hub, conn
}

func readRunMessage(t *testing.T, conn *websocket.Conn) *RunMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	msg, err := ParseRunMessage(data)
	if err != nil {
		t.Fatalf("Failed to parse message: %v", err)
	}
	return msg
}

func TestHub_BroadcastsRunLifecycle(t *testing.T) {
	hub, conn := setupTestHub(t)

	run := entities.NewRun("run-1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	hub.RunStarted(*run)

	msg := readRunMessage(t, conn)
	if msg.Type != MessageTypeRunStarted || msg.RunID != "run-1" || msg.Date != "2024-03-01" {
		t.Errorf("Unexpected started message %+v", msg)
	}

	run.AddResult(entities.SampleResult{SampleID: "a", Outcome: domain.OutcomeAccepted})
	run.AddResult(entities.SampleResult{SampleID: "b", Outcome: domain.OutcomeRejected})
	run.Transition(entities.RunStateDone)
	hub.RunFinished(*run)

	msg = readRunMessage(t, conn)
	if msg.Type != MessageTypeRunFinished {
		t.Errorf("Expected run_finished, got %s", msg.Type)
	}
	if msg.State != entities.RunStateDone || msg.Accepted != 1 || msg.Rejected != 1 || msg.Failed != 0 {
		t.Errorf("Unexpected finished message %+v", msg)
	}
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, conn := setupTestHub(t)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Client was not unregistered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_PublishWithoutClients(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	for i := 0; i < broadcastBuffer+5; i++ {
		hub.RunStarted(entities.Run{ID: "x"})
	}
}

func TestParseRunMessage_UnknownType(t *testing.T) {
	if _, err := ParseRunMessage([]byte(`{"type":"audio_chunk"}`)); err == nil {
		t.Error("Expected error for unknown type")
	}
	if _, err := ParseRunMessage([]byte(`not json`)); err == nil {
		t.Error("Expected error for invalid json")
	}
}

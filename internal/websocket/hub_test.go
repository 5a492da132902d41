package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"

	"textile-backend/internal/models"
)

func TestHubBroadcastsEvents(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	want := models.LotEvent{
		Type:      models.EventLotTransition,
		LotID:     uuid.New(),
		LotNumber: "L1",
		From:      models.StageGrey,
		To:        models.StageProcess,
		At:        time.Now().UTC().Truncate(time.Second),
	}
	hub.Publish(want)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got models.LotEvent
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.LotID != want.LotID || got.From != want.From || got.To != want.To || !got.At.Equal(want.At) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestPublishWithoutClients(t *testing.T) {
	hub := NewHub()
	// no Run loop: Publish must not block once the buffer is full
	for i := 0; i < 100; i++ {
		hub.Publish(models.LotEvent{Type: models.EventLotCreated, LotID: uuid.New()})
	}
	if hub.ClientCount() != 0 {
		t.Fatal("expected no clients")
	}
}

package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/protocol"
)

// scriptedServer upgrades every request on WSPath and hands the socket to fn
func scriptedServer(t *testing.T, fn func(r *http.Request, conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != WSPath {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		fn(r, conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeEvent(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	t.Helper()
	msg, err := protocol.Encode(eventType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"http://localhost:8080", "ws://localhost:8080/api/v1/ws", false},
		{"https://world.example.com/", "wss://world.example.com/api/v1/ws", false},
		{"ftp://nope", "", true},
	}
	for _, tt := range tests {
		got, err := WebsocketURL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestDialSendsBearerAndExchangesEvents(t *testing.T) {
	gotAuth := make(chan string, 1)
	received := make(chan []byte, 1)

	srv := scriptedServer(t, func(r *http.Request, conn *websocket.Conn) {
		gotAuth <- r.Header.Get("Authorization")
		writeEvent(t, conn, protocol.TypeInit, protocol.InitPayload{Self: player("me", 1, 2), Others: []model.PlayerState{}})
		_, msg, err := conn.ReadMessage()
		if err == nil {
			received <- msg
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := Dial(ctx, srv.URL, "tok")
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "Bearer tok", <-gotAuth)

	env, err := conn.Read()
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeInit, env.Type)

	require.NoError(t, conn.Send(protocol.TypeChat, protocol.ChatPayload{Text: "hi"}))
	select {
	case msg := <-received:
		in, err := protocol.Decode(msg)
		require.NoError(t, err)
		assert.Equal(t, protocol.KindChat, in.Kind)
		assert.Equal(t, "hi", in.Text)
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the chat event")
	}
}

func TestReadReturnsRejection(t *testing.T) {
	srv := scriptedServer(t, func(r *http.Request, conn *websocket.Conn) {
		writeEvent(t, conn, protocol.TypeRejected, protocol.RejectedPayload{Code: "invalid-token", Reason: "invalid token"})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(4401, "invalid token"))
	})

	conn, err := Dial(context.Background(), srv.URL, "bad")
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Read()
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "invalid-token", rejected.Code)
	assert.True(t, strings.Contains(err.Error(), "invalid token"))

	_, err = conn.Read()
	code, reason, ok := CloseReason(err)
	assert.True(t, ok)
	assert.Equal(t, 4401, code)
	assert.Equal(t, "invalid token", reason)
}

func TestRunFeedsReconciler(t *testing.T) {
	srv := scriptedServer(t, func(r *http.Request, conn *websocket.Conn) {
		writeEvent(t, conn, protocol.TypeInit, protocol.InitPayload{Self: player("me", 0, 0), Others: []model.PlayerState{player("a", 1, 1)}})
		writeEvent(t, conn, protocol.TypeJoined, player("b", 2, 2))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down"))
	})

	conn, err := Dial(context.Background(), srv.URL, "tok")
	require.NoError(t, err)
	defer conn.Close()

	rec := NewReconciler(conn, nil, nil)
	var seen []string
	err = conn.Run(rec, func(env protocol.Envelope) { seen = append(seen, env.Type) })

	assert.True(t, IsNormalClose(err))
	_, reason, ok := CloseReason(err)
	assert.True(t, ok)
	assert.Equal(t, "server shutting down", reason)
	assert.Equal(t, []string{protocol.TypeInit, protocol.TypeJoined}, seen)
	assert.Len(t, rec.Others(), 2)
}

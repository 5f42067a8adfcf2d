package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termbridge/termbridge/internal/logging"
	"github.com/termbridge/termbridge/internal/monitoring"
	"github.com/termbridge/termbridge/internal/protocol"
	"github.com/termbridge/termbridge/internal/surface"
	"github.com/termbridge/termbridge/internal/transport"
)

// fakeBridge is a minimal bridge: it confirms the first connect, echoes
// data frames back, and honors disconnect.
func fakeBridge(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.Decode(raw)
			if err != nil {
				continue
			}

			switch msg.Type {
			case protocol.TypeConnect:
				reply, _ := protocol.Encode(protocol.Message{
					Type: protocol.TypeConnected, SessionID: "bridge-1",
				})
				if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
					return
				}
			case protocol.TypeData:
				reply, _ := protocol.Encode(protocol.Message{
					Type: protocol.TypeData, Data: msg.Data,
				})
				if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
					return
				}
			case protocol.TypeDisconnect:
				return
			}
		}
	}))
}

func TestEngineOverRealTransport(t *testing.T) {
	srv := fakeBridge(t)
	defer srv.Close()

	surf := &fakeSurface{ready: true}
	engine := New(Options{
		Surface: surf,
		Prober:  &surface.Prober{ProbeDelay: time.Millisecond, FallbackDelay: time.Millisecond},
		Logger:  logging.NewNop(),
		Metrics: monitoring.New(prometheus.NewRegistry()),
	})
	controller := transport.New(transport.Options{
		URL: "ws" + strings.TrimPrefix(srv.URL, "http"),
	}, engine, logging.NewNop())
	engine.SetTransport(controller)
	engine.Start()

	require.NoError(t, engine.Connect(context.Background(), validConfig))

	require.Eventually(t, func() bool {
		return engine.Status() == StatusConnected
	}, 2*time.Second, 5*time.Millisecond, "session never established")
	assert.Equal(t, "bridge-1", engine.SessionID())

	engine.ForwardKeystrokes([]byte("uname -a\n"))

	require.Eventually(t, func() bool {
		for _, w := range surf.recorded() {
			if w == "raw:uname -a\n" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond, "echoed output never rendered")

	engine.Disconnect()
	assert.Equal(t, StatusDisconnected, engine.Status())
	assert.Empty(t, engine.SessionID())
}

package ws

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cargaslack/carga/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type staticValidator struct{}

func (staticValidator) ValidateAccessToken(token string) (*models.TokenClaims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &models.TokenClaims{UserID: 7, Username: "ana", Role: models.RoleViewer}, nil
}

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(nil)
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(NewHandler(hub, staticValidator{}, nil).HandleConnection))
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestRejectsMissingOrBadToken(t *testing.T) {
	_, url := startHub(t)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=nope", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestReadyBroadcastAndHeartbeat(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url+"?token=good")

	var ready struct {
		Op string    `json:"op"`
		D  ReadyData `json:"d"`
	}
	require.NoError(t, conn.ReadJSON(&ready))
	assert.Equal(t, OpReady, ready.Op)
	assert.Equal(t, int64(7), ready.D.UserID)

	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.BroadcastToAll(Event{Op: OpLogCreated, Data: models.ProcessingLog{SiteName: "loja", Status: models.LogSuccess}})
	hub.BroadcastToAll(Event{Op: OpProcessingFinished, Data: ProcessingFinishedData{RunID: "r1"}})

	var first, second struct {
		Op  string               `json:"op"`
		Seq int64                `json:"seq"`
		D   models.ProcessingLog `json:"d"`
	}
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, OpLogCreated, first.Op)
	assert.Equal(t, "loja", first.D.SiteName)

	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, OpProcessingFinished, second.Op)
	assert.Equal(t, first.Seq+1, second.Seq)

	require.NoError(t, conn.WriteJSON(Event{Op: OpHeartbeat}))
	var ack Event
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, OpHeartbeatAck, ack.Op)
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url+"?token=good")

	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestShutdownIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	hub.Shutdown()
	hub.Shutdown()
	hub.BroadcastToAll(Event{Op: OpLogCreated})
	assert.Zero(t, hub.ConnectionCount())
}

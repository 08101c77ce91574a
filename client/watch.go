package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cargaslack/carga/ws"
)

const heartbeatInterval = 30 * time.Second

// ErrNotSignedIn is returned by Watch when no token is stored.
var ErrNotSignedIn = errors.New("not signed in")

// Event is a live frame with its payload left raw; decode Data according
// to Op (ws.LogCreatedData, ws.ProcessingStartedData, ...).
type Event struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  int64           `json:"seq,omitempty"`
}

// WebsocketURL derives the /ws endpoint from the REST base URL.
func (a *API) WebsocketURL() (string, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(strings.TrimRight(u.Path, "/"), "/api") + "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// Watch streams live events to fn until ctx is done or the connection
// drops. Heartbeats are sent on the server's schedule. The ready frame is
// delivered like any other event.
func (a *API) Watch(ctx context.Context, fn func(Event)) error {
	token, ok := storedToken(a.store)
	if !ok {
		return ErrNotSignedIn
	}
	endpoint, err := a.WebsocketURL()
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint+"?token="+url.QueryEscape(token), nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket handshake: status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial: %w", err)
	}

	var (
		writeMu sync.Mutex
		wg      sync.WaitGroup
	)
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				writeMu.Lock()
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				writeMu.Unlock()
				conn.Close()
				return
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteJSON(ws.Event{Op: ws.OpHeartbeat})
				writeMu.Unlock()
				if err != nil {
					a.logger.Debug("heartbeat failed", zap.Error(err))
					return
				}
			}
		}
	}()
	defer func() {
		close(stop)
		wg.Wait()
		conn.Close()
	}()

	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("websocket read: %w", err)
		}
		if event.Op == ws.OpHeartbeatAck {
			continue
		}
		fn(event)
	}
}

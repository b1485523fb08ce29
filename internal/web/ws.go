package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cjeanneret/BoothGo/internal/booth"
	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/dispatch"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// clientMessage is what the kiosk page sends: {"type":"tap"} or
// {"type":"action","action":"email"}.
type clientMessage struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
}

// HandleWebSocket streams booth events to the screen and accepts taps and
// actions back.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		debug.Verbose("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch, unsub := h.Events.Subscribe()
	defer unsub()
	debug.Verbose("WebSocket client connected. Total: %d", h.Events.Clients())

	if h.Booth != nil {
		st := h.Booth.Status()
		hello, _ := json.Marshal(booth.Event{
			Type:    booth.EventState,
			State:   st.State,
			Label:   st.Label,
			Alpha:   st.Flash,
			Taken:   st.Taken,
			Total:   st.Total,
			Version: st.Version,
		})
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
			return
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readLoop(conn)
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *Handlers) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(MaxBodyBytes)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		var m clientMessage
		if err := conn.ReadJSON(&m); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				debug.Verbose("WebSocket read: %v", err)
			}
			return
		}
		if h.Booth == nil {
			continue
		}
		switch m.Type {
		case "tap":
			if h.allowTap() {
				h.Booth.Tap()
			}
		case "action":
			a, err := dispatch.ParseAction(m.Action)
			if err != nil {
				debug.Verbose("WebSocket: %v", err)
				continue
			}
			h.Booth.Act(a)
		default:
			debug.Verbose("WebSocket: unknown message type %q", m.Type)
		}
	}
}

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// StatsInterval is how often connected websockets get a stats packet.
var StatsInterval = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(req *http.Request) bool {
		return true
	},
}

// @Summary	Open websocket for realtime allocator statistics
// @Router		/api/ws [get]
// @Param		Upgrade	header	string	true	"websocket"
// @Tags		base
// @Success	101
func (a *Api) handleWebsocket(w http.ResponseWriter, req *http.Request) {
	ws, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		// the upgrader has already replied
		a.log.Debug("couldn't make websocket", "err", err)
		return
	}
	defer func(ws *websocket.Conn) {
		err := ws.Close()
		if err != nil {
			a.log.Debug("could not close websocket", "err", err)
		}
	}(ws)

	a.wsMu.Lock()
	a.wsClients[ws] = true
	a.wsMu.Unlock()
	a.Stats.ClientConnected()

	done := make(chan struct{})
	go a.websocketWriter(ws, done)

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			break
		}
		a.log.Debug("received websocket message", "msg", string(msg))
	}

	close(done)
	a.wsMu.Lock()
	delete(a.wsClients, ws)
	a.wsMu.Unlock()
	a.Stats.ClientDisconnected()
}

// writeStats holds wsMu while writing, connections allow only one
// concurrent writer.
func (a *Api) writeStats(ws *websocket.Conn) error {
	packet, err := json.Marshal(a.Stats.Snapshot())
	if err != nil {
		return err
	}
	a.wsMu.Lock()
	defer a.wsMu.Unlock()
	err = ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err != nil {
		return fmt.Errorf("could not set write deadline: %w", err)
	}
	return ws.WriteMessage(websocket.TextMessage, packet)
}

func (a *Api) websocketWriter(ws *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(StatsInterval)
	defer ticker.Stop()

	if err := a.writeStats(ws); err != nil {
		a.log.Debug("could not write to websocket", "err", err)
		return
	}
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := a.writeStats(ws); err != nil {
				a.log.Debug("could not write to websocket", "err", err)
				return
			}
		}
	}
}

// Broadcast sends v as JSON to every connected websocket.
func (a *Api) Broadcast(v any) {
	packet, err := json.Marshal(v)
	if err != nil {
		a.log.Error("could not encode websocket packet", "err", err)
		return
	}

	a.wsMu.Lock()
	defer a.wsMu.Unlock()
	for ws := range a.wsClients {
		err = ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err != nil {
			a.log.Debug("could not set write deadline", "err", err)
			continue
		}
		if err := ws.WriteMessage(websocket.TextMessage, packet); err != nil {
			a.log.Debug("could not write to websocket", "err", err)
		}
	}
}

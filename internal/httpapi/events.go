package httpapi

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rbright/flmcp/internal/mcpserver"
)

const (
	eventWriteWait = 5 * time.Second
	eventPingEvery = 30 * time.Second
)

// Event is one websocket message on /events.
type Event struct {
	Type     string                  `json:"type"`
	Exchange *mcpserver.ExchangeView `json:"exchange,omitempty"`
}

// newUpgrader extends the same-host origin check with the configured CORS
// origins. Requests without an Origin header are not from browsers.
func newUpgrader(origins []string) websocket.Upgrader {
	allowAll := slices.Contains(origins, "*")
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowAll || slices.Contains(origins, origin) {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
	}
}

// events streams every finished exchange to a websocket client until it
// disconnects or the feed closes.
func (h *handler) events(c *gin.Context) {
	// Subscribe before the handshake so nothing is missed once the client
	// sees the upgrade.
	sub := h.opts.Feed.Subscribe()
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("events upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeEvent(conn, Event{Type: "hello"}); err != nil {
		return
	}

	ping := time.NewTicker(eventPingEvery)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			return
		case entry, ok := <-sub.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"),
					time.Now().Add(eventWriteWait))
				return
			}
			view := mcpserver.ViewOf(entry)
			if err := writeEvent(conn, Event{Type: "exchange", Exchange: &view}); err != nil {
				h.logger.Debug("events write failed", "error", err.Error())
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventWriteWait)); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
	return conn.WriteJSON(ev)
}

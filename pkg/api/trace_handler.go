package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	wsReadBufferSize  = 1024
	wsWriteBufferSize = 1024
	wsWriteTimeout    = 10 * time.Second
)

// handleTrace streams the trace records of one handler over a websocket.
//
// The subscription is made before the upgrade so an unknown or stopped
// directory is answered with a plain JSON error. The stream ends when the
// client goes away or the handler stops.
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := strings.TrimSpace(r.URL.Query().Get("directory"))
	records, err := s.supervisor.Trace(ctx, dir)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsReadBufferSize,
		WriteBufferSize: wsWriteBufferSize,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("Trace upgrade failed - %s", err.Error())
		return
	}
	defer conn.Close()

	logger := log.WithField("directory", dir)
	logger.Debug("Trace client connected")

	// Clients never send anything, reading only detects the close
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for record := range records {
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
			return
		}
		if err := conn.WriteJSON(record); err != nil {
			logger.Debugf("Trace client went away - %s", err.Error())
			return
		}
	}

	logger.Debug("Trace stream finished")
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "handler stopped"),
		time.Now().Add(time.Second),
	)
}

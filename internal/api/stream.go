package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dgnsrekt/cfindicator/internal/indicator"
	"github.com/gobwas/ws"
)

// maxControlPayload is the largest control frame payload RFC 6455 allows.
const maxControlPayload = 125

// tabFilter parses the optional ?tab_id= query parameter into a broker
// subscription target.
func tabFilter(r *http.Request) (int, error) {
	q := r.URL.Query().Get("tab_id")
	if q == "" {
		return indicator.AllTabs, nil
	}
	id, err := strconv.Atoi(q)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid tab_id %q", q)
	}
	return id, nil
}

// SSEHandler streams indicator events as server-sent events.
func SSEHandler(broker *indicator.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}
		tabID, err := tabFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		id, ch := broker.Subscribe(tabID)
		defer broker.Unsubscribe(id)

		for {
			select {
			case <-r.Context().Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				payload, err := json.Marshal(evt)
				if err != nil {
					slog.Debug("sse event encode failed", "error", err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, payload)
				flusher.Flush()
			}
		}
	}
}

// WSHandler streams indicator events as WebSocket text frames. Only the
// handler goroutine writes to the connection: the reader forwards pong and
// close replies to it instead of writing them itself.
func WSHandler(broker *indicator.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tabID, err := tabFilter(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Debug("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		id, ch := broker.Subscribe(tabID)
		defer broker.Unsubscribe(id)

		replies := make(chan ws.Frame, 1)
		stop := make(chan struct{})
		defer close(stop)
		go readClientFrames(conn, replies, stop)

		for {
			select {
			case <-r.Context().Done():
				return
			case f, ok := <-replies:
				if !ok {
					return
				}
				if err := ws.WriteFrame(conn, f); err != nil {
					slog.Debug("websocket control write failed", "error", err)
					return
				}
				if f.Header.OpCode == ws.OpClose {
					return
				}
			case evt, ok := <-ch:
				if !ok {
					return
				}
				payload, err := json.Marshal(evt)
				if err != nil {
					slog.Debug("websocket event encode failed", "error", err)
					continue
				}
				if err := ws.WriteFrame(conn, ws.NewTextFrame(payload)); err != nil {
					slog.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}
}

// readClientFrames discards client data frames and turns pings and closes
// into reply frames for the writer. replies is closed when reading stops.
func readClientFrames(conn io.Reader, replies chan<- ws.Frame, stop <-chan struct{}) {
	defer close(replies)
	for {
		h, err := ws.ReadHeader(conn)
		if err != nil {
			return
		}
		if h.OpCode.IsControl() && h.Length > maxControlPayload {
			return
		}
		if !h.OpCode.IsControl() {
			if _, err := io.CopyN(io.Discard, conn, h.Length); err != nil {
				return
			}
			continue
		}

		payload := make([]byte, h.Length)
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}
		if h.Masked {
			ws.Cipher(payload, h.Mask, 0)
		}

		var reply ws.Frame
		switch h.OpCode {
		case ws.OpPing:
			reply = ws.NewPongFrame(payload)
		case ws.OpClose:
			reply = ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
		default:
			continue
		}
		select {
		case replies <- reply:
		case <-stop:
			return
		}
		if h.OpCode == ws.OpClose {
			return
		}
	}
}

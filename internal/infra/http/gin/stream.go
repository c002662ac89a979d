package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"warehub/internal/app/feed"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

// CORS already admits any origin, so the handshake does too.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// streamFrame is one websocket text message: a "snapshot" with the current
// items, then one "update" per live item, and an "error" if the stream is cut.
type streamFrame struct {
	Type  string `json:"type"`
	Items any    `json:"items,omitempty"`
	Item  any    `json:"item,omitempty"`
	Meta  any    `json:"meta,omitempty"`
	Error string `json:"error,omitempty"`
}

// serveStream upgrades the request and pumps stream into the socket until the
// client goes away or the stream ends. It owns stream and cancels it.
func serveStream[T any](c *gin.Context, logger *slog.Logger, stream *feed.Stream[T], meta any) {
	defer stream.Cancel()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if logger != nil {
			logger.Warn("websocket upgrade failed", "path", c.FullPath(), "error", err)
		}
		return
	}
	defer conn.Close()

	snapshot := stream.Snapshot
	if snapshot == nil {
		snapshot = []T{}
	}
	if err := writeFrame(conn, streamFrame{Type: "snapshot", Items: snapshot, Meta: meta}); err != nil {
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && logger != nil {
					logger.Debug("websocket read ended", "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case item, ok := <-stream.Updates:
			if !ok {
				closeStream(conn, logger, stream.Err())
				return
			}
			if err := writeFrame(conn, streamFrame{Type: "update", Item: item}); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, frame streamFrame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(frame)
}

func closeStream(conn *websocket.Conn, logger *slog.Logger, cause error) {
	code, text := websocket.CloseNormalClosure, ""
	if cause != nil {
		if logger != nil {
			logger.Info("stream ended early", "error", cause)
		}
		_ = writeFrame(conn, streamFrame{Type: "error", Error: cause.Error()})
		code, text = websocket.CloseInternalServerErr, "stream ended"
		if errors.Is(cause, feed.ErrSubscriberLagged) {
			code, text = websocket.CloseTryAgainLater, "subscriber lagged"
		}
	}
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteWait))
}

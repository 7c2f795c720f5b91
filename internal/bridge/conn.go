package bridge

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mattjoyce/cursor-voice/internal/protocol"
)

const writeWait = 5 * time.Second

// recognizerConn serializes writes to one websocket; gorilla connections
// support a single concurrent writer.
type recognizerConn struct {
	ws     *websocket.Conn
	logger *slog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newRecognizerConn(ws *websocket.Conn, logger *slog.Logger) *recognizerConn {
	return &recognizerConn{ws: ws, logger: logger}
}

func (c *recognizerConn) send(ctrl protocol.Control) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	w, err := c.ws.NextWriter(websocket.TextMessage)
	if err != nil {
		return fmt.Errorf("open frame: %w", err)
	}
	if err := protocol.EncodeControl(w, ctrl); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("flush frame: %w", err)
	}
	c.logger.Debug("sent control", "command", ctrl.Command)
	return nil
}

func (c *recognizerConn) close() {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced"),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.ws.Close()
	})
}

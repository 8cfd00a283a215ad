package communication

import (
	"context"
	"time"

	"nhooyr.io/websocket"
)

const socketTimeout time.Duration = 10 * time.Second

// WebsocketReaderWriter abstracts the full-duplex text channel so sessions
// can be exercised in tests without a network.
type WebsocketReaderWriter interface {
	WriteMessage(payload []byte) error
	ReadMessage() ([]byte, error)
	Close() error
}

type WsReaderWriter struct {
	conn *websocket.Conn
}

func NewWsReaderWriter(conn *websocket.Conn) WebsocketReaderWriter {
	return WsReaderWriter{conn: conn}
}

func (webSocket WsReaderWriter) ReadMessage() ([]byte, error) {
	_, payload, err := webSocket.conn.Read(context.Background())
	return payload, err
}

func (webSocket WsReaderWriter) WriteMessage(payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), socketTimeout)
	defer cancel()

	return webSocket.conn.Write(ctx, websocket.MessageText, payload)
}

func (webSocket WsReaderWriter) Close() error {
	return webSocket.conn.Close(websocket.StatusNormalClosure, "")
}

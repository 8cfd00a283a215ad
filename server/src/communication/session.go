package communication

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ashgrowen/auxroom/server/src/logger"
)

const sendBufferSize int = 64

// Session is one connected participant: a read pump feeding frames to the
// coordinator and a write pump draining the buffered send channel. Deliver is
// non-blocking; a full buffer or a dead peer marks the session closed and the
// coordinator evicts the bound user.
type Session struct {
	id          uuid.UUID
	coordinator *Coordinator
	websocket   WebsocketReaderWriter
	send        chan []byte
	closed      *atomic.Bool
	closeOnce   *sync.Once
	stopRequest chan struct{}
}

func NewSession(coordinator *Coordinator, websocket WebsocketReaderWriter) *Session {
	return &Session{
		id:          uuid.New(),
		coordinator: coordinator,
		websocket:   websocket,
		send:        make(chan []byte, sendBufferSize),
		closed:      &atomic.Bool{},
		closeOnce:   &sync.Once{},
		stopRequest: make(chan struct{}),
	}
}

func (session *Session) ID() uuid.UUID {
	return session.id
}

// Deliver enqueues a serialized message for the peer. It never blocks: a
// session that cannot keep up is treated as gone.
func (session *Session) Deliver(payload []byte) bool {
	if session.closed.Load() {
		return false
	}

	select {
	case session.send <- payload:
		return true
	default:
		logger.Warnw("Send buffer overflow, dropping session", "session", session.id)
		deliveryFailures.Inc()
		session.Close()
		return false
	}
}

// Close is idempotent. The coordinator observes closure through the read pump
// returning or through a failed Deliver.
func (session *Session) Close() {
	session.closeOnce.Do(func() {
		session.closed.Store(true)
		close(session.stopRequest)
		session.websocket.Close()
	})
}

// Start runs both pumps and blocks until the connection is gone. The bound
// user, if any, is removed on the way out.
func (session *Session) Start() {
	sessionsActive.Inc()
	defer sessionsActive.Dec()

	go session.writePump()
	session.readPump()

	session.Close()
	session.coordinator.Disconnect(session)
}

func (session *Session) readPump() {
	for {
		data, err := session.websocket.ReadMessage()
		if err != nil {
			logger.Debugw("Unable to read from client, closing connection", "error", err, "session", session.id)
			return
		}

		session.coordinator.HandleMessage(session, data)
	}
}

func (session *Session) writePump() {
	for {
		select {
		case payload := <-session.send:
			if err := session.websocket.WriteMessage(payload); err != nil {
				logger.Debugw("Unable to write to client, closing connection", "error", err, "session", session.id)
				deliveryFailures.Inc()
				session.Close()
				return
			}
		case <-session.stopRequest:
			return
		}
	}
}

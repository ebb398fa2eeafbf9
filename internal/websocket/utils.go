package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	closeWait = time.Second

	// readWait is how long a student may stay silent. Clients ping well
	// inside it while reading a long question.
	readWait = 5 * time.Minute

	// MaxMessageBytes leaves room for the largest code answer plus framing.
	MaxMessageBytes = 72 * 1024
)

// Prepare applies the read limit to a freshly upgraded connection.
func Prepare(conn *websocket.Conn) {
	conn.SetReadLimit(MaxMessageBytes)
}

// WriteTyped sends one event payload.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends an ErrorResponse.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{Event: EventError, Error: errMsg})
}

// ReadJSON decodes the next client message, allowing readWait of silence.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	return conn.ReadJSON(v)
}

// CloseNormal tells the client the stream ended on purpose.
func CloseNormal(conn *websocket.Conn, reason string) error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	return conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))
}

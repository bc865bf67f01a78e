package configsync

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/loopwic/lattice-scan/internal/model"
)

const wsHandshakeTimeout = 10 * time.Second

// dialStream opens the /ops/mod-config/stream subscription (spec §6),
// sending the caller's bearer token as an Authorization header.
func dialStream(ctx context.Context, url, authToken string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	header := http.Header{}
	if authToken != "" {
		header.Set("Authorization", "Bearer "+authToken)
	}
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("configsync: dial stream: %w", err)
	}
	return conn, nil
}

// streamMessage is one decoded text frame off the wire: either an
// envelope, a frame decode error (reading continues), or a read error
// that ends the loop. "pong" heartbeat replies are not forwarded.
type streamMessage struct {
	Envelope *model.ConfigEnvelope
	Err      error
}

// readStream runs the blocking read loop on its own goroutine, decoding
// every text frame as a Config Envelope except the literal "pong"
// heartbeat reply, and forwarding one streamMessage per frame (or a
// single final one on read error) until the connection closes.
func readStream(conn *websocket.Conn, out chan<- streamMessage) {
	defer close(out)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			out <- streamMessage{Err: err}
			return
		}
		if string(data) == "pong" {
			continue
		}
		var env model.ConfigEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			out <- streamMessage{Err: fmt.Errorf("configsync: decode stream frame: %w", err)}
			continue
		}
		out <- streamMessage{Envelope: &env}
	}
}

// sendPing writes the spec §4.G heartbeat text frame. A write failure
// means the caller should treat the socket as dead and reconnect.
func sendPing(conn *websocket.Conn) error {
	return conn.WriteMessage(websocket.TextMessage, []byte("ping"))
}

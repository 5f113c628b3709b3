package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/cybertwin/console/pkg/models"
)

// MessageHandler receives each alert-tagged incident from the stream.
type MessageHandler func(incident models.Incident)

// StateHandler receives every connectivity transition.
type StateHandler func(state models.ConnectionState)

// Conn is the subset of a websocket connection the client uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer establishes websocket connections. Abstracted for tests.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (Conn, error)
}

// Clock abstracts time for the reconnect scheduler.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// TokenProvider supplies the bearer credential attached to the
// websocket handshake.
type TokenProvider interface {
	Token() (string, error)
}

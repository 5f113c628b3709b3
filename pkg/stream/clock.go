package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// realClock implements Clock using the real time package.
type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// wsDialer adapts gorilla's dialer to the Dialer interface.
type wsDialer struct {
	dialer *websocket.Dialer
}

func (d *wsDialer) DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, urlStr, requestHeader)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}

		return nil, err
	}

	return conn, nil
}

package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	gosync "sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reportwell/notifyfeed/internal/apperr"
)

// Transport is a live bidirectional text channel to the push endpoint.
// ReadMessage blocks until a text frame arrives or the channel fails;
// any error ends the transport.
type Transport interface {
	ReadMessage() (string, error)
	WriteMessage(text string) error
	Close() error
}

// Dialer opens a Transport to the given URL.
type Dialer interface {
	Dial(ctx context.Context, rawURL string) (Transport, error)
}

// SocketURL builds {base}/notifications/?token={token}.
func SocketURL(base, token string) string {
	return strings.TrimRight(base, "/") + "/notifications/?token=" + url.QueryEscape(token)
}

// redact strips the query string so access tokens stay out of logs
// and error messages.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// WebsocketDialer dials the push endpoint with gorilla/websocket.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
	// WriteTimeout bounds each frame write. Zero means defaultWriteTimeout.
	WriteTimeout time.Duration
	Header       http.Header
}

const defaultWriteTimeout = 10 * time.Second

func (d WebsocketDialer) Dial(ctx context.Context, rawURL string) (Transport, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout <= 0 {
		dialer.HandshakeTimeout = 10 * time.Second
	}

	conn, resp, err := dialer.DialContext(ctx, rawURL, d.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, apperr.Wrap(apperr.CodeUnauthorized, err,
				fmt.Sprintf("socket handshake rejected (%d) by %s", resp.StatusCode, redact(rawURL)))
		}
		return nil, fmt.Errorf("dialing %s: %w", redact(rawURL), err)
	}

	writeTimeout := d.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &wsTransport{conn: conn, writeTimeout: writeTimeout}, nil
}

type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	writeMu      gosync.Mutex
	closeOnce gosync.Once
	closeErr  error
}

// ReadMessage returns the next text frame. Binary frames are skipped.
func (t *wsTransport) ReadMessage() (string, error) {
	for {
		mt, data, err := t.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if mt == websocket.TextMessage {
			return string(data), nil
		}
	}
}

func (t *wsTransport) WriteMessage(text string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// Close sends a normal-closure frame (best effort) and releases the
// connection. It does not wait for an in-flight WriteMessage. Safe to
// call more than once.
func (t *wsTransport) Close() error {
	t.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))

		if err := t.conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			t.closeErr = err
		}
	})
	return t.closeErr
}

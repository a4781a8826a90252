package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fasthttp/websocket"

	"github.com/AmanSingh544/ChatAppResponsive/internal/codec"
)

const writeWait = 10 * time.Second

// WSDialer connects to the chat server's /ws endpoint.
type WSDialer struct {
	// ServerURL is the server base URL; http(s) is mapped to ws(s).
	ServerURL string
	Codec     codec.Codec
	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// Endpoint returns the socket URL for token, carrying it as the
// access_token query parameter.
func (d *WSDialer) Endpoint(token string) (string, error) {
	u, err := url.Parse(d.ServerURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws", "":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"

	q := u.Query()
	q.Set("access_token", token)
	q.Set("codec", d.codec().Name())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (d *WSDialer) Dial(ctx context.Context, token string) (Conn, error) {
	endpoint, err := d.Endpoint(token)
	if err != nil {
		return nil, err
	}
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
			if resp.Body != nil {
				_ = resp.Body.Close()
			}
			herr := &HandshakeError{Status: resp.StatusCode, Err: err}
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				herr.Err = ErrAuthRejected
			}
			return nil, herr
		}
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	msgType := websocket.TextMessage
	if d.codec().Binary() {
		msgType = websocket.BinaryMessage
	}
	return &wsConn{ws: ws, msgType: msgType}, nil
}

func (d *WSDialer) codec() codec.Codec {
	if d.Codec == nil {
		return codec.JSON
	}
	return d.Codec
}

type wsConn struct {
	ws      *websocket.Conn
	msgType int

	closeOnce sync.Once
	closeErr  error
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		mt, b, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt == websocket.TextMessage || mt == websocket.BinaryMessage {
			return b, nil
		}
	}
}

func (c *wsConn) WriteMessage(b []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(c.msgType, b)
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

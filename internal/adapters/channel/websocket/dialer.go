// Package websocket implements the push channel over gorilla/websocket.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/bnema/incident-cli/internal/domain"
	"github.com/bnema/incident-cli/internal/log"
	"github.com/bnema/incident-cli/internal/ports"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait               = 10 * time.Second
	maxMessageSize          = 512 * 1024 // 512KB
	defaultHandshakeTimeout = 10 * time.Second
	incidentQueryParam      = "incident_id"
)

type Dialer struct {
	URL              string
	HandshakeTimeout time.Duration
	Header           http.Header
	Logger           zerolog.Logger
}

func (d Dialer) Dial(ctx context.Context, id domain.IncidentID) (ports.ChannelConn, error) {
	endpoint, err := channelURL(d.URL, id)
	if err != nil {
		return nil, err
	}

	handshake := d.HandshakeTimeout
	if handshake <= 0 {
		handshake = defaultHandshakeTimeout
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshake,
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, d.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial channel: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial channel: %w", err)
	}

	conn.SetReadLimit(maxMessageSize)
	d.Logger.Debug().Str(log.FieldURL, endpoint).Msg("channel dialed")

	return &Conn{conn: conn, logger: d.Logger}, nil
}

func channelURL(raw string, id domain.IncidentID) (string, error) {
	if raw == "" {
		return "", errors.New("channel url is required")
	}
	if id == "" {
		return "", domain.ErrIncidentIDRequired
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse channel url: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return "", errors.New("channel url must use ws or wss")
	}

	query := parsed.Query()
	query.Set(incidentQueryParam, string(id))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// Conn adapts a websocket connection to ports.ChannelConn. Only text frames
// are returned; other data frames are skipped.
type Conn struct {
	conn   *websocket.Conn
	logger zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

func (c *Conn) ReadFrame() ([]byte, error) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug().Err(err).Msg("channel read error")
			}
			return nil, err
		}
		if messageType != websocket.TextMessage {
			c.logger.Debug().Int("message_type", messageType).Msg("skipping non-text frame")
			continue
		}
		return data, nil
	}
}

// Close sends a close frame and releases the connection. It is safe to call
// while ReadFrame is blocked and more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

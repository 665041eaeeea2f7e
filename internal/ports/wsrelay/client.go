package wsrelay

import (
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"taash/internal/protocol"

	"github.com/gorilla/websocket"
)

// Receiver consumes envelopes delivered over the room channel. A session from
// internal/app satisfies it.
type Receiver interface {
	Receive(env protocol.Envelope) error
}

// Client attaches one peer to a relay room over a dialed websocket. It
// implements ports.ChannelPort so a session can publish through it, and it
// pumps every inbound frame into the given receiver.
type Client struct {
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the relay at base (e.g. "ws://127.0.0.1:8350") using the
// session token minted for this peer and room. Inbound envelopes are handed
// to recv until the connection drops or Close is called.
func Dial(base, token string, recv Receiver) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("wsrelay: bad relay url %q: %w", base, err)
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("wsrelay: dial %s: %w", u.Host, err)
	}

	c := &Client{
		conn: conn,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
	}
	go c.writePump()
	go c.readPump(recv)
	return c, nil
}

// Publish encodes the envelope and queues it for the relay. It satisfies
// ports.ChannelPort.
func (c *Client) Publish(env protocol.Envelope) error {
	data, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return fmt.Errorf("wsrelay: connection closed")
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
	return nil
}

func (c *Client) readPump(recv Receiver) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize * 16) // snapshots are larger than actions
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("wsrelay: client read: %v", err)
			}
			return
		}
		env, err := protocol.Decode(message)
		if err != nil {
			log.Printf("wsrelay: client decode: %v", err)
			continue
		}
		if err := recv.Receive(env); err != nil {
			log.Printf("wsrelay: client receive: %v", err)
		}
	}
}

func (c *Client) writePump() {
	defer c.Close()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

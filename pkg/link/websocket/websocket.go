// Package websocket reaches the peer module through a serial-over-websocket
// bridge. Every frame is carried in a binary message.
package websocket

import (
	"net/url"

	"golang.org/x/net/websocket"

	"github.com/robotalks/winot.go/pkg/link"
)

// Conn wraps websocket.Conn to send binary messages.
type Conn struct {
	*websocket.Conn
}

// New wraps an established websocket.Conn.
func New(conn *websocket.Conn) *Conn {
	conn.PayloadType = websocket.BinaryFrame
	return &Conn{Conn: conn}
}

// Dial connects to a websocket URL.
func Dial(u *url.URL) (*Conn, error) {
	origin := &url.URL{Scheme: "http", Host: u.Host}
	if u.Scheme == "wss" {
		origin.Scheme = "https"
	}
	conn, err := websocket.Dial(u.String(), "", origin.String())
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// DialStream connects to a websocket URL wrapped as a link.Stream.
func DialStream(u *url.URL) (*link.Stream, error) {
	conn, err := Dial(u)
	if err != nil {
		return nil, err
	}
	return link.NewStream(conn), nil
}

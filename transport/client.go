package transport

import (
	"net"

	"github.com/sirupsen/logrus"
)

// Client sends control packets to one server.
type Client struct {
	conn net.Conn
}

// Dial connects a UDP socket to addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Send encodes and writes p.
func (c *Client) Send(p *Packet) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	if _, err := c.conn.Write(data); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Client.Send",
		"content":     p.Content.String(),
		"remote_addr": c.conn.RemoteAddr().String(),
		"size":        len(data),
	}).Debug("Packet sent")

	return nil
}

// LocalAddr returns the local socket address.
func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Close releases the socket.
func (c *Client) Close() error {
	return c.conn.Close()
}

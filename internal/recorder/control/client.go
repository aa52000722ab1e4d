package control

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// Client speaks the control protocol over one connection.
type Client struct {
	conn net.Conn
	br   *bufio.Reader
	mu   sync.Mutex
}

// Dial connects to the control socket at path.
func Dial(ctx context.Context, path string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}
	return &Client{conn: conn, br: bufio.NewReaderSize(conn, 64*1024)}, nil
}

// Do sends one request and waits for its response. A response with ok=false
// is returned as-is; use Response.Err to turn it into an error.
func (c *Client) Do(ctx context.Context, cmd, arg string) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultReadTimeout + DefaultWriteTimeout)
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	if _, err := c.conn.Write([]byte(FormatRequest(cmd, arg))); err != nil {
		return nil, fmt.Errorf("send %s: %w", cmd, err)
	}
	line, err := c.br.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", cmd, err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", cmd, err)
	}
	if !resp.OK && resp.Error == nil {
		return nil, errors.New("control: error response without error body")
	}
	return &resp, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

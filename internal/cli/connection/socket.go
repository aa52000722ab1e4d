package connection

import (
	"context"
	"errors"
	"sync"

	"github.com/yndnr/arsnap-go/internal/core/service"
	"github.com/yndnr/arsnap-go/internal/recorder/control"
)

// StatusReader reports the recorder's capture status.
type StatusReader interface {
	Status(ctx context.Context) (service.Status, error)
}

// SocketClient talks to the recorder over its control socket. The
// connection is opened on first use.
type SocketClient struct {
	path string

	mu     sync.Mutex
	client *control.Client
}

// NewSocketClient creates a new socket client.
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{path: socketPath}
}

// Path returns the socket path.
func (c *SocketClient) Path() string {
	return c.path
}

// Connect connects to the control socket.
func (c *SocketClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *SocketClient) connectLocked(ctx context.Context) error {
	if c.client != nil {
		return nil
	}
	client, err := control.Dial(ctx, c.path)
	if err != nil {
		return err
	}
	c.client = client
	return nil
}

// Close closes the socket connection.
func (c *SocketClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// Execute sends a command and returns the raw response. Transport errors
// drop the connection so the next call redials.
func (c *SocketClient) Execute(ctx context.Context, cmd, arg string) (*control.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}
	resp, err := c.client.Do(ctx, cmd, arg)
	if err != nil {
		c.client.Close()
		c.client = nil
		return nil, err
	}
	return resp, nil
}

// call executes a command and turns an error response into an error.
func (c *SocketClient) call(ctx context.Context, cmd, arg string) (*control.Response, error) {
	resp, err := c.Execute(ctx, cmd, arg)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp, nil
}

// Start begins capturing into the named session.
func (c *SocketClient) Start(ctx context.Context, session string) (service.Status, error) {
	resp, err := c.call(ctx, control.CmdStart, session)
	if err != nil {
		return service.Status{}, err
	}
	return statusOf(resp)
}

// Stop ends the active capture and returns the manifest flush outcome. The
// result is zero when nothing was capturing.
func (c *SocketClient) Stop(ctx context.Context) (service.FlushResult, error) {
	resp, err := c.call(ctx, control.CmdStop, "")
	if err != nil {
		return service.FlushResult{}, err
	}
	if resp.Flush == nil {
		return service.FlushResult{}, nil
	}
	return *resp.Flush, nil
}

// Status implements StatusReader.
func (c *SocketClient) Status(ctx context.Context) (service.Status, error) {
	resp, err := c.call(ctx, control.CmdStatus, "")
	if err != nil {
		return service.Status{}, err
	}
	return statusOf(resp)
}

// Reload asks the recorder to re-read its configuration.
func (c *SocketClient) Reload(ctx context.Context) error {
	_, err := c.call(ctx, control.CmdReload, "")
	return err
}

func statusOf(resp *control.Response) (service.Status, error) {
	if resp.Status == nil {
		return service.Status{}, errors.New("response carries no status")
	}
	return *resp.Status, nil
}

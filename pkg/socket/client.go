package socket

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Client sends commands to a running daemon
type Client struct {
	SocketPath string
	Timeout    time.Duration
}

// Do sends cmd and decodes the response data into out, which may be nil
func (c *Client) Do(cmd Command, out any) error {
	conn, err := dialSocket(c.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon at %s: %w", c.SocketPath, err)
	}
	defer conn.Close()

	if c.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.Timeout))
	}

	if err := json.NewEncoder(conn).Encode(cmd); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if !resp.Success {
		return errors.New(resp.Error)
	}

	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

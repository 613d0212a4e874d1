package accel

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	// DialTimeout bounds the initial connection attempt, matching the
	// ASIC client's ConnectionTimeout.
	DialTimeout = 5 * time.Second
	// CallTimeout bounds every individual RPC after the connection is
	// established.
	CallTimeout = 30 * time.Second
)

// Client is a thin wrapper over a *grpc.ClientConn using this package's
// codec. Unlike the ASIC client it is modeled on, it never falls back
// to software hashing: once Dial succeeds, every subsequent failure is
// returned to the caller rather than silently degraded (spec's "never
// silently fall back after a successful accelerator connection" rule).
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to an accelerator driver at address and performs the
// handshake. It returns an error if either step fails; callers should
// treat a Dial failure as "this accelerator is unavailable for this
// run", not retry into a degraded mode.
func Dial(address string) (*Client, *HandshakeResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(ctx, address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("accel: dial %s: %w", address, err)
	}

	c := &Client{conn: conn}
	hs, err := c.Handshake(ctx)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("accel: handshake with %s: %w", address, err)
	}
	if !hs.Operational {
		conn.Close()
		return nil, nil, fmt.Errorf("accel: %s reports not operational", address)
	}
	return c, hs, nil
}

// Handshake invokes the Handshake RPC.
func (c *Client) Handshake(ctx context.Context) (*HandshakeResponse, error) {
	out := new(HandshakeResponse)
	if err := c.conn.Invoke(ctx, ServiceName+"/Handshake", &HandshakeRequest{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Compute invokes the Compute RPC with a CallTimeout deadline.
func (c *Client) Compute(ctx context.Context, req *ComputeRequest) (*ComputeResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()
	out := new(ComputeResponse)
	if err := c.conn.Invoke(ctx, ServiceName+"/Compute", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Heartbeat invokes the Heartbeat RPC.
func (c *Client) Heartbeat(ctx context.Context) (*HeartbeatResponse, error) {
	out := new(HeartbeatResponse)
	if err := c.conn.Invoke(ctx, ServiceName+"/Heartbeat", &HeartbeatRequest{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

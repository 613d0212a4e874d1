package accel

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

type fakeServer struct {
	worksize uint64
}

func (f *fakeServer) Handshake(context.Context, *HandshakeRequest) (*HandshakeResponse, error) {
	return &HandshakeResponse{Name: "fake", Worksize: f.worksize, Operational: f.worksize != 0}, nil
}

func (f *fakeServer) Compute(_ context.Context, req *ComputeRequest) (*ComputeResponse, error) {
	return &ComputeResponse{Data: make([]byte, int(req.Count)*262144)}, nil
}

func (f *fakeServer) Heartbeat(context.Context, *HeartbeatRequest) (*HeartbeatResponse, error) {
	return &HeartbeatResponse{At: Now(), Healthy: true}, nil
}

func startFakeServer(t *testing.T, worksize uint64) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	RegisterServer(s, &fakeServer{worksize: worksize})
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	return lis.Addr().String()
}

func TestDialHandshakeAndCompute(t *testing.T) {
	addr := startFakeServer(t, 1024)

	client, hs, err := Dial(addr)
	require.NoError(t, err)
	defer client.Close()

	require.Equal(t, uint64(1024), hs.Worksize)
	require.True(t, hs.Operational)

	resp, err := client.Compute(context.Background(), &ComputeRequest{AccountID: 1, StartNonce: 0, Count: 2})
	require.NoError(t, err)
	require.Len(t, resp.Data, 2*262144)
}

func TestDialRejectsNonOperationalDevice(t *testing.T) {
	addr := startFakeServer(t, 0)

	_, _, err := Dial(addr)
	require.Error(t, err)
}

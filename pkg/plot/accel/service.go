// Package accel is the gRPC wire contract between the scheduler and an
// external accelerator driver process (spec §4.D). It defines its own
// message types and a hand-written grpc.ServiceDesc instead of
// protoc-gen-go output: every value on the wire is a plain Go struct
// encoded with the package's own codec (codec.go).
package accel

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ServiceName is the fully-qualified gRPC service name accelerator
// drivers register under.
const ServiceName = "plotgen.accel.v1.Accelerator"

// HandshakeRequest carries no fields; it exists so the method signature
// matches the rest of the contract.
type HandshakeRequest struct{}

// HandshakeResponse is the device-info reply of spec §4.D: a driver
// reports its per-dispatch worksize and whether it is operational
// before the scheduler will route any work to it.
type HandshakeResponse struct {
	Name        string
	Worksize    uint64
	MemoryBytes uint64
	Operational bool
}

// ComputeRequest asks the driver to hash Count nonces starting at
// StartNonce for AccountID, the same sub-range shape the CPU worker
// pool processes.
type ComputeRequest struct {
	AccountID  uint64
	StartNonce uint64
	Count      uint64
}

// ComputeResponse carries Count nonces of raw, not-yet-transposed "W"
// buffer data (spec §4.B steps 2-7's output, before the scoop/mirror
// placement step): Count * kernel.NonceSize bytes, nonce k occupying
// Data[k*NonceSize : (k+1)*NonceSize]. The caller is responsible for the
// scoop-transposed placement into its cache (kernel.Place), the same as
// it would for a nonce computed locally by kernel.Compute.
type ComputeResponse struct {
	Data []byte
}

// HeartbeatRequest carries no fields.
type HeartbeatRequest struct{}

// HeartbeatResponse reports liveness; At uses the well-known protobuf
// timestamp type so the contract stays interoperable with a real
// protobuf-based driver implementation even though this package's own
// transport is JSON.
type HeartbeatResponse struct {
	At      *timestamppb.Timestamp
	Healthy bool
}

// Server is implemented by an accelerator driver process.
type Server interface {
	Handshake(context.Context, *HandshakeRequest) (*HandshakeResponse, error)
	Compute(context.Context, *ComputeRequest) (*ComputeResponse, error)
	Heartbeat(context.Context, *HeartbeatRequest) (*HeartbeatResponse, error)
}

// RegisterServer wires srv into s under the Accelerator service name.
func RegisterServer(s *grpc.Server, srv Server) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Handshake", Handler: handshakeHandler},
		{MethodName: "Compute", Handler: computeHandler},
		{MethodName: "Heartbeat", Handler: heartbeatHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "plotgen/accel.proto",
}

func handshakeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(HandshakeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Handshake(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Handshake"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).Handshake(ctx, req.(*HandshakeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func computeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ComputeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Compute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Compute"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).Compute(ctx, req.(*ComputeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func heartbeatHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(HeartbeatRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Heartbeat(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Heartbeat"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).Heartbeat(ctx, req.(*HeartbeatRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Now returns the current time as a protobuf timestamp; split out so
// server implementations in cmd/accelstub don't each import
// timestamppb directly.
func Now() *timestamppb.Timestamp {
	return timestamppb.New(time.Now())
}
